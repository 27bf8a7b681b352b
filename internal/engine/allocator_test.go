package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memSequenceStore struct {
	mu      sync.Mutex
	values  map[string]uint64
	saveErr error
	saves   int
}

func newMemSequenceStore() *memSequenceStore {
	return &memSequenceStore{values: make(map[string]uint64)}
}

func (m *memSequenceStore) LoadLastID(_ context.Context, name string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[name], nil
}

func (m *memSequenceStore) SaveLastID(_ context.Context, name string, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.values[name] = id
	return nil
}

func TestAllocator_Unique(t *testing.T) {
	a, err := NewAllocator(context.Background(), nil, ClientOrderSequenceName, 0)
	if err != nil {
		t.Fatalf("NewAllocator failed: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := a.Next(context.Background())
		if seen[id.String()] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id.String()] = true
	}
	if a.Last() != 1000 {
		t.Errorf("expected last 1000, got %d", a.Last())
	}
}

func TestAllocator_ResumesFromStore(t *testing.T) {
	store := newMemSequenceStore()
	ctx := context.Background()

	a, _ := NewAllocator(ctx, store, ClientOrderSequenceName, 0)
	a.Next(ctx)
	a.Next(ctx)

	b, err := NewAllocator(ctx, store, ClientOrderSequenceName, 0)
	if err != nil {
		t.Fatalf("NewAllocator failed: %v", err)
	}
	if id := b.Next(ctx); id != "3" {
		t.Errorf("expected 3 after restart, got %s", id)
	}
}

func TestAllocator_FloorWins(t *testing.T) {
	store := newMemSequenceStore()
	store.values[ClientOrderSequenceName] = 5
	ctx := context.Background()

	a, _ := NewAllocator(ctx, store, ClientOrderSequenceName, 40)
	if id := a.Next(ctx); id != "41" {
		t.Errorf("expected 41 from log floor, got %s", id)
	}

	store.values[ClientOrderSequenceName] = 90
	b, _ := NewAllocator(ctx, store, ClientOrderSequenceName, 40)
	if id := b.Next(ctx); id != "91" {
		t.Errorf("expected 91 from store, got %s", id)
	}
}

func TestAllocator_SaveFailureStillAdvances(t *testing.T) {
	store := newMemSequenceStore()
	store.saveErr = errors.New("disk full")
	ctx := context.Background()

	a, _ := NewAllocator(ctx, store, ClientOrderSequenceName, 0)
	first := a.Next(ctx)
	second := a.Next(ctx)
	if first == second {
		t.Fatalf("ids must differ even when persisting fails: %s", first)
	}
	if store.saves != 2 {
		t.Errorf("expected 2 save attempts, got %d", store.saves)
	}
}
