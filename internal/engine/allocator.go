package engine

import (
	"context"
	"log/slog"

	"order_gateway/internal/domain"
)

// ClientOrderSequenceName is the sequence row used for client order ids.
const ClientOrderSequenceName = "client_order_id"

// Allocator issues client order ids. It is not safe for concurrent use:
// the Sequencer goroutine is its only caller.
type Allocator struct {
	store domain.SequenceStore
	name  string
	last  uint64
}

// NewAllocator resumes the sequence after max(persisted value, floor).
// floor is usually the highest id already found in the message log.
// A nil store keeps the sequence in memory only.
func NewAllocator(ctx context.Context, store domain.SequenceStore, name string, floor uint64) (*Allocator, error) {
	a := &Allocator{store: store, name: name, last: floor}
	if store == nil {
		return a, nil
	}

	persisted, err := store.LoadLastID(ctx, name)
	if err != nil {
		return nil, err
	}
	if persisted > a.last {
		a.last = persisted
	}
	return a, nil
}

// Next returns a fresh id. The counter advances even when persisting fails;
// on restart the message log scan restores any id that reached the log.
func (a *Allocator) Next(ctx context.Context) domain.ClientOrderID {
	a.last++
	if a.store != nil {
		if err := a.store.SaveLastID(ctx, a.name, a.last); err != nil {
			slog.Warn("Failed to persist client order sequence",
				slog.String("sequence", a.name),
				slog.Uint64("last_id", a.last),
				slog.Any("error", err))
		}
	}
	return domain.FormatClientOrderID(a.last)
}

// Last returns the most recently issued value, or the seed if none.
func (a *Allocator) Last() uint64 {
	return a.last
}
