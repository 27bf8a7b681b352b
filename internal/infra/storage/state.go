package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"order_gateway/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StateStore is the gateway's own database. It holds the last issued
// client order id so restarts continue the sequence.
type StateStore struct {
	db *gorm.DB
}

var _ domain.SequenceStore = (*StateStore)(nil)

// OpenStateStore creates or opens the state database at path.
func OpenStateStore(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// FULL sync: a persisted id must survive power loss before it is used
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}

	if err := db.AutoMigrate(&domain.ClientOrderSequence{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	return &StateStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *StateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadLastID returns the last persisted value of a sequence, 0 if none.
func (s *StateStore) LoadLastID(ctx context.Context, name string) (uint64, error) {
	var seq domain.ClientOrderSequence
	err := s.db.WithContext(ctx).Take(&seq, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load sequence %s: %w", name, err)
	}
	return seq.LastID, nil
}

// SaveLastID persists the last issued value of a sequence.
func (s *StateStore) SaveLastID(ctx context.Context, name string, id uint64) error {
	seq := domain.ClientOrderSequence{Name: name, LastID: id}
	if err := s.db.WithContext(ctx).Save(&seq).Error; err != nil {
		return fmt.Errorf("save sequence %s: %w", name, err)
	}
	return nil
}
