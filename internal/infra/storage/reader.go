package storage

import (
	"context"
	"errors"
	"fmt"

	"order_gateway/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Reader queries the externally owned reference, pending-order and
// order-history tables. It never writes and never migrates them.
type Reader struct {
	db *gorm.DB
}

var _ domain.OrderStateReader = (*Reader)(nil)

// OpenReader opens the reference database read-only.
func OpenReader(path string) (*Reader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database: %w", err)
	}
	return &Reader{db: db}, nil
}

// NewReader wraps an already opened database.
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// Close releases the underlying connection pool.
func (r *Reader) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// scoped runs fn on a dedicated connection that is returned to the pool on
// every exit path.
func (r *Reader) scoped(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Connection(fn)
}

// LookupSymbol retrieves reference data for a symbol
func (r *Reader) LookupSymbol(ctx context.Context, symbol string) (*domain.SymbolReference, error) {
	var ref domain.SymbolReference
	err := r.scoped(ctx, func(tx *gorm.DB) error {
		return tx.Take(&ref, "symbol = ?", symbol).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("lookup symbol %s: %w", symbol, err)
	}
	return &ref, nil
}

// LookupPendingOrder retrieves a pending order by client order id
func (r *Reader) LookupPendingOrder(ctx context.Context, clientOrderID string) (*domain.PendingOrder, error) {
	var order domain.PendingOrder
	err := r.scoped(ctx, func(tx *gorm.DB) error {
		return tx.Take(&order, "clOrdID = ?", clientOrderID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup pending order %s: %w", clientOrderID, err)
	}
	return &order, nil
}

// ListSymbols retrieves all symbols
func (r *Reader) ListSymbols(ctx context.Context) ([]domain.SymbolReference, error) {
	var refs []domain.SymbolReference
	err := r.scoped(ctx, func(tx *gorm.DB) error {
		return tx.Order("symbol").Find(&refs).Error
	})
	return refs, err
}

// ListPendingOrders retrieves all pending orders
func (r *Reader) ListPendingOrders(ctx context.Context) ([]domain.PendingOrder, error) {
	var orders []domain.PendingOrder
	err := r.scoped(ctx, func(tx *gorm.DB) error {
		return tx.Order("clOrdID").Find(&orders).Error
	})
	return orders, err
}

// ListOrderHistory retrieves every historical order record
func (r *Reader) ListOrderHistory(ctx context.Context) ([]domain.OrderHistoryRecord, error) {
	var records []domain.OrderHistoryRecord
	err := r.scoped(ctx, func(tx *gorm.DB) error {
		return tx.Order("rowid").Find(&records).Error
	})
	return records, err
}
