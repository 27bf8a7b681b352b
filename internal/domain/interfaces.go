package domain

import "context"

// OrderStateReader reads the externally owned reference, pending-order and
// order-history stores. Lookups return (nil, nil) when nothing matches.
type OrderStateReader interface {
	LookupSymbol(ctx context.Context, symbol string) (*SymbolReference, error)
	LookupPendingOrder(ctx context.Context, clientOrderID string) (*PendingOrder, error)
	ListSymbols(ctx context.Context) ([]SymbolReference, error)
	ListPendingOrders(ctx context.Context) ([]PendingOrder, error)
	ListOrderHistory(ctx context.Context) ([]OrderHistoryRecord, error)
}

// MessageSink is the append-only outbound message log.
// A nil error means the line is durable.
type MessageSink interface {
	Append(line string) error
}

// SequenceStore persists the last issued value of a named sequence.
type SequenceStore interface {
	LoadLastID(ctx context.Context, name string) (uint64, error)
	SaveLastID(ctx context.Context, name string, id uint64) error
}
