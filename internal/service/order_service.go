package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"order_gateway/internal/domain"
	"order_gateway/internal/engine"
	"order_gateway/internal/event"
	"order_gateway/internal/infra"
)

// Submitter is the write side of the gateway. *engine.Sequencer satisfies it.
type Submitter interface {
	Submit(ctx context.Context, cmd event.Command) (event.Receipt, error)
}

var _ Submitter = (*engine.Sequencer)(nil)

// OrderService runs the place / modify / cancel workflows. Validation runs
// on the caller's goroutine; only validated commands reach the Submitter.
type OrderService struct {
	reader  domain.OrderStateReader
	writer  Submitter
	metrics *infra.Metrics

	// Boundary: every result is offered to subscribers (e.g. websocket hub)
	publish func(event.ActionResult)

	now func() time.Time
}

// NewOrderService creates a new OrderService instance
func NewOrderService(reader domain.OrderStateReader, writer Submitter, metrics *infra.Metrics) *OrderService {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &OrderService{
		reader:  reader,
		writer:  writer,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetPublisher registers a callback for every ActionResult.
func (s *OrderService) SetPublisher(fn func(event.ActionResult)) {
	s.publish = fn
}

// PlaceOrder validates a new order and, if valid, writes a NEW line under a
// fresh client order id.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.NewOrderRequest) (event.ActionResult, error) {
	ref, err := s.lookupSymbol(ctx, req.Symbol)
	if err != nil {
		return s.fail(domain.ActionNew, "", err), err
	}

	order, err := domain.ValidateNew(req, ref)
	if err != nil {
		return s.reject(domain.ActionNew, "", err), err
	}

	return s.submit(ctx, domain.ActionNew, event.PlaceOrderCommand{
		BaseCommand: s.base(),
		Order:       order,
	})
}

// ModifyOrder validates a replacement field set for a pending order and
// writes a MODIFY line under the order's existing id.
func (s *OrderService) ModifyOrder(ctx context.Context, req domain.ModifyOrderRequest) (event.ActionResult, error) {
	id := strings.TrimSpace(req.ClientOrderID)

	target, err := s.lookupPending(ctx, id)
	if err != nil {
		return s.fail(domain.ActionModify, id, err), err
	}

	var ref *domain.SymbolReference
	if target != nil {
		if ref, err = s.lookupSymbol(ctx, req.Symbol); err != nil {
			return s.fail(domain.ActionModify, id, err), err
		}
	}

	clOrdID, order, err := domain.ValidateModify(req, target, ref)
	if err != nil {
		return s.reject(domain.ActionModify, id, err), err
	}

	return s.submit(ctx, domain.ActionModify, event.ModifyOrderCommand{
		BaseCommand:   s.base(),
		ClientOrderID: clOrdID,
		Order:         order,
	})
}

// CancelOrder writes a CANCEL line for a pending order. Symbol and side are
// taken from the stored order.
func (s *OrderService) CancelOrder(ctx context.Context, req domain.CancelOrderRequest) (event.ActionResult, error) {
	id := strings.TrimSpace(req.ClientOrderID)

	target, err := s.lookupPending(ctx, id)
	if err != nil {
		return s.fail(domain.ActionCancel, id, err), err
	}

	cancel, err := domain.ValidateCancel(target)
	if err != nil {
		return s.reject(domain.ActionCancel, id, err), err
	}

	return s.submit(ctx, domain.ActionCancel, event.CancelOrderCommand{
		BaseCommand: s.base(),
		Cancel:      cancel,
	})
}

func (s *OrderService) submit(ctx context.Context, action string, cmd event.Command) (event.ActionResult, error) {
	receipt, err := s.writer.Submit(ctx, cmd)
	if err == nil {
		err = receipt.Err
	}

	id := ""
	if receipt.Message != nil {
		id = receipt.Message.ClientOrderID().String()
	}

	if err != nil {
		return s.fail(action, id, err), err
	}

	res := event.ActionResult{
		Action:        action,
		Status:        event.StatusCommitted,
		ClientOrderID: id,
		Message:       commitMessage(action, id),
		Line:          receipt.Line,
		At:            s.now(),
	}
	slog.Info("ORDER_COMMITTED",
		slog.String("action", action),
		slog.String("client_order_id", id),
		slog.String("line", receipt.Line))
	s.emit(res)
	return res, nil
}

func commitMessage(action, id string) string {
	switch action {
	case domain.ActionModify:
		return "order " + id + " modified"
	case domain.ActionCancel:
		return "order " + id + " cancelled"
	default:
		return "order " + id + " placed"
	}
}

func (s *OrderService) reject(action, id string, err error) event.ActionResult {
	s.metrics.RecordRejection()

	res := event.ActionResult{
		Action:        action,
		Status:        event.StatusRejected,
		ClientOrderID: id,
		ErrorKind:     domain.KindOf(err),
		Message:       err.Error(),
		At:            s.now(),
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		res.Field = ve.Field
	}

	slog.Info("ORDER_REJECTED",
		slog.String("action", action),
		slog.String("kind", string(res.ErrorKind)),
		slog.String("field", res.Field))
	s.emit(res)
	return res
}

// fail reports a submission that passed validation (or never reached it)
// but was not committed. The sequencer already counted log failures.
func (s *OrderService) fail(action, id string, err error) event.ActionResult {
	res := event.ActionResult{
		Action:        action,
		Status:        event.StatusFailed,
		ClientOrderID: id,
		ErrorKind:     domain.KindOf(err),
		Message:       err.Error(),
		At:            s.now(),
	}
	slog.Error("ORDER_FAILED",
		slog.String("action", action),
		slog.String("client_order_id", id),
		slog.Any("error", err))
	s.emit(res)
	return res
}

func (s *OrderService) emit(res event.ActionResult) {
	if s.publish != nil {
		s.publish(res)
	}
}

func (s *OrderService) base() event.BaseCommand {
	return event.BaseCommand{Ts: s.now().UnixMicro()}
}

func (s *OrderService) lookupSymbol(ctx context.Context, symbol string) (*domain.SymbolReference, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, nil
	}
	return s.reader.LookupSymbol(ctx, symbol)
}

func (s *OrderService) lookupPending(ctx context.Context, id string) (*domain.PendingOrder, error) {
	if id == "" {
		return nil, nil
	}
	return s.reader.LookupPendingOrder(ctx, id)
}

// GetSymbol returns reference data for one symbol, nil if unknown.
func (s *OrderService) GetSymbol(ctx context.Context, symbol string) (*domain.SymbolReference, error) {
	return s.lookupSymbol(ctx, symbol)
}

// GetPendingOrder returns one pending order, nil if unknown.
func (s *OrderService) GetPendingOrder(ctx context.Context, id string) (*domain.PendingOrder, error) {
	return s.lookupPending(ctx, strings.TrimSpace(id))
}

func (s *OrderService) ListSymbols(ctx context.Context) ([]domain.SymbolReference, error) {
	return s.reader.ListSymbols(ctx)
}

func (s *OrderService) ListPendingOrders(ctx context.Context) ([]domain.PendingOrder, error) {
	return s.reader.ListPendingOrders(ctx)
}

func (s *OrderService) ListOrderHistory(ctx context.Context) ([]domain.OrderHistoryRecord, error) {
	return s.reader.ListOrderHistory(ctx)
}
