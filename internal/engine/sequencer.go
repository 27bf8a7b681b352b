package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"order_gateway/internal/domain"
	"order_gateway/internal/event"
	"order_gateway/internal/infra"
)

type request struct {
	cmd   event.Command
	reply chan event.Receipt
}

// Sequencer is the single writer of the gateway. It owns the id allocator
// and the message log, so ids are issued and lines appended in one order.
type Sequencer struct {
	inbox   chan request
	alloc   *Allocator
	sink    domain.MessageSink
	metrics *infra.Metrics

	// Boundary: notified after every committed line
	onCommit func(event.Receipt)

	mu        sync.RWMutex // Used only for external reads (Stats)
	committed uint64
	failed    uint64
	lastID    uint64
	lastLine  string

	done chan struct{}
}

// SequencerStats is a snapshot of the sequencer for external readers.
type SequencerStats struct {
	Committed uint64 `json:"committed"`
	Failed    uint64 `json:"failed"`
	LastID    uint64 `json:"last_id"`
	LastLine  string `json:"last_line"`
	Pending   int    `json:"pending"`
}

// NewSequencer creates a new sequencer instance.
func NewSequencer(inboxSize int, alloc *Allocator, sink domain.MessageSink, metrics *infra.Metrics, onCommit func(event.Receipt)) *Sequencer {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Sequencer{
		inbox:    make(chan request, inboxSize),
		lastID:   alloc.Last(),
		alloc:    alloc,
		sink:     sink,
		metrics:  metrics,
		onCommit: onCommit,
		done:     make(chan struct{}),
	}
}

// Submit hands a validated command to the sequencer and waits for its
// receipt. ctx bounds only the wait for a free inbox slot: once accepted,
// the command runs to completion.
func (s *Sequencer) Submit(ctx context.Context, cmd event.Command) (event.Receipt, error) {
	req := request{cmd: cmd, reply: make(chan event.Receipt, 1)}

	select {
	case <-s.done:
		return event.Receipt{}, domain.ErrSequencerStopped
	case <-ctx.Done():
		return event.Receipt{}, ctx.Err()
	case s.inbox <- req:
	}

	select {
	case r := <-req.reply:
		return r, nil
	case <-s.done:
		// Run may have answered right before stopping
		select {
		case r := <-req.reply:
			return r, nil
		default:
			return event.Receipt{}, domain.ErrSequencerStopped
		}
	}
}

// Done is closed once Run has returned.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// Run starts the main loop. This MUST be run in a single goroutine.
// On cancellation, commands already in the inbox are still processed.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started", slog.Uint64("last_id", s.alloc.Last()))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			close(s.done)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	// Allocator saves must not fail just because shutdown started
	workCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			s.drain(workCtx)
			slog.Info("Sequencer stopped", slog.Uint64("last_id", s.alloc.Last()))
			close(s.done)
			return
		case req := <-s.inbox:
			req.reply <- s.process(workCtx, req.cmd)
		}
	}
}

func (s *Sequencer) drain(ctx context.Context) {
	for {
		select {
		case req := <-s.inbox:
			req.reply <- s.process(ctx, req.cmd)
		default:
			return
		}
	}
}

func (s *Sequencer) process(ctx context.Context, cmd event.Command) event.Receipt {
	start := time.Now()

	msg, err := s.build(ctx, cmd)
	if err != nil {
		s.recordFailure()
		return event.Receipt{Message: msg, Err: err}
	}

	line := msg.Encode()
	if err := s.sink.Append(line); err != nil {
		s.recordFailure()
		slog.Error("Order message not committed",
			slog.String("action", msg.Action()),
			slog.String("client_order_id", msg.ClientOrderID().String()),
			slog.Any("error", err))
		return event.Receipt{Message: msg, Line: line, Err: err}
	}

	s.mu.Lock()
	s.committed++
	s.lastLine = line
	seq := s.committed
	s.mu.Unlock()

	s.metrics.RecordCommit(time.Since(start))
	receipt := event.Receipt{Seq: seq, Message: msg, Line: line}
	if s.onCommit != nil {
		s.onCommit(receipt)
	}
	return receipt
}

// build turns a command into its message. Only placement draws an id.
func (s *Sequencer) build(ctx context.Context, cmd event.Command) (domain.OrderMessage, error) {
	switch c := cmd.(type) {
	case event.PlaceOrderCommand:
		id := s.alloc.Next(ctx)
		s.mu.Lock()
		s.lastID = s.alloc.Last()
		s.mu.Unlock()
		s.metrics.SetLastClientOrderID(s.alloc.Last())
		return domain.BuildNewOrder(id, c.Order.Symbol, c.Order.Price, c.Order.Side, c.Order.Quantity)
	case event.ModifyOrderCommand:
		return domain.BuildModifyOrder(c.ClientOrderID, c.Order.Symbol, c.Order.Price, c.Order.Side, c.Order.Quantity)
	case event.CancelOrderCommand:
		return domain.BuildCancelOrder(c.Cancel.ClientOrderID, c.Cancel.Symbol, c.Cancel.Side)
	default:
		slog.Warn("Unknown command type", slog.Any("type", cmd.GetType()))
		return nil, fmt.Errorf("unknown command type %d", cmd.GetType())
	}
}

func (s *Sequencer) recordFailure() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
	s.metrics.RecordFailure()
}

// Stats returns a snapshot of the sequencer (external read).
func (s *Sequencer) Stats() SequencerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SequencerStats{
		Committed: s.committed,
		Failed:    s.failed,
		LastID:    s.lastID,
		LastLine:  s.lastLine,
		Pending:   len(s.inbox),
	}
}

// DumpState writes the sequencer state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	s.mu.RLock()
	data := struct {
		LastID    uint64 `json:"last_id"`
		Committed uint64 `json:"committed"`
		Failed    uint64 `json:"failed"`
		LastLine  string `json:"last_line"`
	}{
		LastID:    s.lastID,
		Committed: s.committed,
		Failed:    s.failed,
		LastLine:  s.lastLine,
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
