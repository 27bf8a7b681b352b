package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order_gateway/internal/api"
	"order_gateway/internal/engine"
	"order_gateway/internal/event"
	"order_gateway/internal/infra"
	"order_gateway/internal/infra/msglog"
	"order_gateway/internal/infra/storage"
	"order_gateway/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Reader    *storage.Reader
	State     *storage.StateStore
	Log       *msglog.Writer
	Sequencer *engine.Sequencer
	Orders    *service.OrderService
	Server    *api.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires every component. Nothing runs
// until Run is called.
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping order gateway", slog.String("config", configPath))

	// 3. Reference & state databases
	reader, err := storage.OpenReader(cfg.Database.ReferencePath)
	if err != nil {
		return err
	}
	b.Reader = reader
	slog.Info("Reference database opened", slog.String("path", cfg.Database.ReferencePath))

	state, err := storage.OpenStateStore(cfg.Database.StatePath)
	if err != nil {
		return err
	}
	b.State = state

	// 4. Message log
	metrics := infra.GlobalMetrics
	w, err := msglog.Open(cfg.MessageLog.Path, msglog.Options{
		MaxAttempts: cfg.MessageLog.MaxAttempts,
		RetryBase:   cfg.RetryBase(),
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}
	b.Log = w
	slog.Info("Message log opened",
		slog.String("path", cfg.MessageLog.Path),
		slog.Int64("size", w.Size()))

	// 5. Allocator: never below an id already in the log
	floor, err := w.LastClientOrderID()
	if err != nil {
		return fmt.Errorf("scan message log: %w", err)
	}
	alloc, err := engine.NewAllocator(ctx, state, engine.ClientOrderSequenceName, floor)
	if err != nil {
		return err
	}
	metrics.SetLastClientOrderID(alloc.Last())
	slog.Info("Client order ids resume", slog.Uint64("last_id", alloc.Last()), slog.Uint64("log_floor", floor))

	// 6. Sequencer, workflows, transport
	b.Sequencer = engine.NewSequencer(cfg.Sequencer.InboxSize, alloc, w, metrics, func(r event.Receipt) {
		slog.Debug("Line committed", slog.Uint64("seq", r.Seq), slog.String("line", r.Line))
	})
	b.Orders = service.NewOrderService(reader, b.Sequencer, metrics)
	b.Server = api.NewServer(b.Orders, metrics, cfg.Server.AllowedOrigins)
	b.Orders.SetPublisher(b.Server.Hub().PublishResult)

	return nil
}

// Run starts the sequencer and the API server and blocks until ctx is done
// or the server fails. In-flight submissions are finished before returning.
func (b *Bootstrap) Run(ctx context.Context) error {
	seqCtx, stopSeq := context.WithCancel(context.Background())
	defer stopSeq()
	go b.Sequencer.Run(seqCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Server.Start(b.Config.Server.Addr)
	}()

	slog.Info("Order gateway operational", slog.String("addr", b.Config.Server.Addr))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := b.Server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("API server shutdown", slog.Any("error", err))
	}

	// HTTP handlers are gone; let the sequencer drain what they queued
	stopSeq()
	select {
	case <-b.Sequencer.Done():
	case <-shutdownCtx.Done():
		slog.Warn("Sequencer did not stop in time")
	}

	return runErr
}

// Close releases files and database handles.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Server != nil {
		errs = append(errs, b.Server.Shutdown(context.Background()))
	}
	if b.Log != nil {
		errs = append(errs, b.Log.Close())
	}
	if b.State != nil {
		errs = append(errs, b.State.Close())
	}
	if b.Reader != nil {
		errs = append(errs, b.Reader.Close())
	}
	return errors.Join(errs...)
}
