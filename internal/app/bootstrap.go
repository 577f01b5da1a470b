// Package app wires the application together: configuration, logging,
// broker gateway, stream workers, decision engine, and the session
// scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"hftish_go/internal/broker"
	"hftish_go/internal/engine"
	"hftish_go/internal/event"
	"hftish_go/internal/feed"
	"hftish_go/internal/infra"
	"hftish_go/internal/obs"
)

// Options carries command-line overrides applied on top of the config file.
// Zero values leave the file (or default) settings untouched.
type Options struct {
	ConfigPath string
	Symbol     string
	Quantity   int64
	KeyID      string
	SecretKey  string
}

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Gateway   broker.Gateway
	Engine    *engine.Engine
	Scheduler *engine.Scheduler

	market *feed.MarketStream
	orders *feed.OrderStream
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, sets up logging, and wires the gateway,
// streams, engine, and scheduler. ctx bounds broker calls the engine makes
// from stream callbacks.
func (b *Bootstrap) Initialize(ctx context.Context, opts Options) error {
	cfg, err := infra.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	applyOptions(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("🚀 Bootstrapping hftish...",
		slog.String("symbol", cfg.Trading.Symbol),
		slog.Int64("max_quantity", cfg.Trading.MaxQuantity),
		slog.String("mode", cfg.Broker.Mode))

	// The streams deliver into the engine, and the engine subscribes
	// through the streams; the relay breaks the construction cycle.
	relay := &engineRelay{}
	b.market = feed.NewMarketStream(cfg, relay)
	b.orders = feed.NewOrderStream(cfg, relay)

	if cfg.Broker.Mode == infra.BrokerModeLive {
		b.Gateway = broker.NewRestClient(cfg)
	} else {
		paper := broker.NewPaper()
		paper.SetOrderSink(relay)
		b.Gateway = paper
	}

	b.Engine = engine.New(ctx, engine.Config{
		Symbol:      cfg.Trading.Symbol,
		MaxQuantity: cfg.Trading.MaxQuantity,
	}, b.Gateway, b.market, b.orders)
	relay.attach(b.Engine)

	b.Scheduler = engine.NewScheduler(b.Gateway, b.Engine.OpenSession, b.Engine.CloseSession)
	return nil
}

// Run starts the metrics server, stream workers, and scheduler, then blocks
// until ctx is cancelled and tears everything down.
func (b *Bootstrap) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	metricsSrv := &http.Server{Addr: b.Config.Metrics.ListenAddr, Handler: mux}
	go func() {
		slog.Info("✅ Metrics server started", slog.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", slog.Any("error", err))
		}
	}()

	// In paper mode the stream endpoints are optional; the in-process
	// gateway reports order lifecycle events itself.
	streaming := b.Config.Broker.MarketStreamURL != ""
	if streaming {
		b.market.Start(ctx)
		slog.Info("✅ Market data stream started")
	}
	if b.Config.Broker.OrderStreamURL != "" {
		b.orders.Start(ctx)
		slog.Info("✅ Order update stream started")
	}

	b.Scheduler.Start(ctx)
	slog.Info("✨ Watching the order book. Press Ctrl+C to exit.")

	<-ctx.Done()
	slog.Info("👋 Shutting down gracefully...")

	b.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.Engine.CloseSession(shutdownCtx)

	b.market.Stop()
	b.orders.Stop()
	return metricsSrv.Shutdown(shutdownCtx)
}

func applyOptions(cfg *infra.Config, opts Options) {
	if opts.Symbol != "" {
		cfg.Trading.Symbol = opts.Symbol
	}
	if opts.Quantity > 0 {
		cfg.Trading.MaxQuantity = opts.Quantity
	}
	if opts.KeyID != "" {
		cfg.Broker.KeyID = opts.KeyID
	}
	if opts.SecretKey != "" {
		cfg.Broker.SecretKey = opts.SecretKey
	}
}

// engineRelay forwards stream events to the engine once it exists. Events
// arriving before wiring completes are dropped; the workers only start
// after Initialize returns.
type engineRelay struct {
	e atomic.Pointer[engine.Engine]
}

func (r *engineRelay) attach(e *engine.Engine) { r.e.Store(e) }

func (r *engineRelay) OnQuote(q event.Quote) {
	if e := r.e.Load(); e != nil {
		e.OnQuote(q)
	}
}

func (r *engineRelay) OnTrade(t event.Trade) {
	if e := r.e.Load(); e != nil {
		e.OnTrade(t)
	}
}

func (r *engineRelay) OnOrderUpdate(u event.OrderUpdate) {
	if e := r.e.Load(); e != nil {
		e.OnOrderUpdate(u)
	}
}
