package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hftish_go/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	flag.StringVar(&opts.Symbol, "symbol", "", "symbol to trade (overrides config)")
	flag.StringVar(&opts.Symbol, "s", "", "shorthand for -symbol")
	flag.Int64Var(&opts.Quantity, "quantity", 0, "maximum position size in shares (overrides config)")
	flag.Int64Var(&opts.Quantity, "q", 0, "shorthand for -quantity")
	flag.StringVar(&opts.KeyID, "key-id", "", "broker API key id (overrides config and env)")
	flag.StringVar(&opts.SecretKey, "secret-key", "", "broker API secret (overrides config and env)")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, opts); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 4. Run until interrupted
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("Shutdown error", slog.Any("error", err))
		os.Exit(1)
	}
}
