package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"futuresbot/internal/api"
	"futuresbot/internal/console"
	"futuresbot/internal/metrics"
	"futuresbot/internal/orders"
	"futuresbot/internal/stream"
)

func newFlagSet(app *App, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.console.Writer())
	return fs
}

func runInteractive(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "interactive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manager, err := app.Manager(ctx)
	if err != nil {
		return err
	}

	session := console.NewSession(app.console, app.client, manager, app.DashboardURL, app.logger.Logger)
	return session.Run(ctx)
}

func runPlace(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "place")
	var raw orders.RawOrder
	fs.StringVar(&raw.Symbol, "symbol", "", "contract symbol, e.g. BTCUSDT")
	fs.StringVar(&raw.Side, "side", "", "BUY or SELL")
	fs.StringVar(&raw.Type, "type", "", "MARKET or LIMIT")
	fs.StringVar(&raw.Quantity, "quantity", "", "order quantity")
	fs.StringVar(&raw.Price, "price", "", "limit price (LIMIT only)")
	fs.BoolVar(&raw.ReduceOnly, "reduce-only", false, "only reduce an open position")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manager, err := app.Manager(ctx)
	if err != nil {
		return err
	}

	outcome, err := manager.Place(ctx, raw)
	app.console.PlaceResult(outcome, err, app.DashboardURL(strings.ToUpper(strings.TrimSpace(raw.Symbol))))
	return err
}

func runAccount(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := app.cfg.RequireCredentials(); err != nil {
		return err
	}

	account, err := app.client.Account(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	app.console.AccountSummary(account)
	app.console.Positions(account.Positions)
	return nil
}

func runSymbols(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "symbols")
	limit := fs.Int("limit", console.DefaultSymbolLimit, "rows to show, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	symbols, err := app.client.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	app.console.Symbols(symbols, *limit)
	return nil
}

func runWatch(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "watch")
	symbol := fs.String("symbol", console.DefaultSymbol, "contract symbol")
	count := fs.Int("count", 0, "stop after N updates, 0 to run until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	watcher := stream.NewWatcher(app.cfg.Binance.WSURL, app.logger.With().Str("component", "stream").Logger())
	return watcher.Watch(ctx, strings.ToUpper(*symbol), *count, func(e stream.MarkPriceEvent) error {
		app.console.MarkPriceTick(e)
		return nil
	})
}

func runServe(ctx context.Context, app *App, args []string) error {
	fs := newFlagSet(app, "serve")
	addr := fs.String("addr", "", "listen address host:port (defaults to config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	host, port := app.cfg.Server.Host, app.cfg.Server.Port
	if *addr != "" {
		h, p, err := net.SplitHostPort(*addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", *addr, err)
		}
		if port, err = strconv.Atoi(p); err != nil {
			return fmt.Errorf("invalid --addr port %q", p)
		}
		host = h
	}

	// Dry runs only read public market data and are never journaled.
	manager := orders.NewManager(app.client, nil, app.logger.Logger)
	collector := metrics.NewCollector()

	server, err := api.NewServer(api.ServerConfig{
		Host:         host,
		Port:         port,
		ReadTimeout:  app.cfg.Server.ReadTimeout,
		WriteTimeout: app.cfg.Server.WriteTimeout,
		APIKey:       app.cfg.Server.APIKey,
		Version:      version,
		RateLimit:    app.cfg.Server.RateLimit,
		CORSOrigins:  app.cfg.Server.CORSOrigins,
	}, manager, collector, app.logger.Logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()
	app.console.Printf("Dry-run API listening on %s\n", server.Addr())

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(app))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func shutdownTimeout(app *App) time.Duration {
	if app.cfg.Server.ShutdownTimeout > 0 {
		return app.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
