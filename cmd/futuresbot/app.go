package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"futuresbot/internal/binance"
	redisc "futuresbot/internal/cache/redis"
	"futuresbot/internal/config"
	"futuresbot/internal/console"
	"futuresbot/internal/journal"
	"futuresbot/internal/logging"
	"futuresbot/internal/orders"
)

// Options are the global flags and standard streams
type Options struct {
	ConfigPath string
	Debug      bool
	In         io.Reader
	Out        io.Writer
}

// App holds the wiring shared by all commands
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	console *console.Console
	client  *binance.Client

	redis    *redisc.Client
	postgres *journal.PostgresJournal
}

// NewApp loads configuration and builds the exchange client. The Redis
// catalog cache is optional: if it cannot be reached the client runs with
// its in-memory cache only.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, opts.Debug)
	if err != nil {
		return nil, err
	}

	redacted := cfg.Redacted()
	logger.Debug().Interface("config", redacted).Str("version", version).Msg("Configuration loaded")

	app := &App{
		cfg:     cfg,
		logger:  logger,
		console: console.New(opts.In, opts.Out),
	}

	var store binance.CatalogStore
	if cfg.Redis.Addr != "" {
		rc, err := redisc.New(ctx, redisc.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis catalog cache unavailable, using memory only")
		} else {
			app.redis = rc
			store = redisc.NewCatalogCache(rc, cfg.Binance.ExchangeInfoCacheTTL)
		}
	}

	client, err := binance.NewFuturesClient(&cfg.Binance, store, logger.Logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create futures client: %w", err)
	}
	app.client = client

	return app, nil
}

// Journal opens the order journal: the log file, plus Postgres when configured
func (a *App) Journal(ctx context.Context) (orders.Journal, error) {
	file, err := journal.NewFileJournal(a.cfg.Audit.LogPath)
	if err != nil {
		return nil, err
	}

	if a.cfg.Audit.DatabaseURL == "" {
		return file, nil
	}

	if a.postgres == nil {
		pg, err := journal.NewPostgresJournal(ctx, a.cfg.Audit.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.postgres = pg
	}
	return journal.NewMultiJournal(file, a.postgres), nil
}

// Manager builds the placement flow for signed commands
func (a *App) Manager(ctx context.Context) (*orders.Manager, error) {
	if err := a.cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	j, err := a.Journal(ctx)
	if err != nil {
		return nil, fmt.Errorf("open order journal: %w", err)
	}

	return orders.NewManager(a.client, j, a.logger.Logger, orders.NewLogEventEmitter(a.logger.Logger)), nil
}

// DashboardURL is where the user can verify an order on the web
func (a *App) DashboardURL(symbol string) string {
	return binance.DashboardURL(symbol, a.cfg.Binance.Testnet)
}

// Close releases connections and the debug diary
func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if err := a.logger.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close debug log:", err)
	}
}
