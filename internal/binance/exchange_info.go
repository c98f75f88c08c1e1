package binance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"futuresbot/internal/filters"
	"futuresbot/internal/rest"
)

// CatalogStore is a shared second level cache for symbol catalogs
type CatalogStore interface {
	GetCatalog(ctx context.Context, symbol string) (filters.Catalog, bool, error)
	SetCatalog(ctx context.Context, catalog filters.Catalog) error
}

type exchangeInfoFetcher interface {
	GetExchangeInfo(ctx context.Context) (*rest.ExchangeInfo, error)
}

// ExchangeInfoCache caches parsed symbol catalogs from exchangeInfo
type ExchangeInfoCache struct {
	client   exchangeInfoFetcher
	store    CatalogStore
	cacheTTL time.Duration
	logger   zerolog.Logger

	cacheMu   sync.RWMutex
	catalogs  map[string]filters.Catalog
	symbols   []SymbolSummary
	cacheTime time.Time
}

// NewExchangeInfoCache creates a new exchange info cache. store may be nil.
func NewExchangeInfoCache(client exchangeInfoFetcher, store CatalogStore, cacheTTL time.Duration, logger zerolog.Logger) *ExchangeInfoCache {
	return &ExchangeInfoCache{
		client:   client,
		store:    store,
		cacheTTL: cacheTTL,
		logger:   logger,
		catalogs: make(map[string]filters.Catalog),
	}
}

// Catalog returns the filter catalog of a symbol
func (e *ExchangeInfoCache) Catalog(ctx context.Context, symbol string) (filters.Catalog, error) {
	if catalog, ok := e.cached(symbol); ok {
		return catalog, nil
	}

	if e.store != nil {
		catalog, ok, err := e.store.GetCatalog(ctx, symbol)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Catalog store lookup failed")
		} else if ok {
			e.logger.Debug().Str("symbol", symbol).Msg("Catalog served from shared store")
			return catalog, nil
		}
	}

	if err := e.refresh(ctx); err != nil {
		return filters.Catalog{}, fmt.Errorf("failed to refresh exchange info: %w", err)
	}

	e.cacheMu.RLock()
	catalog, exists := e.catalogs[symbol]
	e.cacheMu.RUnlock()

	if !exists {
		return filters.Catalog{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	if e.store != nil {
		if err := e.store.SetCatalog(ctx, catalog); err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Catalog store write failed")
		}
	}

	return catalog, nil
}

// Symbols returns every listed contract in exchange order
func (e *ExchangeInfoCache) Symbols(ctx context.Context) ([]SymbolSummary, error) {
	e.cacheMu.RLock()
	if e.fresh() {
		symbols := e.symbols
		e.cacheMu.RUnlock()
		return symbols, nil
	}
	e.cacheMu.RUnlock()

	if err := e.refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh exchange info: %w", err)
	}

	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	return e.symbols, nil
}

// Invalidate drops the in-memory copy
func (e *ExchangeInfoCache) Invalidate() {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cacheTime = time.Time{}
}

func (e *ExchangeInfoCache) cached(symbol string) (filters.Catalog, bool) {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()

	if !e.fresh() {
		return filters.Catalog{}, false
	}
	catalog, ok := e.catalogs[symbol]
	return catalog, ok
}

// fresh must be called with cacheMu held
func (e *ExchangeInfoCache) fresh() bool {
	return !e.cacheTime.IsZero() && time.Since(e.cacheTime) < e.cacheTTL
}

// refresh reloads exchangeInfo and rebuilds every catalog
func (e *ExchangeInfoCache) refresh(ctx context.Context) error {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	// Another goroutine may have refreshed while we waited
	if e.fresh() {
		return nil
	}

	e.logger.Debug().Msg("Refreshing exchange info cache")

	info, err := e.client.GetExchangeInfo(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to get futures exchange info")
		return err
	}

	catalogs := make(map[string]filters.Catalog, len(info.Symbols))
	symbols := make([]SymbolSummary, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		catalog, err := filters.ParseCatalog(s.Symbol, s.Filters)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", s.Symbol).Msg("Skipping symbol with malformed filters")
			continue
		}
		catalogs[s.Symbol] = catalog
		symbols = append(symbols, SymbolSummary{
			Symbol:       s.Symbol,
			BaseAsset:    s.BaseAsset,
			QuoteAsset:   s.QuoteAsset,
			ContractType: s.ContractType,
			Status:       s.Status,
		})
	}

	e.catalogs = catalogs
	e.symbols = symbols
	e.cacheTime = time.Now()

	e.logger.Info().
		Int("symbol_count", len(catalogs)).
		Msg("Exchange info cache refreshed")

	return nil
}
