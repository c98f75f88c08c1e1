package binance

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/filters"
	"futuresbot/internal/rest"
)

type stubFetcher struct {
	calls int32
	err   error
	info  *rest.ExchangeInfo
}

func (s *stubFetcher) GetExchangeInfo(ctx context.Context) (*rest.ExchangeInfo, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

type memoryStore struct {
	mu       sync.Mutex
	catalogs map[string]filters.Catalog
	getErr   error
	sets     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{catalogs: make(map[string]filters.Catalog)}
}

func (m *memoryStore) GetCatalog(ctx context.Context, symbol string) (filters.Catalog, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return filters.Catalog{}, false, m.getErr
	}
	c, ok := m.catalogs[symbol]
	return c, ok, nil
}

func (m *memoryStore) SetCatalog(ctx context.Context, catalog filters.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[catalog.Symbol] = catalog
	m.sets++
	return nil
}

func setupFetcher(t *testing.T) *stubFetcher {
	t.Helper()
	var info rest.ExchangeInfo
	require.NoError(t, json.Unmarshal([]byte(exchangeInfoBody), &info))
	return &stubFetcher{info: &info}
}

func TestExchangeInfoCache_TTL(t *testing.T) {
	t.Run("fresh cache does not refetch", func(t *testing.T) {
		fetcher := setupFetcher(t)
		cache := NewExchangeInfoCache(fetcher, nil, time.Minute, zerolog.Nop())
		ctx := context.Background()

		_, err := cache.Catalog(ctx, "BTCUSDT")
		require.NoError(t, err)
		_, err = cache.Catalog(ctx, "ETHUSDT")
		require.NoError(t, err)
		_, err = cache.Symbols(ctx)
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("expired cache refetches", func(t *testing.T) {
		fetcher := setupFetcher(t)
		cache := NewExchangeInfoCache(fetcher, nil, 10*time.Millisecond, zerolog.Nop())
		ctx := context.Background()

		_, err := cache.Catalog(ctx, "BTCUSDT")
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		_, err = cache.Catalog(ctx, "BTCUSDT")
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("invalidate forces refetch", func(t *testing.T) {
		fetcher := setupFetcher(t)
		cache := NewExchangeInfoCache(fetcher, nil, time.Hour, zerolog.Nop())
		ctx := context.Background()

		_, err := cache.Catalog(ctx, "BTCUSDT")
		require.NoError(t, err)
		cache.Invalidate()
		_, err = cache.Catalog(ctx, "BTCUSDT")
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("concurrent misses share one refresh", func(t *testing.T) {
		fetcher := setupFetcher(t)
		cache := NewExchangeInfoCache(fetcher, nil, time.Minute, zerolog.Nop())

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cache.Catalog(context.Background(), "BTCUSDT")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	})
}

func TestExchangeInfoCache_Errors(t *testing.T) {
	t.Run("fetch error is wrapped", func(t *testing.T) {
		cause := errors.New("connection refused")
		cache := NewExchangeInfoCache(&stubFetcher{err: cause}, nil, time.Minute, zerolog.Nop())

		_, err := cache.Catalog(context.Background(), "BTCUSDT")
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrSymbolNotFound)
	})

	t.Run("malformed symbol is skipped", func(t *testing.T) {
		fetcher := &stubFetcher{info: &rest.ExchangeInfo{Symbols: []rest.SymbolInfo{
			{Symbol: "BADUSDT", Status: "TRADING", Filters: []json.RawMessage{
				json.RawMessage(`{"filterType":"LOT_SIZE","minQty":"x","maxQty":"1","stepSize":"1"}`),
			}},
			{Symbol: "GOODUSDT", Status: "TRADING"},
		}}}
		cache := NewExchangeInfoCache(fetcher, nil, time.Minute, zerolog.Nop())

		_, err := cache.Catalog(context.Background(), "BADUSDT")
		assert.ErrorIs(t, err, ErrSymbolNotFound)

		catalog, err := cache.Catalog(context.Background(), "GOODUSDT")
		require.NoError(t, err)
		assert.Empty(t, catalog.Filters)
	})
}

func TestExchangeInfoCache_Store(t *testing.T) {
	t.Run("store hit skips exchange", func(t *testing.T) {
		fetcher := setupFetcher(t)
		store := newMemoryStore()
		store.catalogs["BTCUSDT"] = filters.Catalog{
			Symbol:  "BTCUSDT",
			Filters: []filters.Filter{&filters.PriceFilter{TickSize: d("0.5")}},
		}
		cache := NewExchangeInfoCache(fetcher, store, time.Minute, zerolog.Nop())

		catalog, err := cache.Catalog(context.Background(), "BTCUSDT")
		require.NoError(t, err)

		pf, ok := catalog.Price()
		require.True(t, ok)
		assert.True(t, pf.TickSize.Equal(d("0.5")))
		assert.Equal(t, int32(0), atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("store miss writes through", func(t *testing.T) {
		fetcher := setupFetcher(t)
		store := newMemoryStore()
		cache := NewExchangeInfoCache(fetcher, store, time.Minute, zerolog.Nop())

		_, err := cache.Catalog(context.Background(), "ETHUSDT")
		require.NoError(t, err)

		assert.Equal(t, 1, store.sets)
		_, ok := store.catalogs["ETHUSDT"]
		assert.True(t, ok)
	})

	t.Run("store failure falls back to exchange", func(t *testing.T) {
		fetcher := setupFetcher(t)
		store := newMemoryStore()
		store.getErr = errors.New("redis down")
		cache := NewExchangeInfoCache(fetcher, store, time.Minute, zerolog.Nop())

		catalog, err := cache.Catalog(context.Background(), "BTCUSDT")
		require.NoError(t, err)
		assert.Len(t, catalog.Filters, 4)
		assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	})
}
