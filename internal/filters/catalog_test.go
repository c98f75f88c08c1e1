package filters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const btcFuturesFilters = `[
	{"minPrice":"556.80","maxPrice":"4529764","filterType":"PRICE_FILTER","tickSize":"0.10"},
	{"stepSize":"0.001","filterType":"LOT_SIZE","maxQty":"1000","minQty":"0.001"},
	{"stepSize":"0.001","filterType":"MARKET_LOT_SIZE","maxQty":"120","minQty":"0.001"},
	{"limit":200,"filterType":"MAX_NUM_ORDERS"},
	{"notional":"100","filterType":"MIN_NOTIONAL"},
	{"multiplierDown":"0.9500","multiplierUp":"1.0500","multiplierDecimal":"4","filterType":"PERCENT_PRICE"}
]`

func rawFilters(t *testing.T, s string) []json.RawMessage {
	t.Helper()
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestParseCatalog(t *testing.T) {
	t.Run("parses known filters and keeps unknown ones in order", func(t *testing.T) {
		catalog, err := ParseCatalog("BTCUSDT", rawFilters(t, btcFuturesFilters))
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", catalog.Symbol)
		require.Len(t, catalog.Filters, 6)

		types := make([]string, len(catalog.Filters))
		for i, f := range catalog.Filters {
			types[i] = f.Type()
		}
		assert.Equal(t, []string{
			"PRICE_FILTER", "LOT_SIZE", "MARKET_LOT_SIZE", "MAX_NUM_ORDERS", "MIN_NOTIONAL", "PERCENT_PRICE",
		}, types)

		pf, ok := catalog.Price()
		require.True(t, ok)
		assert.True(t, pf.TickSize.Equal(d("0.1")))

		lf, ok := catalog.LotSize()
		require.True(t, ok)
		assert.True(t, lf.MinQty.Equal(d("0.001")))
		assert.True(t, lf.MaxQty.Equal(d("1000")))
		assert.True(t, lf.StepSize.Equal(d("0.001")))

		nf, ok := catalog.MinNotional()
		require.True(t, ok)
		assert.True(t, nf.MinNotional.Equal(d("100")))
	})

	t.Run("spot style NOTIONAL with minNotional field", func(t *testing.T) {
		catalog, err := ParseCatalog("ETHUSDT", rawFilters(t, `[{"filterType":"NOTIONAL","minNotional":"5.00000000"}]`))
		require.NoError(t, err)

		nf, ok := catalog.MinNotional()
		require.True(t, ok)
		assert.True(t, nf.MinNotional.Equal(d("5")))
	})

	t.Run("rejects malformed decimals", func(t *testing.T) {
		_, err := ParseCatalog("BTCUSDT", rawFilters(t, `[{"filterType":"LOT_SIZE","minQty":"abc","maxQty":"1","stepSize":"0.1"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid minQty")
	})

	t.Run("rejects missing fields of known filters", func(t *testing.T) {
		_, err := ParseCatalog("BTCUSDT", rawFilters(t, `[{"filterType":"PRICE_FILTER"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing tickSize")
	})

	t.Run("empty filter list", func(t *testing.T) {
		catalog, err := ParseCatalog("BTCUSDT", nil)
		require.NoError(t, err)
		assert.Empty(t, catalog.Filters)
	})
}

func TestCatalog_JSON(t *testing.T) {
	original, err := ParseCatalog("BTCUSDT", rawFilters(t, btcFuturesFilters))
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Catalog
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Symbol, decoded.Symbol)
	require.Len(t, decoded.Filters, len(original.Filters))

	order := Order{Type: TypeLimit, Quantity: d("0.0123"), Price: price("60000.05")}
	assert.Equal(t,
		Evaluate(order, original, price("60000")).Violations,
		Evaluate(order, decoded, price("60000")).Violations)
	assert.Equal(t, "PERCENT_PRICE", decoded.Filters[5].Type())
}
