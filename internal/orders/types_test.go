package orders

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/filters"
)

func TestNewOrder(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		order, err := NewOrder(RawOrder{
			Symbol:   " btcusdt ",
			Side:     "buy",
			Type:     "Limit",
			Quantity: "0.01234",
			Price:    " 50000.07 ",
		})
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", order.Symbol)
		assert.Equal(t, filters.SideBuy, order.Side)
		assert.Equal(t, filters.TypeLimit, order.Type)
		assert.True(t, order.Quantity.Equal(decimal.RequireFromString("0.01234")))
		require.True(t, order.Price.Valid)
		assert.True(t, order.Price.Decimal.Equal(decimal.RequireFromString("50000.07")))
		assert.False(t, order.ReduceOnly)
	})

	t.Run("market order has no price", func(t *testing.T) {
		order, err := NewOrder(RawOrder{Symbol: "ETHUSDT", Side: "SELL", Type: "MARKET", Quantity: "1", ReduceOnly: true})
		require.NoError(t, err)

		assert.False(t, order.Price.Valid)
		assert.True(t, order.ReduceOnly)
	})

	tests := []struct {
		name      string
		raw       RawOrder
		wantField string
		wantErr   string
	}{
		{
			name:      "empty symbol",
			raw:       RawOrder{Symbol: "  ", Side: "BUY", Type: "MARKET", Quantity: "1"},
			wantField: "symbol",
			wantErr:   "malformed input: symbol is required",
		},
		{
			name:      "bad side",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "HOLD", Type: "MARKET", Quantity: "1"},
			wantField: "side",
			wantErr:   `malformed input: side must be BUY or SELL, got "HOLD"`,
		},
		{
			name:      "bad type",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "STOP", Quantity: "1"},
			wantField: "type",
			wantErr:   `malformed input: type must be MARKET or LIMIT, got "STOP"`,
		},
		{
			name:      "limit without price",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Quantity: "1"},
			wantField: "price",
			wantErr:   "malformed input: price is required",
		},
		{
			name:      "limit with text price",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Quantity: "1", Price: "cheap"},
			wantField: "price",
			wantErr:   `malformed input: price "cheap" is not a number`,
		},
		{
			name:      "limit with zero price",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Quantity: "1", Price: "0"},
			wantField: "price",
			wantErr:   "malformed input: price must be greater than zero",
		},
		{
			name:      "market with price",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "MARKET", Quantity: "1", Price: "50000"},
			wantField: "price",
			wantErr:   "malformed input: price is not allowed for MARKET orders",
		},
		{
			name:      "missing quantity",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "MARKET"},
			wantField: "quantity",
			wantErr:   "malformed input: quantity is required",
		},
		{
			name:      "negative quantity",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "SELL", Type: "MARKET", Quantity: "-0.5"},
			wantField: "quantity",
			wantErr:   "malformed input: quantity must be greater than zero",
		},
		{
			name:      "first failure wins",
			raw:       RawOrder{Symbol: "BTCUSDT", Side: "SIDEWAYS", Type: "STOP", Quantity: "-1"},
			wantField: "side",
			wantErr:   `malformed input: side must be BUY or SELL, got "SIDEWAYS"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.raw)
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
			assert.True(t, errors.Is(err, ErrMalformedInput))

			var malformedErr *MalformedInputError
			require.True(t, errors.As(err, &malformedErr))
			assert.Equal(t, tt.wantField, malformedErr.Field)
		})
	}
}
