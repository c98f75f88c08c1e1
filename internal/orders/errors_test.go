package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
	"futuresbot/internal/rest"
)

func TestInterpret(t *testing.T) {
	withNotional := filters.Catalog{
		Symbol: "BTCUSDT",
		Filters: []filters.Filter{
			&filters.MinNotionalFilter{MinNotional: decimal.RequireFromString("100")},
		},
	}

	tests := []struct {
		name            string
		code            int
		msg             string
		catalog         filters.Catalog
		wantReason      string
		wantExplanation string
	}{
		{"margin", -2019, "Margin is insufficient.", filters.Catalog{}, "BALANCE", "Insufficient margin"},
		{"notional with catalog", -1013, "Order's notional must be no smaller than 100", withNotional, "NOTIONAL", "Notional too low (min 100 USDT)"},
		{"notional without catalog", -1013, "NOTIONAL too small", filters.Catalog{}, "NOTIONAL", "Notional too low (min unknown USDT)"},
		{"tick", -1013, "Price not increased by tick size.", withNotional, "TICK", "Invalid price tick"},
		{"other filter", -1013, "Filter failure: LOT_SIZE", withNotional, "INVALID", "Order rejected by filter"},
		{"precision", -1111, "Precision is over the maximum defined for this asset.", filters.Catalog{}, "QTY", "Invalid quantity precision"},
		{"bad parameter", -1100, "Illegal characters found in parameter 'quantity'", filters.Catalog{}, "INVALID", "Invalid input format"},
		{"rate limit", -1003, "Too many requests.", filters.Catalog{}, "RATE_LIMIT", "Too many requests"},
		{"bad signature", -1022, "Signature for this request is not valid.", filters.Catalog{}, "AUTH", "Authentication rejected"},
		{"bad key format", -2014, "API-key format invalid.", filters.Catalog{}, "AUTH", "Authentication rejected"},
		{"bad key", -2015, "Invalid API-key, IP, or permissions for action.", filters.Catalog{}, "AUTH", "Authentication rejected"},
		{"unknown", -4164, "Order's notional must be no smaller than 5", withNotional, "REJECT", "Exchange rejected order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.code, tt.msg, tt.catalog)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantExplanation, got.Explanation)
		})
	}
}

func TestInterpret_AgreesWithRestCodes(t *testing.T) {
	for code := -4200; code <= -1000; code++ {
		apiErr := &rest.BinanceError{Code: code}
		got := Interpret(code, "", filters.Catalog{})

		assert.Equal(t, apiErr.IsAuthError(), got.Reason == "AUTH", "code %d", code)
		assert.Equal(t, apiErr.IsRateLimitError(), got.Reason == "RATE_LIMIT", "code %d", code)
		if apiErr.IsOrderError() {
			assert.Contains(t, []string{"BALANCE", "QTY", "INVALID"}, got.Reason, "code %d", code)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("constraint violation lists everything", func(t *testing.T) {
		err := error(&ConstraintViolationError{Violations: []string{"Quantity 0 below min 0.001", "Notional 0 below min 5"}})

		assert.True(t, errors.Is(err, ErrConstraintViolation))
		assert.False(t, errors.Is(err, ErrMalformedInput))
		assert.EqualError(t, err, "order violates exchange filters: Quantity 0 below min 0.001; Notional 0 below min 5")
	})

	t.Run("margin rejection keeps the guard error", func(t *testing.T) {
		guard := &filters.InsufficientMarginError{
			Required:  decimal.RequireFromString("600"),
			Available: decimal.RequireFromString("10"),
		}
		err := fmt.Errorf("attempt: %w", &MarginRejectedError{Err: guard})

		assert.True(t, errors.Is(err, ErrInsufficientMargin))
		var target *filters.InsufficientMarginError
		require.True(t, errors.As(err, &target))
		assert.True(t, target.Required.Equal(decimal.RequireFromString("600")))
		assert.Contains(t, err.Error(), "need 600.00 USDT, have 10.00 USDT")

		unknown := &MarginRejectedError{Err: filters.ErrMarginPriceUnknown}
		assert.True(t, errors.Is(unknown, ErrInsufficientMargin))
		assert.True(t, errors.Is(unknown, filters.ErrMarginPriceUnknown))
	})

	t.Run("exchange rejection", func(t *testing.T) {
		err := &ExchangeRejectedError{
			Code:           -2019,
			Message:        "Margin is insufficient.",
			Interpretation: Interpretation{Reason: "BALANCE", Explanation: "Insufficient margin"},
		}

		assert.True(t, errors.Is(err, ErrExchangeRejected))
		assert.EqualError(t, err, "exchange rejected order: Insufficient margin (code -2019: Margin is insufficient.)")
	})

	t.Run("transport failure unwraps", func(t *testing.T) {
		err := &TransportFailureError{Op: "place order", Err: io.ErrUnexpectedEOF}

		assert.True(t, errors.Is(err, ErrTransportFailure))
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
		assert.EqualError(t, err, "transport failure during place order: unexpected EOF")
	})
}

func TestClassify(t *testing.T) {
	catalog := filters.Catalog{
		Symbol:  "BTCUSDT",
		Filters: []filters.Filter{&filters.MinNotionalFilter{MinNotional: decimal.RequireFromString("5")}},
	}

	t.Run("binance error becomes rejection", func(t *testing.T) {
		apiErr := &rest.BinanceError{Code: -1013, Message: "Order's notional must be no smaller than 5", HTTPStatus: 400}
		err := classify(opPlaceOrder, fmt.Errorf("failed to place futures order: %w", apiErr), catalog)

		var rejected *ExchangeRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, -1013, rejected.Code)
		assert.Equal(t, "Notional too low (min 5 USDT)", rejected.Interpretation.Explanation)
	})

	t.Run("symbol not found passes through", func(t *testing.T) {
		err := classify("fetch filters", fmt.Errorf("%w: FOOUSDT", binance.ErrSymbolNotFound), filters.Catalog{})
		assert.True(t, errors.Is(err, binance.ErrSymbolNotFound))
		assert.False(t, errors.Is(err, ErrTransportFailure))
	})

	t.Run("cancel before submission passes through", func(t *testing.T) {
		err := classify("fetch balance", context.Canceled, filters.Catalog{})
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("timeout during submission is a transport failure", func(t *testing.T) {
		err := classify(opPlaceOrder, context.DeadlineExceeded, catalog)
		assert.True(t, errors.Is(err, ErrTransportFailure))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("cancel while waiting to submit is not a transport failure", func(t *testing.T) {
		notSent := fmt.Errorf("failed to place futures order: PlaceFuturesOrder: %w: rate limit wait: %w", rest.ErrRequestNotSent, context.Canceled)
		err := classify(opPlaceOrder, notSent, catalog)

		assert.False(t, errors.Is(err, ErrTransportFailure))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, ReasonCancelled, FailureReason(err))
	})

	t.Run("local refusal before submission is unexpected", func(t *testing.T) {
		notSent := fmt.Errorf("%w: price is required for LIMIT orders", rest.ErrRequestNotSent)
		err := classify(opPlaceOrder, notSent, catalog)

		assert.False(t, errors.Is(err, ErrTransportFailure))
		assert.Equal(t, ReasonUnexpected, FailureReason(err))
	})

	t.Run("anything else is a transport failure", func(t *testing.T) {
		err := classify(opPlaceOrder, &rest.HTTPError{StatusCode: 502, Body: "bad gateway"}, catalog)
		assert.True(t, errors.Is(err, ErrTransportFailure))
	})
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"malformed", malformed("side", "bad side"), ReasonMalformed},
		{"filters", &ConstraintViolationError{Violations: []string{"x"}}, ReasonFilter},
		{"margin", &MarginRejectedError{Err: filters.ErrMarginPriceUnknown}, ReasonMargin},
		{"exchange", &ExchangeRejectedError{Interpretation: Interpretation{Reason: "TICK"}}, "TICK"},
		{"not found", fmt.Errorf("%w: FOO", binance.ErrSymbolNotFound), ReasonNotFound},
		{"transport", &TransportFailureError{Op: "x", Err: io.EOF}, ReasonTransport},
		{"cancelled", context.Canceled, ReasonCancelled},
		{"other", errors.New("boom"), ReasonUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureReason(tt.err))
		})
	}
}
