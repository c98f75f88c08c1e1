package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
	"futuresbot/internal/orders"
)

// MockOrderValidator is a mock implementation of OrderValidator
type MockOrderValidator struct {
	mock.Mock
}

func (m *MockOrderValidator) Preview(ctx context.Context, raw orders.RawOrder) (*orders.Preview, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Preview), args.Error(1)
}

// MockRecorder is a mock implementation of ValidationRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordValidation(symbol string, accepted bool, violations int) {
	m.Called(symbol, accepted, violations)
}

func (m *MockRecorder) RecordExchangeDuration(operation string, err error, duration time.Duration) {
	m.Called(operation, err, duration)
}

func setupTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/healthz", h.Healthz())
	router.POST("/v1/orders/validate", h.ValidateOrder())
	return router
}

func postJSON(router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func acceptedPreview() *orders.Preview {
	return &orders.Preview{
		Result: filters.Result{
			Order: filters.Order{
				Symbol:   "BTCUSDT",
				Side:     filters.SideBuy,
				Type:     filters.TypeLimit,
				Quantity: d("0.012"),
				Price:    decimal.NewNullDecimal(d("50000.1")),
			},
		},
		MarketPrice: decimal.NewNullDecimal(d("50010.5")),
	}
}

func TestHandlers_Healthz(t *testing.T) {
	h := NewHandlers(new(MockOrderValidator), nil, "1.2.3", zerolog.Nop())
	router := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
}

func TestHandlers_ValidateOrder_Accepted(t *testing.T) {
	validator := new(MockOrderValidator)
	recorder := new(MockRecorder)
	h := NewHandlers(validator, recorder, "test", zerolog.Nop())
	router := setupTestRouter(h)

	raw := orders.RawOrder{Symbol: "btcusdt", Side: "buy", Type: "limit", Quantity: "0.0123", Price: "50000.17"}
	validator.On("Preview", mock.Anything, raw).Return(acceptedPreview(), nil)
	recorder.On("RecordExchangeDuration", "preview", nil, mock.AnythingOfType("time.Duration")).Return()
	recorder.On("RecordValidation", "BTCUSDT", true, 0).Return()

	w := postJSON(router, "/v1/orders/validate", raw)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.Equal(t, OrderView{
		Symbol:   "BTCUSDT",
		Side:     "BUY",
		Type:     "LIMIT",
		Quantity: "0.012",
		Price:    "50000.1",
	}, resp.Order)
	assert.Empty(t, resp.Violations)
	require.NotNil(t, resp.MarketPrice)
	assert.Equal(t, "50010.5", *resp.MarketPrice)

	// violations serialize as an empty list, never null
	assert.Contains(t, w.Body.String(), `"violations":[]`)

	validator.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestHandlers_ValidateOrder_Rejected(t *testing.T) {
	validator := new(MockOrderValidator)
	h := NewHandlers(validator, nil, "test", zerolog.Nop())
	router := setupTestRouter(h)

	preview := &orders.Preview{
		Result: filters.Result{
			Order: filters.Order{
				Symbol:   "BTCUSDT",
				Side:     filters.SideSell,
				Type:     filters.TypeMarket,
				Quantity: d("0"),
			},
			Violations: []string{"Quantity 0 below min 0.001", "Notional 0 below min 5"},
		},
	}
	validator.On("Preview", mock.Anything, mock.AnythingOfType("orders.RawOrder")).Return(preview, nil)

	w := postJSON(router, "/v1/orders/validate", map[string]string{
		"symbol": "BTCUSDT", "side": "SELL", "type": "MARKET", "quantity": "0.0001",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted)
	assert.Equal(t, preview.Result.Violations, resp.Violations)
	assert.Nil(t, resp.MarketPrice)
	assert.Empty(t, resp.Order.Price)
	assert.Contains(t, w.Body.String(), `"market_price":null`)

	validator.AssertExpectations(t)
}

func TestHandlers_ValidateOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed input",
			err:        &orders.MalformedInputError{Field: "side", Reason: `side must be BUY or SELL, got "HOLD"`},
			wantStatus: http.StatusBadRequest,
			wantCode:   "MALFORMED_INPUT",
		},
		{
			name:       "unknown symbol",
			err:        fmt.Errorf("catalog: %w", binance.ErrSymbolNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "SYMBOL_NOT_FOUND",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "EXCHANGE_TIMEOUT",
		},
		{
			name:       "exchange rejected",
			err:        &orders.ExchangeRejectedError{Code: -2015, Message: "Invalid API-key"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "EXCHANGE_REJECTED",
		},
		{
			name:       "transport failure",
			err:        &orders.TransportFailureError{Op: "catalog", Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "EXCHANGE_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockOrderValidator)
			h := NewHandlers(validator, nil, "test", zerolog.Nop())
			router := setupTestRouter(h)

			validator.On("Preview", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postJSON(router, "/v1/orders/validate", orders.RawOrder{Symbol: "BTCUSDT", Side: "BUY", Type: "MARKET", Quantity: "1"})

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.Equal(t, tt.err.Error(), resp.Message)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestHandlers_ValidateOrder_MalformedSkipsExchangeTiming(t *testing.T) {
	validator := new(MockOrderValidator)
	recorder := new(MockRecorder)
	h := NewHandlers(validator, recorder, "test", zerolog.Nop())
	router := setupTestRouter(h)

	validator.On("Preview", mock.Anything, mock.Anything).
		Return(nil, &orders.MalformedInputError{Field: "symbol", Reason: "symbol is required"})

	w := postJSON(router, "/v1/orders/validate", orders.RawOrder{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	recorder.AssertNotCalled(t, "RecordExchangeDuration", mock.Anything, mock.Anything, mock.Anything)
	recorder.AssertNotCalled(t, "RecordValidation", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlers_ValidateOrder_InvalidBody(t *testing.T) {
	validator := new(MockOrderValidator)
	h := NewHandlers(validator, nil, "test", zerolog.Nop())
	router := setupTestRouter(h)

	w := postJSON(router, "/v1/orders/validate", `{"symbol":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_BODY", resp.Error)
	validator.AssertNotCalled(t, "Preview", mock.Anything, mock.Anything)
}
