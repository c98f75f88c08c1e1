package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"futuresbot/internal/binance"
	"futuresbot/internal/orders"
)

// OrderValidator evaluates an order without submitting it
type OrderValidator interface {
	Preview(ctx context.Context, raw orders.RawOrder) (*orders.Preview, error)
}

// ValidationRecorder receives dry-run outcomes for metrics
type ValidationRecorder interface {
	RecordValidation(symbol string, accepted bool, violations int)
	RecordExchangeDuration(operation string, err error, duration time.Duration)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	validator OrderValidator
	recorder  ValidationRecorder
	version   string
	startTime time.Time
	logger    zerolog.Logger
}

// NewHandlers creates new handlers instance. recorder may be nil.
func NewHandlers(validator OrderValidator, recorder ValidationRecorder, version string, logger zerolog.Logger) *Handlers {
	return &Handlers{
		validator: validator,
		recorder:  recorder,
		version:   version,
		startTime: time.Now(),
		logger:    logger,
	}
}

// Healthz handles GET /healthz
func (h *Handlers) Healthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: h.version,
			Uptime:  int64(time.Since(h.startTime).Seconds()),
		})
	}
}

// ValidateOrder handles POST /v1/orders/validate
func (h *Handlers) ValidateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("request_id")

		var req ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Debug().Err(err).Str("request_id", requestID).Msg("Failed to decode request body")
			c.JSON(http.StatusBadRequest, NewErrorResponse("INVALID_BODY", "Invalid request body", requestID))
			return
		}

		start := time.Now()
		preview, err := h.validator.Preview(c.Request.Context(), req)
		if h.recorder != nil && !errors.Is(err, orders.ErrMalformedInput) {
			h.recorder.RecordExchangeDuration("preview", err, time.Since(start))
		}

		if err != nil {
			status, code := errorStatus(err)
			if status >= http.StatusInternalServerError {
				h.logger.Error().Err(err).Str("request_id", requestID).Str("symbol", req.Symbol).Msg("Order validation failed")
			}
			c.JSON(status, NewErrorResponse(code, err.Error(), requestID))
			return
		}

		resp := newValidateResponse(preview)
		if h.recorder != nil {
			h.recorder.RecordValidation(resp.Order.Symbol, resp.Accepted, len(resp.Violations))
		}

		h.logger.Debug().
			Str("request_id", requestID).
			Str("symbol", resp.Order.Symbol).
			Bool("accepted", resp.Accepted).
			Strs("violations", resp.Violations).
			Msg("Order validated")

		c.JSON(http.StatusOK, resp)
	}
}

// Metrics serves the Prometheus exposition
func (h *Handlers) Metrics(handler http.Handler) gin.HandlerFunc {
	return gin.WrapH(handler)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, orders.ErrMalformedInput):
		return http.StatusBadRequest, "MALFORMED_INPUT"
	case errors.Is(err, binance.ErrSymbolNotFound):
		return http.StatusNotFound, "SYMBOL_NOT_FOUND"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "EXCHANGE_TIMEOUT"
	case errors.Is(err, orders.ErrExchangeRejected):
		return http.StatusBadGateway, "EXCHANGE_REJECTED"
	}
	return http.StatusBadGateway, "EXCHANGE_UNAVAILABLE"
}
