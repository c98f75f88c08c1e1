package api

import (
	"time"

	"futuresbot/internal/filters"
	"futuresbot/internal/orders"
)

// ValidateRequest is the body of POST /v1/orders/validate
type ValidateRequest = orders.RawOrder

// OrderView is a normalized order as returned to API clients
type OrderView struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price,omitempty"`
	ReduceOnly bool   `json:"reduce_only"`
}

// ValidateResponse is the dry-run verdict for an order
type ValidateResponse struct {
	Accepted    bool      `json:"accepted"`
	Order       OrderView `json:"order"`
	Violations  []string  `json:"violations"`
	MarketPrice *string   `json:"market_price"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(errorCode, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// HealthResponse represents the health status of the service
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime"`
}

func newOrderView(order filters.Order) OrderView {
	view := OrderView{
		Symbol:     order.Symbol,
		Side:       order.Side,
		Type:       order.Type,
		Quantity:   order.Quantity.String(),
		ReduceOnly: order.ReduceOnly,
	}
	if order.Price.Valid {
		view.Price = order.Price.Decimal.String()
	}
	return view
}

func newValidateResponse(preview *orders.Preview) ValidateResponse {
	resp := ValidateResponse{
		Accepted:   preview.Result.Accepted(),
		Order:      newOrderView(preview.Result.Order),
		Violations: preview.Result.Violations,
	}
	if resp.Violations == nil {
		resp.Violations = []string{}
	}
	if preview.MarketPrice.Valid {
		price := preview.MarketPrice.Decimal.String()
		resp.MarketPrice = &price
	}
	return resp
}
