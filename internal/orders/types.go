package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
)

// RawOrder is order input exactly as the user typed it
type RawOrder struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price,omitempty"`
	ReduceOnly bool   `json:"reduce_only"`
}

// Snapshot is the exchange state a placement decision is made on
type Snapshot struct {
	Catalog     filters.Catalog
	MarketPrice decimal.NullDecimal
	Balance     decimal.Decimal
	Leverage    int
}

// Outcome describes a successfully placed order
type Outcome struct {
	Order        filters.Order
	Snapshot     Snapshot
	Confirmation *binance.OrderConfirmation
}

// Preview is a dry-run evaluation that never reaches the order endpoint
type Preview struct {
	Result      filters.Result
	MarketPrice decimal.NullDecimal
}

// OrderUpdate is emitted once per placement attempt
type OrderUpdate struct {
	EventType     string          `json:"event_type"`
	Symbol        string          `json:"symbol"`
	OrderID       int64           `json:"order_id,omitempty"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Status        string          `json:"status"`
	Side          string          `json:"side"`
	OrderType     string          `json:"order_type"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExecutedQty   decimal.Decimal `json:"executed_qty"`
	UpdateTime    time.Time       `json:"update_time"`
	Reason        string          `json:"reason,omitempty"`
}

// NewOrder checks raw input and builds a candidate order. Checks run in a
// fixed order and the first failure is returned as *MalformedInputError.
func NewOrder(raw RawOrder) (filters.Order, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return filters.Order{}, malformed("symbol", "symbol is required")
	}

	side := strings.ToUpper(strings.TrimSpace(raw.Side))
	if side != filters.SideBuy && side != filters.SideSell {
		return filters.Order{}, malformed("side", fmt.Sprintf("side must be BUY or SELL, got %q", raw.Side))
	}

	orderType := strings.ToUpper(strings.TrimSpace(raw.Type))
	if orderType != filters.TypeMarket && orderType != filters.TypeLimit {
		return filters.Order{}, malformed("type", fmt.Sprintf("type must be MARKET or LIMIT, got %q", raw.Type))
	}

	var price decimal.NullDecimal
	rawPrice := strings.TrimSpace(raw.Price)
	switch orderType {
	case filters.TypeLimit:
		p, err := positiveDecimal("price", rawPrice)
		if err != nil {
			return filters.Order{}, err
		}
		price = decimal.NewNullDecimal(p)
	case filters.TypeMarket:
		if rawPrice != "" {
			return filters.Order{}, malformed("price", "price is not allowed for MARKET orders")
		}
	}

	quantity, err := positiveDecimal("quantity", strings.TrimSpace(raw.Quantity))
	if err != nil {
		return filters.Order{}, err
	}

	return filters.Order{
		Symbol:     symbol,
		Side:       side,
		Type:       orderType,
		Quantity:   quantity,
		Price:      price,
		ReduceOnly: raw.ReduceOnly,
	}, nil
}

func positiveDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, malformed(field, field+" is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, malformed(field, fmt.Sprintf("%s %q is not a number", field, value))
	}
	if !d.IsPositive() {
		return decimal.Zero, malformed(field, field+" must be greater than zero")
	}
	return d, nil
}
