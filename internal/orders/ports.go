package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
	"futuresbot/internal/journal"
)

// Exchange is the subset of the futures client the placement flow needs
type Exchange interface {
	Catalog(ctx context.Context, symbol string) (filters.Catalog, error)
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	BalanceAndLeverage(ctx context.Context, symbol string) (decimal.Decimal, int, error)
	PlaceOrder(ctx context.Context, order binance.OrderRequest) (*binance.OrderConfirmation, error)
}

// Journal records one entry per placement attempt
type Journal interface {
	Append(ctx context.Context, entry journal.Entry) error
}

// EventEmitter receives an update for every placement attempt
type EventEmitter interface {
	EmitOrderUpdate(ctx context.Context, update *OrderUpdate) error
}
