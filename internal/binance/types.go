package binance

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"futuresbot/internal/filters"
)

var (
	// ErrSymbolNotFound is returned when exchangeInfo does not list the symbol
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrPriceUnavailable is returned when no usable mark price could be fetched
	ErrPriceUnavailable = errors.New("market price unavailable")
)

// OrderRequest is a validated order ready for submission
type OrderRequest struct {
	Symbol        string
	Side          string
	Type          string
	Quantity      decimal.Decimal
	Price         decimal.NullDecimal
	ReduceOnly    bool
	ClientOrderID string
}

// NewOrderRequest builds a request from a normalized order with a fresh
// client order id, so the attempt can be journaled before it is sent.
func NewOrderRequest(order filters.Order) OrderRequest {
	return OrderRequest{
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		Quantity:      order.Quantity,
		Price:         order.Price,
		ReduceOnly:    order.ReduceOnly,
		ClientOrderID: uuid.NewString(),
	}
}

// OrderConfirmation is the exchange acknowledgement of a placed order
type OrderConfirmation struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          string
	Type          string
	Status        string
	Price         decimal.Decimal
	AvgPrice      decimal.Decimal
	OrigQty       decimal.Decimal
	ExecutedQty   decimal.Decimal
	ReduceOnly    bool
}

// SymbolSummary is one row of the contract list
type SymbolSummary struct {
	Symbol       string
	BaseAsset    string
	QuoteAsset   string
	ContractType string
	Status       string
}

// Trading reports whether the contract currently accepts orders
func (s SymbolSummary) Trading() bool {
	return s.Status == "TRADING"
}

// AccountSummary is the futures wallet overview
type AccountSummary struct {
	AvailableBalance decimal.Decimal
	WalletBalance    decimal.Decimal
	MarginBalance    decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	Assets           []AssetBalance
	Positions        []Position
}

// AssetBalance is a non-zero wallet asset
type AssetBalance struct {
	Asset            string
	WalletBalance    decimal.Decimal
	AvailableBalance decimal.Decimal
	UnrealizedPnL    decimal.Decimal
}

// Position is an open position (non-zero amount)
type Position struct {
	Symbol        string
	PositionSide  string
	Amount        decimal.Decimal
	EntryPrice    decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Leverage      int
	Isolated      bool
}
