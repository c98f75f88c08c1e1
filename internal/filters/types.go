package filters

import (
	"github.com/shopspring/decimal"
)

// Order sides and types accepted by the futures order endpoint
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
)

// Exchange filter type discriminators
const (
	FilterTypeLotSize     = "LOT_SIZE"
	FilterTypePrice       = "PRICE_FILTER"
	FilterTypeMinNotional = "MIN_NOTIONAL"
	FilterTypeNotional    = "NOTIONAL"
)

// Filter is one exchange-imposed trading rule. The set of implementations is
// closed: LotSizeFilter, PriceFilter, MinNotionalFilter and UnknownFilter.
type Filter interface {
	Type() string
	isFilter()
}

// Catalog is the ordered set of filters in effect for one symbol
type Catalog struct {
	Symbol  string
	Filters []Filter
}

// Order is a candidate order. Price is valid if and only if Type is LIMIT.
type Order struct {
	Symbol     string
	Side       string // BUY or SELL
	Type       string // MARKET or LIMIT
	Quantity   decimal.Decimal
	Price      decimal.NullDecimal
	ReduceOnly bool
}

// LotSizeFilter constrains order quantity
type LotSizeFilter struct {
	MinQty   decimal.Decimal `json:"minQty"`
	MaxQty   decimal.Decimal `json:"maxQty"`
	StepSize decimal.Decimal `json:"stepSize"`
}

// PriceFilter constrains limit price granularity
type PriceFilter struct {
	TickSize decimal.Decimal `json:"tickSize"`
}

// MinNotionalFilter constrains quantity x price
type MinNotionalFilter struct {
	MinNotional decimal.Decimal `json:"notional"`
}

// UnknownFilter keeps a filter kind this client does not interpret
type UnknownFilter struct {
	FilterType string
}

// Result is the outcome of normalizing and validating an order
type Result struct {
	Order      Order
	Violations []string
}

// Accepted reports whether the normalized order passed every filter
func (r Result) Accepted() bool {
	return len(r.Violations) == 0
}

func (f *LotSizeFilter) Type() string { return FilterTypeLotSize }
func (f *LotSizeFilter) isFilter()    {}

func (f *PriceFilter) Type() string { return FilterTypePrice }
func (f *PriceFilter) isFilter()    {}

func (f *MinNotionalFilter) Type() string { return FilterTypeMinNotional }
func (f *MinNotionalFilter) isFilter()    {}

func (f *UnknownFilter) Type() string { return f.FilterType }
func (f *UnknownFilter) isFilter()    {}

// LotSize returns the first lot size filter in the catalog
func (c Catalog) LotSize() (*LotSizeFilter, bool) {
	for _, f := range c.Filters {
		if lf, ok := f.(*LotSizeFilter); ok {
			return lf, true
		}
	}
	return nil, false
}

// Price returns the first price filter in the catalog
func (c Catalog) Price() (*PriceFilter, bool) {
	for _, f := range c.Filters {
		if pf, ok := f.(*PriceFilter); ok {
			return pf, true
		}
	}
	return nil, false
}

// MinNotional returns the first minimum notional filter in the catalog
func (c Catalog) MinNotional() (*MinNotionalFilter, bool) {
	for _, f := range c.Filters {
		if nf, ok := f.(*MinNotionalFilter); ok {
			return nf, true
		}
	}
	return nil, false
}
