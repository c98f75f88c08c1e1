package filters

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MarketPriceUnknown is reported when a notional check has no price to use
const MarketPriceUnknown = "market price unknown — cannot validate notional"

// Normalize rounds quantity and price down to the catalog's step and tick
// sizes. The input order is not modified.
func Normalize(order Order, catalog Catalog) Order {
	normalized := order

	for _, filter := range catalog.Filters {
		switch f := filter.(type) {
		case *LotSizeFilter:
			normalized.Quantity = RoundDown(normalized.Quantity, f.StepSize)

		case *PriceFilter:
			if normalized.Price.Valid {
				normalized.Price = decimal.NewNullDecimal(RoundDown(normalized.Price.Decimal, f.TickSize))
			}
		}
	}

	return normalized
}

// Validate checks the order against every filter in the catalog and returns
// all violations in filter order. marketPrice is used for the notional check
// of orders without a price.
func Validate(order Order, catalog Catalog, marketPrice decimal.NullDecimal) []string {
	var violations []string

	for _, filter := range catalog.Filters {
		switch f := filter.(type) {
		case *LotSizeFilter:
			violations = append(violations, f.check(order.Quantity)...)

		case *PriceFilter:
			if order.Price.Valid {
				violations = append(violations, f.check(order.Price.Decimal)...)
			}

		case *MinNotionalFilter:
			price, ok := EffectivePrice(order, marketPrice)
			if !ok {
				violations = append(violations, MarketPriceUnknown)
				continue
			}
			violations = append(violations, f.check(order.Quantity.Mul(price))...)
		}
	}

	return violations
}

// Evaluate normalizes the order and validates the normalized result
func Evaluate(order Order, catalog Catalog, marketPrice decimal.NullDecimal) Result {
	normalized := Normalize(order, catalog)
	return Result{
		Order:      normalized,
		Violations: Validate(normalized, catalog, marketPrice),
	}
}

// EffectivePrice is the limit price for LIMIT orders and the market price
// otherwise
func EffectivePrice(order Order, marketPrice decimal.NullDecimal) (decimal.Decimal, bool) {
	if order.Type == TypeLimit && order.Price.Valid {
		return order.Price.Decimal, true
	}
	if order.Type != TypeLimit && marketPrice.Valid {
		return marketPrice.Decimal, true
	}
	return decimal.Zero, false
}

// RoundDown truncates value toward zero to a multiple of step. A non-positive
// step returns value unchanged.
func RoundDown(value, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return value
	}
	return value.Sub(value.Mod(step))
}

func (f *LotSizeFilter) check(quantity decimal.Decimal) []string {
	var violations []string

	if quantity.LessThan(f.MinQty) {
		violations = append(violations, fmt.Sprintf("Quantity %s below min %s", quantity, f.MinQty))
	}
	if !quantity.IsPositive() && !quantity.LessThan(f.MinQty) {
		violations = append(violations, fmt.Sprintf("Quantity %s below step size %s", quantity, f.StepSize))
	}
	if quantity.GreaterThan(f.MaxQty) {
		violations = append(violations, fmt.Sprintf("Quantity %s above max %s", quantity, f.MaxQty))
	}
	if f.StepSize.IsPositive() && !quantity.Mod(f.StepSize).IsZero() {
		violations = append(violations, fmt.Sprintf("Quantity %s must follow step size %s", quantity, f.StepSize))
	}

	return violations
}

// A limit price that rounds down to zero is reported against the tick size.
func (f *PriceFilter) check(price decimal.Decimal) []string {
	if !price.IsPositive() {
		return []string{fmt.Sprintf("Price %s below tick size %s", price, f.TickSize)}
	}
	if f.TickSize.IsPositive() && !price.Mod(f.TickSize).IsZero() {
		return []string{fmt.Sprintf("Price %s must follow tick size %s", price, f.TickSize)}
	}
	return nil
}

func (f *MinNotionalFilter) check(notional decimal.Decimal) []string {
	if notional.LessThan(f.MinNotional) {
		return []string{fmt.Sprintf("Notional %s below min %s", notional, f.MinNotional)}
	}
	return nil
}
