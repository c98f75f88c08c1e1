package filters

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMarginPriceUnknown means the required margin of a market order could
// not be computed because no market price was available
var ErrMarginPriceUnknown = errors.New("market price unknown, cannot compute required margin")

// InsufficientMarginError reports the computed requirement and what is available
type InsufficientMarginError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientMarginError) Error() string {
	return fmt.Sprintf("insufficient margin: need %s USDT, have %s USDT",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// MarginInput is the already-fetched state the margin guard works on
type MarginInput struct {
	Order       Order
	MarketPrice decimal.NullDecimal
	Balance     decimal.Decimal
	Leverage    int
}

// RequiredMargin is quantity x effective price / leverage
func RequiredMargin(in MarginInput) (decimal.Decimal, bool) {
	price, ok := EffectivePrice(in.Order, in.MarketPrice)
	if !ok {
		return decimal.Zero, false
	}

	leverage := in.Leverage
	if leverage < 1 {
		leverage = 1
	}

	return in.Order.Quantity.Mul(price).Div(decimal.NewFromInt(int64(leverage))), true
}

// CheckMargin rejects orders whose required margin exceeds the available
// balance. Reduce-only orders are never rejected here.
func CheckMargin(in MarginInput) error {
	if in.Order.ReduceOnly {
		return nil
	}

	required, ok := RequiredMargin(in)
	if !ok {
		return ErrMarginPriceUnknown
	}

	if required.GreaterThan(in.Balance) {
		return &InsufficientMarginError{Required: required, Available: in.Balance}
	}

	return nil
}
