package orders

import (
	"fmt"
	"strings"

	"futuresbot/internal/filters"
	"futuresbot/internal/rest"
)

// Interpretation is a short reason code plus a human explanation of an
// exchange error. It is only ever used for reporting.
type Interpretation struct {
	Reason      string `json:"reason"`
	Explanation string `json:"explanation"`
}

// Interpret maps an exchange error code and message to an Interpretation.
// The catalog supplies the minimum notional for notional rejections and may
// be empty.
func Interpret(code int, msg string, catalog filters.Catalog) Interpretation {
	apiErr := &rest.BinanceError{Code: code, Message: msg}

	switch {
	case apiErr.IsOrderError():
		return interpretOrderError(apiErr, catalog)
	case apiErr.IsRateLimitError():
		return Interpretation{"RATE_LIMIT", "Too many requests"}
	case apiErr.IsAuthError():
		return Interpretation{"AUTH", "Authentication rejected"}
	case code == -1100:
		return Interpretation{"INVALID", "Invalid input format"}
	}

	return Interpretation{"REJECT", "Exchange rejected order"}
}

func interpretOrderError(apiErr *rest.BinanceError, catalog filters.Catalog) Interpretation {
	switch apiErr.Code {
	case -2019:
		return Interpretation{"BALANCE", "Insufficient margin"}
	case -1111:
		return Interpretation{"QTY", "Invalid quantity precision"}
	}

	lower := strings.ToLower(apiErr.Message)
	if strings.Contains(lower, "notional") {
		minNotional := "unknown"
		if f, ok := catalog.MinNotional(); ok {
			minNotional = f.MinNotional.String()
		}
		return Interpretation{"NOTIONAL", fmt.Sprintf("Notional too low (min %s USDT)", minNotional)}
	}
	if strings.Contains(lower, "price") {
		return Interpretation{"TICK", "Invalid price tick"}
	}
	return Interpretation{"INVALID", "Order rejected by filter"}
}
