package console

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
	"futuresbot/internal/orders"
	"futuresbot/internal/stream"
)

// DefaultSymbolLimit is how many contracts the symbols table shows
const DefaultSymbolLimit = 15

var rule = strings.Repeat("=", 60)

// Constraints is the human summary of a symbol's filters. Absent filters
// leave the field empty.
type Constraints struct {
	MinQty      string
	StepSize    string
	TickSize    string
	MinNotional string
}

// SummarizeConstraints extracts the values a trader needs from a catalog
func SummarizeConstraints(catalog filters.Catalog) Constraints {
	var c Constraints
	if lot, ok := catalog.LotSize(); ok {
		c.MinQty = lot.MinQty.String()
		c.StepSize = lot.StepSize.String()
	}
	if price, ok := catalog.Price(); ok {
		c.TickSize = price.TickSize.String()
	}
	if notional, ok := catalog.MinNotional(); ok {
		c.MinNotional = notional.MinNotional.String()
	}
	return c
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// AccountSummary prints balances and non-zero assets
func (c *Console) AccountSummary(account *binance.AccountSummary) {
	c.Println()
	c.Println(c.paint(ansiBold+ansiCyan, "ACCOUNT SUMMARY"))
	c.Println(rule)
	c.Printf("Available Balance: %s USDT\n", account.AvailableBalance)
	c.Printf("Total Wallet Balance: %s USDT\n", account.WalletBalance)
	c.Printf("Unrealized PnL: %s USDT\n", account.UnrealizedPnL)

	c.Println()
	c.Println(c.paint(ansiBold, "Assets:"))
	if len(account.Assets) == 0 {
		c.Println("(none)")
	}
	for _, a := range account.Assets {
		c.Printf("%s | Wallet: %s | Unrealized PnL: %s\n", a.Asset, a.WalletBalance, a.UnrealizedPnL)
	}
	c.Println(rule)
}

// Positions prints open positions as a table
func (c *Console) Positions(positions []binance.Position) {
	c.Println()
	c.Println(c.paint(ansiBold, "Open Positions:"))
	if len(positions) == 0 {
		c.Println("(none)")
		return
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSIDE\tAMOUNT\tENTRY\tUNREALIZED PNL\tLEVERAGE\tMARGIN")
	for _, p := range positions {
		margin := "cross"
		if p.Isolated {
			margin = "isolated"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dx\t%s\n",
			p.Symbol, p.PositionSide, p.Amount, p.EntryPrice, p.UnrealizedPnL, p.Leverage, margin)
	}
	w.Flush()
}

// Symbols prints up to limit TRADING contracts. A limit <= 0 shows all.
func (c *Console) Symbols(symbols []binance.SymbolSummary, limit int) {
	c.Println()
	c.Println(c.paint(ansiBold, "Live Trading Symbols"))

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tBASE\tQUOTE\tCONTRACT")
	shown := 0
	for _, s := range symbols {
		if !s.Trading() {
			continue
		}
		if limit > 0 && shown == limit {
			break
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Symbol, s.BaseAsset, s.QuoteAsset, s.ContractType)
		shown++
	}
	w.Flush()
}

// Constraints prints the trading constraints summary
func (c *Console) Constraints(catalog filters.Catalog) {
	s := SummarizeConstraints(catalog)
	c.Println()
	c.Println(c.paint(ansiBold+ansiYellow, "Trading Constraints:"))
	c.Printf("Min Qty: %s | Step: %s\n", orDash(s.MinQty), orDash(s.StepSize))
	c.Printf("Tick: %s | Min Notional: %s\n", orDash(s.TickSize), orDash(s.MinNotional))
}

// MarkPrice prints the current mark price, or that it is unknown
func (c *Console) MarkPrice(price decimal.NullDecimal) {
	if !price.Valid {
		c.Println(c.paint(ansiYellow, "Mark Price: unavailable"))
		return
	}
	c.Println(c.paint(ansiGreen, "Mark Price: "+price.Decimal.String()))
}

// MarkPriceTick prints one streamed mark price update
func (c *Console) MarkPriceTick(e stream.MarkPriceEvent) {
	c.Printf("%s  %s  mark=%s  index=%s  funding=%s  next=%s\n",
		e.Time().UTC().Format("15:04:05"),
		e.Symbol,
		e.MarkPrice,
		e.IndexPrice,
		e.FundingRate,
		e.NextFunding().UTC().Format("15:04"),
	)
}

// PlaceResult prints the outcome of an attempt and where to verify it
func (c *Console) PlaceResult(outcome *orders.Outcome, err error, dashboardURL string) {
	c.Println()
	if err != nil {
		c.Println(c.paint(ansiBold+ansiRed, "TRADE FAILED: "+failureHeadline(err)))

		var violation *orders.ConstraintViolationError
		if errors.As(err, &violation) {
			for _, v := range violation.Violations {
				c.Println(c.paint(ansiRed, "- "+v))
			}
		}
		var rejected *orders.ExchangeRejectedError
		if errors.As(err, &rejected) {
			c.Printf("Reason: %s (%s)\n", rejected.Interpretation.Reason, rejected.Interpretation.Explanation)
		}

		c.Printf("%s %s\n", c.paint(ansiYellow, "Check on Dashboard:"), dashboardURL)
		return
	}

	conf := outcome.Confirmation
	c.Println(c.paint(ansiBold+ansiGreen, fmt.Sprintf("SUCCESS! Order ID: %d", conf.OrderID)))
	c.Printf("Status: %s | Executed: %s / %s", conf.Status, conf.ExecutedQty, outcome.Order.Quantity)
	if conf.AvgPrice.IsPositive() {
		c.Printf(" | Avg Price: %s", conf.AvgPrice)
	}
	c.Println()
	c.Printf("Client Order ID: %s\n", conf.ClientOrderID)
	c.Printf("%s %s\n", c.paint(ansiCyan, "Verify on Dashboard:"), dashboardURL)
}

func failureHeadline(err error) string {
	var violation *orders.ConstraintViolationError
	if errors.As(err, &violation) {
		return "order violates exchange filters"
	}
	var margin *filters.InsufficientMarginError
	if errors.As(err, &margin) {
		return strings.ToUpper(margin.Error())
	}
	return err.Error()
}
