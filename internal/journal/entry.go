// Package journal records one line per order attempt.
package journal

import (
	"context"
	"strings"
	"time"
)

// Status is the outcome of an order attempt
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
)

const timeLayout = "2006-01-02 15:04:05"

// Entry is one order attempt. Quantity and Price hold the text that was
// submitted, or the raw user input when the order never got that far.
type Entry struct {
	Time          time.Time
	Symbol        string
	Side          string
	Type          string
	Quantity      string
	Price         string
	Status        Status
	Balance       string
	Reason        string
	ClientOrderID string
	OrderID       int64
}

// Sink appends entries somewhere durable
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Line renders the entry in the orders.log format:
//
//	2024-05-01 12:00:00 | BTCUSDT | BUY | LIMIT | qty=0.012 | price=50000 | FAIL | bal=10 | BALANCE
func (e Entry) Line() string {
	var b strings.Builder

	b.WriteString(e.Time.UTC().Format(timeLayout))
	for _, field := range []string{e.Symbol, e.Side, e.Type, "qty=" + e.Quantity} {
		b.WriteString(" | ")
		b.WriteString(field)
	}
	if e.Type == "LIMIT" {
		b.WriteString(" | price=")
		b.WriteString(e.Price)
	}

	b.WriteString(" | ")
	b.WriteString(string(e.Status))

	if e.Balance != "" {
		b.WriteString(" | bal=")
		b.WriteString(e.Balance)
	}
	if e.Status == StatusFail && e.Reason != "" {
		b.WriteString(" | ")
		b.WriteString(strings.ToUpper(e.Reason))
	}

	return b.String()
}
