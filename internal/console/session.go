package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
	"futuresbot/internal/orders"
)

// DefaultSymbol is offered when the user just presses enter
const DefaultSymbol = "BTCUSDT"

// Market is the exchange data the session displays
type Market interface {
	Account(ctx context.Context) (*binance.AccountSummary, error)
	Symbols(ctx context.Context) ([]binance.SymbolSummary, error)
	Catalog(ctx context.Context, symbol string) (filters.Catalog, error)
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Placer runs the order placement flow
type Placer interface {
	Place(ctx context.Context, raw orders.RawOrder) (*orders.Outcome, error)
}

// Session is one guided interactive order
type Session struct {
	console      *Console
	market       Market
	placer       Placer
	dashboardURL func(symbol string) string
	logger       zerolog.Logger
}

// NewSession wires an interactive session
func NewSession(c *Console, market Market, placer Placer, dashboardURL func(string) string, logger zerolog.Logger) *Session {
	return &Session{
		console:      c,
		market:       market,
		placer:       placer,
		dashboardURL: dashboardURL,
		logger:       logger.With().Str("component", "session").Logger(),
	}
}

// Run walks the user through one order. The returned error is the placement
// failure, if any, after it has been shown; setup and input errors abort
// before anything is submitted.
func (s *Session) Run(ctx context.Context) error {
	if err := s.showAccount(ctx); err != nil {
		return err
	}

	symbols, err := s.market.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	s.console.Symbols(symbols, DefaultSymbolLimit)

	symbol, err := s.console.Prompt(ctx, "Symbol", DefaultSymbol)
	if err != nil {
		return err
	}
	symbol = strings.ToUpper(symbol)

	catalog, err := s.market.Catalog(ctx, symbol)
	if err != nil {
		return fmt.Errorf("load filters for %s: %w", symbol, err)
	}

	var markPrice decimal.NullDecimal
	if price, err := s.market.MarkPrice(ctx, symbol); err == nil {
		markPrice = decimal.NewNullDecimal(price)
	} else {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Mark price unavailable")
	}

	s.console.Constraints(catalog)
	s.console.MarkPrice(markPrice)

	proceed, err := s.console.Confirm(ctx, "Open order inputs?", true)
	if err != nil || !proceed {
		return err
	}

	raw, err := s.readOrder(ctx, symbol)
	if err != nil {
		return err
	}

	outcome, placeErr := s.placer.Place(ctx, raw)
	s.console.PlaceResult(outcome, placeErr, s.dashboardURL(symbol))

	if errors.Is(placeErr, context.Canceled) {
		return placeErr
	}
	if err := s.showAccount(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to refresh account summary")
	}
	return placeErr
}

func (s *Session) readOrder(ctx context.Context, symbol string) (orders.RawOrder, error) {
	raw := orders.RawOrder{Symbol: symbol}

	side, err := s.console.Prompt(ctx, "Side (BUY/SELL)", "")
	if err != nil {
		return raw, err
	}
	raw.Side = strings.ToUpper(side)

	if raw.Side == filters.SideSell {
		raw.ReduceOnly, err = s.console.Confirm(ctx, "Reduce Only?", false)
		if err != nil {
			return raw, err
		}
	}

	orderType, err := s.console.Prompt(ctx, "Type (MARKET/LIMIT)", "")
	if err != nil {
		return raw, err
	}
	raw.Type = strings.ToUpper(orderType)

	if raw.Type == filters.TypeLimit {
		if raw.Price, err = s.console.Prompt(ctx, "Price", ""); err != nil {
			return raw, err
		}
	}

	raw.Quantity, err = s.console.Prompt(ctx, "Quantity", "")
	return raw, err
}

func (s *Session) showAccount(ctx context.Context) error {
	account, err := s.market.Account(ctx)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	s.console.AccountSummary(account)
	return nil
}
