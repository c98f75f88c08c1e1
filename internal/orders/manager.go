package orders

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"futuresbot/internal/binance"
	"futuresbot/internal/filters"
	"futuresbot/internal/journal"
	"futuresbot/internal/rest"
)

// Order update statuses
const (
	StatusPlaced = "PLACED"
	StatusFailed = "FAILED"

	eventTypeAttempt = "order_attempt.v1"
	opPlaceOrder     = "place order"
)

// Manager runs the placement flow: build the order, fetch a snapshot,
// normalize and validate, check margin, submit once, journal the attempt.
type Manager struct {
	exchange Exchange
	journal  Journal
	emitters []EventEmitter
	logger   zerolog.Logger
	now      func() time.Time
}

// NewManager creates a new order manager. journal may be nil.
func NewManager(exchange Exchange, journal Journal, logger zerolog.Logger, emitters ...EventEmitter) *Manager {
	return &Manager{
		exchange: exchange,
		journal:  journal,
		emitters: emitters,
		logger:   logger.With().Str("component", "orders").Logger(),
		now:      time.Now,
	}
}

// Place attempts one order. Every call produces exactly one journal entry,
// whatever the outcome. Failures are terminal: nothing is retried and a
// LIMIT order is never downgraded.
func (m *Manager) Place(ctx context.Context, raw RawOrder) (*Outcome, error) {
	attempt := m.newAttempt(raw)

	order, err := NewOrder(raw)
	if err != nil {
		m.finish(ctx, attempt, nil, err)
		return nil, err
	}
	attempt.useOrder(order)

	snapshot, err := m.Snapshot(ctx, order.Symbol)
	if err != nil {
		m.finish(ctx, attempt, nil, err)
		return nil, err
	}
	attempt.balance = decimal.NewNullDecimal(snapshot.Balance)

	result := filters.Evaluate(order, snapshot.Catalog, snapshot.MarketPrice)
	attempt.useOrder(result.Order)
	if !result.Accepted() {
		err := &ConstraintViolationError{Violations: result.Violations}
		m.finish(ctx, attempt, nil, err)
		return nil, err
	}

	if err := filters.CheckMargin(filters.MarginInput{
		Order:       result.Order,
		MarketPrice: snapshot.MarketPrice,
		Balance:     snapshot.Balance,
		Leverage:    snapshot.Leverage,
	}); err != nil {
		err := &MarginRejectedError{Err: err}
		m.finish(ctx, attempt, nil, err)
		return nil, err
	}

	// Interrupted while validating: nothing goes out.
	if err := ctx.Err(); err != nil {
		m.finish(ctx, attempt, nil, err)
		return nil, err
	}

	req := binance.NewOrderRequest(result.Order)
	attempt.clientOrderID = req.ClientOrderID

	confirmation, err := m.exchange.PlaceOrder(ctx, req)
	if err != nil {
		err = classify(opPlaceOrder, err, snapshot.Catalog)
		m.finish(ctx, attempt, nil, err)
		return nil, err
	}

	m.finish(ctx, attempt, confirmation, nil)
	return &Outcome{
		Order:        result.Order,
		Snapshot:     snapshot,
		Confirmation: confirmation,
	}, nil
}

// Snapshot fetches filters, mark price and balance with leverage
// concurrently. A missing mark price is not an error: the market price is
// left unknown and validation reports it.
func (m *Manager) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	var snapshot Snapshot

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		catalog, err := m.exchange.Catalog(gctx, symbol)
		if err != nil {
			return classify("fetch filters", err, filters.Catalog{})
		}
		snapshot.Catalog = catalog
		return nil
	})

	g.Go(func() error {
		price, err := m.exchange.MarkPrice(gctx, symbol)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("Mark price unavailable, continuing without it")
			return nil
		}
		snapshot.MarketPrice = decimal.NewNullDecimal(price)
		return nil
	})

	g.Go(func() error {
		balance, leverage, err := m.exchange.BalanceAndLeverage(gctx, symbol)
		if err != nil {
			return classify("fetch balance", err, filters.Catalog{})
		}
		snapshot.Balance = balance
		snapshot.Leverage = leverage
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Preview normalizes and validates without checking margin or submitting.
// It is not journaled.
func (m *Manager) Preview(ctx context.Context, raw RawOrder) (*Preview, error) {
	order, err := NewOrder(raw)
	if err != nil {
		return nil, err
	}

	catalog, err := m.exchange.Catalog(ctx, order.Symbol)
	if err != nil {
		return nil, classify("fetch filters", err, filters.Catalog{})
	}

	var marketPrice decimal.NullDecimal
	if price, err := m.exchange.MarkPrice(ctx, order.Symbol); err == nil {
		marketPrice = decimal.NewNullDecimal(price)
	} else {
		m.logger.Debug().Err(err).Str("symbol", order.Symbol).Msg("Previewing without mark price")
	}

	return &Preview{
		Result:      filters.Evaluate(order, catalog, marketPrice),
		MarketPrice: marketPrice,
	}, nil
}

// classify maps collaborator errors onto the placement error taxonomy
func classify(op string, err error, catalog filters.Catalog) error {
	if errors.Is(err, binance.ErrSymbolNotFound) {
		return err
	}
	// Nothing reached the exchange, so the outcome is known.
	if errors.Is(err, rest.ErrRequestNotSent) {
		return err
	}
	// Before submission an interrupt is just an interrupt. After it, the
	// order may or may not exist on the exchange.
	if op != opPlaceOrder && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var apiErr *rest.BinanceError
	if errors.As(err, &apiErr) {
		return &ExchangeRejectedError{
			Code:           apiErr.Code,
			Message:        apiErr.Message,
			Interpretation: Interpret(apiErr.Code, apiErr.Message, catalog),
		}
	}

	return &TransportFailureError{Op: op, Err: err}
}

// FailureReason is the journal reason for a failed attempt
func FailureReason(err error) string {
	var rejected *ExchangeRejectedError
	switch {
	case errors.As(err, &rejected):
		return rejected.Interpretation.Reason
	case errors.Is(err, ErrMalformedInput):
		return ReasonMalformed
	case errors.Is(err, ErrConstraintViolation):
		return ReasonFilter
	case errors.Is(err, ErrInsufficientMargin):
		return ReasonMargin
	case errors.Is(err, binance.ErrSymbolNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrTransportFailure):
		return ReasonTransport
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	}
	return ReasonUnexpected
}

// attempt accumulates what is known about an order as the flow advances
type attempt struct {
	at            time.Time
	raw           RawOrder
	order         *filters.Order
	balance       decimal.NullDecimal
	clientOrderID string
}

func (m *Manager) newAttempt(raw RawOrder) *attempt {
	return &attempt{at: m.now(), raw: raw}
}

func (a *attempt) useOrder(order filters.Order) {
	a.order = &order
}

func (a *attempt) entry() journal.Entry {
	e := journal.Entry{
		Time:          a.at,
		Symbol:        a.raw.Symbol,
		Side:          a.raw.Side,
		Type:          a.raw.Type,
		Quantity:      a.raw.Quantity,
		Price:         a.raw.Price,
		ClientOrderID: a.clientOrderID,
	}
	if a.order != nil {
		e.Symbol = a.order.Symbol
		e.Side = a.order.Side
		e.Type = a.order.Type
		e.Quantity = a.order.Quantity.String()
		e.Price = ""
		if a.order.Price.Valid {
			e.Price = a.order.Price.Decimal.String()
		}
	}
	if a.balance.Valid {
		e.Balance = a.balance.Decimal.String()
	}
	return e
}

// finish journals and emits the attempt. Journal and emitter failures are
// logged; they never change the outcome reported to the caller.
func (m *Manager) finish(ctx context.Context, a *attempt, confirmation *binance.OrderConfirmation, err error) {
	// The attempt is recorded even when the caller was interrupted.
	ctx = context.WithoutCancel(ctx)

	entry := a.entry()
	update := &OrderUpdate{
		EventType:     eventTypeAttempt,
		Symbol:        entry.Symbol,
		ClientOrderID: entry.ClientOrderID,
		Side:          entry.Side,
		OrderType:     entry.Type,
		UpdateTime:    m.now(),
	}
	if a.order != nil {
		update.Quantity = a.order.Quantity
		if a.order.Price.Valid {
			update.Price = a.order.Price.Decimal
		}
	}

	log := m.logger.With().
		Str("symbol", entry.Symbol).
		Str("side", entry.Side).
		Str("type", entry.Type).
		Str("quantity", entry.Quantity).
		Str("price", entry.Price).
		Logger()

	if err != nil {
		entry.Status = journal.StatusFail
		entry.Reason = FailureReason(err)
		update.Status = StatusFailed
		update.Reason = entry.Reason
		log.Warn().Err(err).Str("reason", entry.Reason).Msg("Order attempt failed")
	} else {
		entry.Status = journal.StatusSuccess
		entry.OrderID = confirmation.OrderID
		entry.ClientOrderID = confirmation.ClientOrderID
		update.Status = StatusPlaced
		update.OrderID = confirmation.OrderID
		update.ClientOrderID = confirmation.ClientOrderID
		update.ExecutedQty = confirmation.ExecutedQty
		log.Info().
			Int64("order_id", confirmation.OrderID).
			Str("client_order_id", confirmation.ClientOrderID).
			Str("status", confirmation.Status).
			Msg("Order placed")
	}

	if m.journal != nil {
		if jerr := m.journal.Append(ctx, entry); jerr != nil {
			log.Error().Err(jerr).Msg("Failed to journal order attempt")
		}
	}

	for _, emitter := range m.emitters {
		if eerr := emitter.EmitOrderUpdate(ctx, update); eerr != nil {
			log.Error().Err(eerr).Str("event_type", update.EventType).Msg("Failed to emit order update")
		}
	}
}
