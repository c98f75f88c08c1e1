package binance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"futuresbot/internal/filters"
	"futuresbot/internal/rest"
)

// Client wraps the REST client with the futures operations the order flow needs
type Client struct {
	restClient   *rest.Client
	exchangeInfo *ExchangeInfoCache
	logger       zerolog.Logger
}

// NewClient creates a new futures client. exchangeInfo may be nil, in which
// case an uncached one is built over restClient.
func NewClient(restClient *rest.Client, exchangeInfo *ExchangeInfoCache, logger zerolog.Logger) (*Client, error) {
	if restClient == nil {
		return nil, fmt.Errorf("rest client is required")
	}
	if exchangeInfo == nil {
		exchangeInfo = NewExchangeInfoCache(restClient, nil, 0, logger.With().Str("component", "exchange_info").Logger())
	}

	return &Client{
		restClient:   restClient,
		exchangeInfo: exchangeInfo,
		logger:       logger,
	}, nil
}

// Catalog returns the filter catalog of a symbol
func (c *Client) Catalog(ctx context.Context, symbol string) (filters.Catalog, error) {
	return c.exchangeInfo.Catalog(ctx, symbol)
}

// Symbols lists every futures contract
func (c *Client) Symbols(ctx context.Context) ([]SymbolSummary, error) {
	return c.exchangeInfo.Symbols(ctx)
}

// MarkPrice returns the current mark price. Any failure, including a
// non-positive price, is reported as ErrPriceUnavailable.
func (c *Client) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	mark, err := c.restClient.GetMarkPrice(ctx, symbol)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get mark price")
		return decimal.Zero, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	if !mark.MarkPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s reported mark price %s", ErrPriceUnavailable, symbol, mark.MarkPrice)
	}

	return mark.MarkPrice, nil
}

// BalanceAndLeverage returns the available USDT balance and the symbol's
// configured leverage. A symbol with no position slot reports leverage 1.
func (c *Client) BalanceAndLeverage(ctx context.Context, symbol string) (decimal.Decimal, int, error) {
	account, err := c.restClient.GetFuturesAccount(ctx)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to get futures account: %w", err)
	}

	leverage := 1
	for _, p := range account.Positions {
		if p.Symbol != symbol {
			continue
		}
		if lev, err := strconv.Atoi(p.Leverage); err == nil && lev > 0 {
			leverage = lev
		}
		break
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Str("available_balance", account.AvailableBalance.String()).
		Int("leverage", leverage).
		Msg("Fetched balance and leverage")

	return account.AvailableBalance, leverage, nil
}

// Account returns the wallet overview with non-zero assets and open positions
func (c *Client) Account(ctx context.Context) (*AccountSummary, error) {
	account, err := c.restClient.GetFuturesAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get futures account: %w", err)
	}

	summary := &AccountSummary{
		AvailableBalance: account.AvailableBalance,
		WalletBalance:    account.TotalWalletBalance,
		MarginBalance:    account.TotalMarginBalance,
		UnrealizedPnL:    account.TotalUnrealizedProfit,
	}

	for _, a := range account.Assets {
		if a.WalletBalance.IsZero() && a.UnrealizedProfit.IsZero() {
			continue
		}
		summary.Assets = append(summary.Assets, AssetBalance{
			Asset:            a.Asset,
			WalletBalance:    a.WalletBalance,
			AvailableBalance: a.AvailableBalance,
			UnrealizedPnL:    a.UnrealizedProfit,
		})
	}

	for _, p := range account.Positions {
		if p.PositionAmt.IsZero() {
			continue
		}
		leverage, _ := strconv.Atoi(p.Leverage)
		summary.Positions = append(summary.Positions, Position{
			Symbol:        p.Symbol,
			PositionSide:  p.PositionSide,
			Amount:        p.PositionAmt,
			EntryPrice:    p.EntryPrice,
			UnrealizedPnL: p.UnrealizedProfit,
			Leverage:      leverage,
			Isolated:      p.Isolated,
		})
	}

	return summary, nil
}

// PlaceOrder submits a futures order exactly once. Exchange rejections come
// back as *rest.BinanceError anywhere in the error chain.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (*OrderConfirmation, error) {
	if order.Type == filters.TypeLimit && !order.Price.Valid {
		return nil, fmt.Errorf("price is required for LIMIT orders")
	}

	c.logger.Debug().
		Str("symbol", order.Symbol).
		Str("side", order.Side).
		Str("type", order.Type).
		Str("quantity", order.Quantity.String()).
		Str("price", priceString(order.Price)).
		Bool("reduce_only", order.ReduceOnly).
		Str("client_order_id", order.ClientOrderID).
		Msg("Placing futures order")

	req := &rest.FuturesOrderRequest{
		Symbol:           order.Symbol,
		Side:             order.Side,
		Type:             order.Type,
		Quantity:         order.Quantity,
		ReduceOnly:       order.ReduceOnly,
		NewClientOrderID: order.ClientOrderID,
	}
	if order.Price.Valid {
		req.Price = order.Price.Decimal
	}

	restResp, err := c.restClient.PlaceFuturesOrder(ctx, req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("symbol", order.Symbol).
			Str("side", order.Side).
			Str("type", order.Type).
			Str("client_order_id", order.ClientOrderID).
			Msg("Failed to place futures order")
		return nil, fmt.Errorf("failed to place futures order: %w", err)
	}

	confirmation := &OrderConfirmation{
		OrderID:       restResp.OrderID,
		ClientOrderID: restResp.ClientOrderID,
		Symbol:        restResp.Symbol,
		Side:          restResp.Side,
		Type:          restResp.Type,
		Status:        restResp.Status,
		Price:         restResp.Price,
		AvgPrice:      restResp.AvgPrice,
		OrigQty:       restResp.OrigQty,
		ExecutedQty:   restResp.ExecutedQty,
		ReduceOnly:    restResp.ReduceOnly,
	}
	if confirmation.ClientOrderID == "" {
		confirmation.ClientOrderID = order.ClientOrderID
	}

	c.logger.Info().
		Str("symbol", confirmation.Symbol).
		Int64("order_id", confirmation.OrderID).
		Str("client_order_id", confirmation.ClientOrderID).
		Str("status", confirmation.Status).
		Str("executed_qty", confirmation.ExecutedQty.String()).
		Msg("Futures order placed successfully")

	return confirmation, nil
}

func priceString(p decimal.NullDecimal) string {
	if !p.Valid {
		return ""
	}
	return p.Decimal.String()
}
