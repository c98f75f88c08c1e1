package binance

import (
	"fmt"

	"github.com/rs/zerolog"

	"futuresbot/internal/auth"
	"futuresbot/internal/config"
	"futuresbot/internal/rest"
)

const (
	testnetDashboardURL = "https://testnet.binancefuture.com/en/futures/"
	mainnetDashboardURL = "https://www.binance.com/en/futures/"
)

// NewFuturesClient wires signer, REST client and exchange info cache from
// configuration. store may be nil.
func NewFuturesClient(cfg *config.BinanceConfig, store CatalogStore, logger zerolog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("binance config is required")
	}

	signer := auth.NewSigner(cfg.APIKey, cfg.APISecret, auth.WithRecvWindow(cfg.RecvWindow))
	restClient := rest.NewClient(
		cfg.BaseURL,
		signer,
		rest.WithTimeout(cfg.Timeout),
		rest.WithMaxRetries(cfg.MaxRetries),
		rest.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)

	logger.Debug().
		Str("base_url", restClient.BaseURL()).
		Dur("timeout", restClient.Timeout()).
		Int("max_retries", restClient.MaxRetries()).
		Bool("signed", signer.HasCredentials()).
		Msg("Futures REST client configured")

	exchangeInfo := NewExchangeInfoCache(
		restClient,
		store,
		cfg.ExchangeInfoCacheTTL,
		logger.With().Str("component", "exchange_info").Logger(),
	)

	return NewClient(restClient, exchangeInfo, logger.With().Str("component", "binance").Logger())
}

// DashboardURL is the web trading page for a symbol
func DashboardURL(symbol string, testnet bool) string {
	if testnet {
		return testnetDashboardURL + symbol
	}
	return mainnetDashboardURL + symbol
}
