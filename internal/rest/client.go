package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"futuresbot/internal/auth"
)

// Client represents a REST client for the Binance futures API
type Client struct {
	baseURL      string
	httpClient   *http.Client
	signer       *auth.Signer
	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
}

// Option configures the client
type Option func(*Client)

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retries for idempotent requests
func WithMaxRetries(maxRetries int) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
	}
}

// WithRateLimit sets the client side token bucket
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithRetryBackoff sets the base delay of the exponential backoff
func WithRetryBackoff(base time.Duration) Option {
	return func(c *Client) {
		c.retryBackoff = base
	}
}

// NewClient creates a new REST client
func NewClient(baseURL string, signer *auth.Signer, opts ...Option) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		signer:       signer,
		limiter:      rate.NewLimiter(10, 5), // 10 req/sec, burst 5
		maxRetries:   3,
		retryBackoff: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// MaxRetries returns the maximum number of retries
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// GetExchangeInfo fetches contract rules and filters for every symbol
func (c *Client) GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false)
	if err != nil {
		return nil, ErrorWithContext(err, "GetExchangeInfo")
	}

	var exchangeInfo ExchangeInfo
	if err := decode(body, &exchangeInfo); err != nil {
		return nil, ErrorWithContext(err, "GetExchangeInfo")
	}

	return &exchangeInfo, nil
}

// GetMarkPrice fetches the current mark price of a symbol
func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (*MarkPrice, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/premiumIndex", params, false)
	if err != nil {
		return nil, ErrorWithContext(err, "GetMarkPrice")
	}

	var markPrice MarkPrice
	if err := decode(body, &markPrice); err != nil {
		return nil, ErrorWithContext(err, "GetMarkPrice")
	}

	return &markPrice, nil
}

// GetFuturesAccount gets futures account information
func (c *Client) GetFuturesAccount(ctx context.Context) (*FuturesAccountResponse, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("signer required for GetFuturesAccount")
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v2/account", nil, true)
	if err != nil {
		return nil, ErrorWithContext(err, "GetFuturesAccount")
	}

	var account FuturesAccountResponse
	if err := decode(body, &account); err != nil {
		return nil, ErrorWithContext(err, "GetFuturesAccount")
	}

	return &account, nil
}

// PlaceFuturesOrder submits a futures order. It is sent exactly once.
func (c *Client) PlaceFuturesOrder(ctx context.Context, req *FuturesOrderRequest) (*FuturesOrderResponse, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: signer required for PlaceFuturesOrder", ErrRequestNotSent)
	}

	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrRequestNotSent)
	}
	if req.Side == "" {
		return nil, fmt.Errorf("%w: side is required", ErrRequestNotSent)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("%w: type is required", ErrRequestNotSent)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity is required", ErrRequestNotSent)
	}
	if req.Type == "LIMIT" && !req.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price is required for LIMIT orders", ErrRequestNotSent)
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("type", req.Type)
	params.Set("quantity", req.Quantity.String())

	if req.Type == "LIMIT" {
		params.Set("price", req.Price.String())
		timeInForce := req.TimeInForce
		if timeInForce == "" {
			timeInForce = "GTC"
		}
		params.Set("timeInForce", timeInForce)
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if req.NewClientOrderID != "" {
		params.Set("newClientOrderId", req.NewClientOrderID)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, ErrorWithContext(err, "PlaceFuturesOrder")
	}

	var orderResp FuturesOrderResponse
	if err := decode(body, &orderResp); err != nil {
		return nil, ErrorWithContext(err, "PlaceFuturesOrder")
	}

	return &orderResp, nil
}

// limiterError reports a failed rate limit wait. The limiter refuses early
// when the wait would outlast the deadline, which is reported as the deadline.
func limiterError(ctx context.Context, err error) error {
	if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%w: rate limit wait: %w", ErrRequestNotSent, err)
}

// doRequest handles request execution with rate limiting. Only GET requests
// are retried; an order POST that times out may still have been accepted.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if signed && c.signer == nil {
		return nil, fmt.Errorf("%w: signer required for signed request", ErrRequestNotSent)
	}
	if params == nil {
		params = url.Values{}
	}

	retries := c.maxRetries
	if method != http.MethodGet {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, limiterError(ctx, err)
			}
		}

		// Binance expects all parameters in the query string, even for POST.
		// Signed queries are rebuilt per attempt so the timestamp stays fresh.
		query := params.Encode()
		if signed {
			query = c.signer.SignedQuery(params)
		}
		requestURL := c.baseURL + path
		if query != "" {
			requestURL += "?" + query
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create request: %w", ErrRequestNotSent, err)
		}
		if c.signer != nil && c.signer.APIKey() != "" {
			req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < retries && IsNetworkError(err) {
				if werr := c.waitForRetry(ctx, attempt); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < retries {
				if werr := c.waitForRetry(ctx, attempt); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		resp.Body = io.NopCloser(bytes.NewReader(respBody))
		apiErr := ParseAPIError(resp)
		lastErr = apiErr

		if attempt < retries && IsRetryableError(apiErr) {
			if werr := c.waitForRetry(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		return nil, apiErr
	}

	return nil, lastErr
}

// waitForRetry sleeps with exponential backoff and ±20% jitter
func (c *Client) waitForRetry(ctx context.Context, attempt int) error {
	maxDelay := 2 * time.Second

	delay := c.retryBackoff << attempt
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	if c.retryBackoff <= 0 {
		delay = 0
	}
	if delay > 0 {
		jitter := time.Duration(float64(delay) * 0.2 * (2*rand.Float64() - 1))
		delay += jitter
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
