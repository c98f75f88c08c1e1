package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

var (
	// ErrInvalidResponse is returned when a 2xx body cannot be decoded
	ErrInvalidResponse = errors.New("invalid response from exchange")

	// ErrRequestNotSent marks failures that happened before the request
	// reached the network
	ErrRequestNotSent = errors.New("request not sent")
)

// BinanceError represents an error response from the futures API
type BinanceError struct {
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface
func (e *BinanceError) Error() string {
	return fmt.Sprintf("Binance API error %d: %s", e.Code, e.Message)
}

// IsRetryable determines if this error should trigger a retry
func (e *BinanceError) IsRetryable() bool {
	switch e.Code {
	case -1003, // Too many requests
		-1021: // Timestamp outside recv window
		return true
	}
	return false
}

// IsAuthError checks if this is an authentication error
func (e *BinanceError) IsAuthError() bool {
	switch e.Code {
	case -1022, // Invalid signature
		-2014, // API key format invalid
		-2015: // Invalid API key, IP, or permissions
		return true
	}
	return false
}

// IsRateLimitError checks if this is a rate limiting error
func (e *BinanceError) IsRateLimitError() bool {
	return e.Code == -1003
}

// IsOrderError checks if the exchange refused the order itself
func (e *BinanceError) IsOrderError() bool {
	switch e.Code {
	case -1013, // Filter failure
		-1111, // Precision over maximum
		-2019: // Margin is insufficient
		return true
	}
	return false
}

// HTTPError is a non-2xx response that did not carry a Binance error body
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports throttling and server side failures
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ParseAPIError extracts the Binance error from a failed HTTP response
func ParseAPIError(resp *http.Response) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var binanceErr BinanceError
	jsonErr := json.Unmarshal(body, &binanceErr)
	if jsonErr == nil && binanceErr.Code != 0 {
		binanceErr.HTTPStatus = resp.StatusCode
		return &binanceErr
	}

	bodyStr := strings.TrimSpace(string(body))
	if jsonErr != nil && (strings.HasPrefix(bodyStr, "{") || strings.HasPrefix(bodyStr, "[")) {
		return fmt.Errorf("%w: failed to parse error response: %v", ErrInvalidResponse, jsonErr)
	}
	if bodyStr == "" {
		bodyStr = "empty response"
	}

	return &HTTPError{StatusCode: resp.StatusCode, Body: bodyStr}
}

// IsRetryableError determines if an error should trigger a retry
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var binanceErr *BinanceError
	if errors.As(err, &binanceErr) {
		return binanceErr.IsRetryable()
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}

	return IsNetworkError(err)
}

// IsNetworkError reports connection level failures
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// ErrorWithContext wraps errors with the failing operation name
func ErrorWithContext(err error, operation string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", operation, err)
}
