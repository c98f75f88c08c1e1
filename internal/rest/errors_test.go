package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestBinanceError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := &BinanceError{Code: -2019, Message: "Margin is insufficient."}
		assert.Equal(t, "Binance API error -2019: Margin is insufficient.", err.Error())
	})

	t.Run("categorizes codes", func(t *testing.T) {
		testCases := []struct {
			code      int
			retryable bool
			auth      bool
			rateLimit bool
			order     bool
		}{
			{code: -1003, retryable: true, rateLimit: true},
			{code: -1021, retryable: true},
			{code: -1022, auth: true},
			{code: -2014, auth: true},
			{code: -2015, auth: true},
			{code: -1013, order: true},
			{code: -1111, order: true},
			{code: -2019, order: true},
			{code: -4003},
		}

		for _, tc := range testCases {
			t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
				err := &BinanceError{Code: tc.code}
				assert.Equal(t, tc.retryable, err.IsRetryable())
				assert.Equal(t, tc.auth, err.IsAuthError())
				assert.Equal(t, tc.rateLimit, err.IsRateLimitError())
				assert.Equal(t, tc.order, err.IsOrderError())
			})
		}
	})
}

func TestParseAPIError(t *testing.T) {
	t.Run("parses binance error body", func(t *testing.T) {
		err := ParseAPIError(errorResponse(400, `{"code":-1013,"msg":"Order's notional must be no smaller than 100"}`))

		var binanceErr *BinanceError
		require.True(t, errors.As(err, &binanceErr))
		assert.Equal(t, -1013, binanceErr.Code)
		assert.Equal(t, "Order's notional must be no smaller than 100", binanceErr.Message)
		assert.Equal(t, 400, binanceErr.HTTPStatus)
	})

	t.Run("malformed json is an invalid response", func(t *testing.T) {
		err := ParseAPIError(errorResponse(400, `{"code":-1021,"msg":`))

		assert.ErrorIs(t, err, ErrInvalidResponse)
		assert.Contains(t, err.Error(), "failed to parse error response")
	})

	t.Run("non-json body becomes HTTPError", func(t *testing.T) {
		err := ParseAPIError(errorResponse(502, `<html><body>Bad Gateway</body></html>`))

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, 502, httpErr.StatusCode)
		assert.Contains(t, err.Error(), "HTTP 502")
		assert.Contains(t, err.Error(), "Bad Gateway")
	})

	t.Run("empty body", func(t *testing.T) {
		err := ParseAPIError(errorResponse(500, ""))
		assert.Equal(t, "HTTP 500: empty response", err.Error())
	})

	t.Run("read error", func(t *testing.T) {
		err := ParseAPIError(&http.Response{StatusCode: 400, Body: &errorReader{}})
		assert.Contains(t, err.Error(), "failed to read error response")
	})

	t.Run("nil response", func(t *testing.T) {
		assert.Error(t, ParseAPIError(nil))
	})
}

func TestIsRetryableError(t *testing.T) {
	t.Run("binance codes", func(t *testing.T) {
		assert.True(t, IsRetryableError(&BinanceError{Code: -1003}))
		assert.False(t, IsRetryableError(&BinanceError{Code: -2019}))
	})

	t.Run("http statuses", func(t *testing.T) {
		testCases := []struct {
			status    int
			retryable bool
		}{
			{400, false},
			{401, false},
			{403, false},
			{404, false},
			{429, true},
			{500, true},
			{502, true},
			{503, true},
			{504, true},
		}

		for _, tc := range testCases {
			err := ParseAPIError(errorResponse(tc.status, "Error message"))
			assert.Equal(t, tc.retryable, IsRetryableError(err), "status %d", tc.status)
		}
	})

	t.Run("network errors", func(t *testing.T) {
		refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
		assert.True(t, IsRetryableError(refused))
		assert.True(t, IsRetryableError(fmt.Errorf("wrapped: %w", syscall.ECONNRESET)))
	})

	t.Run("context errors are final", func(t *testing.T) {
		assert.False(t, IsRetryableError(context.DeadlineExceeded))
		assert.False(t, IsRetryableError(context.Canceled))
		assert.False(t, IsRetryableError(fmt.Errorf("do: %w", context.Canceled)))
	})

	t.Run("generic and nil errors", func(t *testing.T) {
		assert.False(t, IsRetryableError(errors.New("some random error")))
		assert.False(t, IsRetryableError(nil))
	})
}

func TestErrorWithContext(t *testing.T) {
	t.Run("wraps error with operation", func(t *testing.T) {
		wrapped := ErrorWithContext(errors.New("connection failed"), "GetMarkPrice")
		assert.Equal(t, "GetMarkPrice: connection failed", wrapped.Error())
	})

	t.Run("preserves binance error type", func(t *testing.T) {
		wrapped := ErrorWithContext(&BinanceError{Code: -1021}, "PlaceFuturesOrder")

		var binanceErr *BinanceError
		require.True(t, errors.As(wrapped, &binanceErr))
		assert.Equal(t, -1021, binanceErr.Code)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, ErrorWithContext(nil, "SomeOperation"))
	})
}

type errorReader struct{}

func (e *errorReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("read error")
}

func (e *errorReader) Close() error {
	return nil
}
