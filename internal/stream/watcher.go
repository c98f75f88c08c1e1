package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errEnough = errors.New("requested event count reached")

// handlerError marks an error returned by the caller's handler so it is not
// mistaken for a connection failure
type handlerError struct {
	err error
}

func (e *handlerError) Error() string { return e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

// Watcher follows the mark price stream of one symbol
type Watcher struct {
	baseURL string
	logger  zerolog.Logger

	pingInterval         time.Duration
	readTimeout          time.Duration
	writeTimeout         time.Duration
	handshakeTimeout     time.Duration
	maxReconnectAttempts int
	reconnectInterval    time.Duration
}

// Option configures watcher behavior
type Option func(*Watcher)

// WithPingInterval sets the ping interval
func WithPingInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		w.pingInterval = interval
	}
}

// WithReadTimeout sets how long the stream may stay silent
func WithReadTimeout(timeout time.Duration) Option {
	return func(w *Watcher) {
		w.readTimeout = timeout
	}
}

// WithMaxReconnectAttempts sets how many consecutive reconnects are tried
func WithMaxReconnectAttempts(attempts int) Option {
	return func(w *Watcher) {
		if attempts >= 0 {
			w.maxReconnectAttempts = attempts
		}
	}
}

// WithReconnectInterval sets the base reconnection interval
func WithReconnectInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		w.reconnectInterval = interval
	}
}

// NewWatcher creates a watcher for the given websocket base URL,
// e.g. wss://fstream.binance.com
func NewWatcher(baseURL string, logger zerolog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		baseURL:              strings.TrimRight(baseURL, "/"),
		logger:               logger.With().Str("component", "stream").Logger(),
		pingInterval:         30 * time.Second,
		readTimeout:          60 * time.Second,
		writeTimeout:         10 * time.Second,
		handshakeTimeout:     10 * time.Second,
		maxReconnectAttempts: 5,
		reconnectInterval:    time.Second,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// StreamName is the 1s mark price stream of a symbol
func StreamName(symbol string) string {
	return strings.ToLower(symbol) + "@markPrice@1s"
}

// URL is the raw stream endpoint for a symbol
func (w *Watcher) URL(symbol string) string {
	return w.baseURL + "/ws/" + StreamName(symbol)
}

// Watch delivers mark price events to handler until ctx is done, count
// events were delivered (count <= 0 means no limit) or handler fails.
// Cancellation is a normal stop and returns nil. Dropped connections are
// re-dialed with backoff; the attempt counter resets on every event.
func (w *Watcher) Watch(ctx context.Context, symbol string, count int, handler func(MarkPriceEvent) error) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	url := w.URL(symbol)
	delivered := 0
	attempts := 0

	deliver := func(event MarkPriceEvent) error {
		attempts = 0
		if err := handler(event); err != nil {
			return &handlerError{err: err}
		}
		delivered++
		if count > 0 && delivered >= count {
			return errEnough
		}
		return nil
	}

	for {
		err := w.session(ctx, url, deliver)

		var herr *handlerError
		switch {
		case errors.Is(err, errEnough):
			return nil
		case errors.As(err, &herr):
			return herr.err
		case ctx.Err() != nil:
			return nil
		}

		if attempts >= w.maxReconnectAttempts {
			return fmt.Errorf("mark price stream %s: %w", symbol, err)
		}
		attempts++

		delay := w.reconnectInterval * time.Duration(1<<uint(attempts-1))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		w.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Int("attempt", attempts).
			Dur("backoff", delay).
			Msg("Mark price stream dropped, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// session runs one connection until it fails or deliver returns an error
func (w *Watcher) session(ctx context.Context, url string, deliver func(MarkPriceEvent) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: w.handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	w.logger.Debug().Str("url", url).Msg("Mark price stream connected")

	conn.SetReadDeadline(time.Now().Add(w.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go w.keepAlive(ctx, conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(w.readTimeout))

		event, ok, err := decodeMarkPrice(message)
		if err != nil {
			w.logger.Warn().Err(err).Msg("Skipping unreadable stream frame")
			continue
		}
		if !ok {
			continue
		}

		if err := deliver(event); err != nil {
			return err
		}
	}
}

// keepAlive pings until the session ends and closes the connection when
// ctx is cancelled so the blocked read returns. It is the only writer.
func (w *Watcher) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
