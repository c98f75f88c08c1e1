package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// DefaultRecvWindow is the futures API default validity window in milliseconds
const DefaultRecvWindow int64 = 5000

// Signer handles HMAC-SHA256 signing for Binance futures requests
type Signer struct {
	apiKey     string
	apiSecret  string
	recvWindow int64
	now        func() time.Time
}

// Option configures a Signer
type Option func(*Signer)

// WithRecvWindow overrides the recv window sent with signed requests
func WithRecvWindow(recvWindow int64) Option {
	return func(s *Signer) {
		if recvWindow > 0 {
			s.recvWindow = recvWindow
		}
	}
}

// WithClock sets the time source used for request timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a new signer
func NewSigner(apiKey, apiSecret string, opts ...Option) *Signer {
	s := &Signer{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		recvWindow: DefaultRecvWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// APIKey returns the API key sent in the X-MBX-APIKEY header
func (s *Signer) APIKey() string {
	return s.apiKey
}

// RecvWindow returns the recv window value
func (s *Signer) RecvWindow() int64 {
	return s.recvWindow
}

// HasCredentials reports whether both key and secret are set
func (s *Signer) HasCredentials() bool {
	return s.apiKey != "" && s.apiSecret != ""
}

// Sign returns the hex HMAC-SHA256 of the encoded parameters
func (s *Signer) Sign(params url.Values) string {
	h := hmac.New(sha256.New, []byte(s.apiSecret))
	h.Write([]byte(params.Encode()))
	return hex.EncodeToString(h.Sum(nil))
}

// SignedQuery adds timestamp and recvWindow to a copy of params and returns
// the encoded query string with the signature as the last parameter
func (s *Signer) SignedQuery(params url.Values) string {
	signedParams := make(url.Values, len(params)+2)
	for key, values := range params {
		for _, value := range values {
			signedParams.Add(key, value)
		}
	}
	signedParams.Del("signature")

	// Always set fresh timestamp
	signedParams.Set("timestamp", strconv.FormatInt(s.now().UnixMilli(), 10))
	if signedParams.Get("recvWindow") == "" {
		signedParams.Set("recvWindow", strconv.FormatInt(s.recvWindow, 10))
	}

	query := signedParams.Encode()
	return query + "&signature=" + s.Sign(signedParams)
}
