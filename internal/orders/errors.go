package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrConstraintViolation = errors.New("order violates exchange filters")
	ErrInsufficientMargin  = errors.New("insufficient margin")
	ErrExchangeRejected    = errors.New("exchange rejected order")
	ErrTransportFailure    = errors.New("transport failure")
)

// Journal reasons for failures detected before the exchange answers
const (
	ReasonMalformed  = "MALFORMED"
	ReasonFilter     = "FILTER"
	ReasonMargin     = "MARGIN"
	ReasonNotFound   = "SYMBOL"
	ReasonTransport  = "TRANSPORT"
	ReasonCancelled  = "CANCELLED"
	ReasonUnexpected = "ERROR"
)

// MalformedInputError is raw input that cannot form an order
type MalformedInputError struct {
	Field  string
	Reason string
}

func malformed(field, reason string) *MalformedInputError {
	return &MalformedInputError{Field: field, Reason: reason}
}

func (e *MalformedInputError) Error() string {
	return "malformed input: " + e.Reason
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// ConstraintViolationError carries every filter violation, in filter order
type ConstraintViolationError struct {
	Violations []string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConstraintViolation, strings.Join(e.Violations, "; "))
}

func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrConstraintViolation
}

// MarginRejectedError wraps the margin guard result. Err is either a
// *filters.InsufficientMarginError or filters.ErrMarginPriceUnknown.
type MarginRejectedError struct {
	Err error
}

func (e *MarginRejectedError) Error() string {
	return e.Err.Error()
}

func (e *MarginRejectedError) Unwrap() error {
	return e.Err
}

func (e *MarginRejectedError) Is(target error) bool {
	return target == ErrInsufficientMargin
}

// ExchangeRejectedError is a structured refusal from the exchange
type ExchangeRejectedError struct {
	Code           int
	Message        string
	Interpretation Interpretation
}

func (e *ExchangeRejectedError) Error() string {
	return fmt.Sprintf("%s: %s (code %d: %s)", ErrExchangeRejected, e.Interpretation.Explanation, e.Code, e.Message)
}

func (e *ExchangeRejectedError) Is(target error) bool {
	return target == ErrExchangeRejected
}

// TransportFailureError covers network errors, timeouts and unreadable
// responses. For an order submission the outcome on the exchange is unknown.
type TransportFailureError struct {
	Op  string
	Err error
}

func (e *TransportFailureError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrTransportFailure, e.Op, e.Err)
}

func (e *TransportFailureError) Unwrap() error {
	return e.Err
}

func (e *TransportFailureError) Is(target error) bool {
	return target == ErrTransportFailure
}
