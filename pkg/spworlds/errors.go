package spworlds

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the client matches exactly one of
// these with errors.Is.
var (
	ErrTransport                = errors.New("spworlds: transport failure")
	ErrUnexpectedResponseFormat = errors.New("spworlds: unexpected response format")
	ErrMalformedBody            = errors.New("spworlds: malformed response body")
	ErrUnauthorized             = errors.New("spworlds: unauthorized")
	ErrNotFound                 = errors.New("spworlds: not found")
	ErrInsufficientFunds        = errors.New("spworlds: insufficient funds")
	ErrReceiverCardNotFound     = errors.New("spworlds: receiver card not found")
	ErrBadRequest               = errors.New("spworlds: bad request")
	ErrServer                   = errors.New("spworlds: server error")
)

// Validation kinds, wrapped by *ValidationError
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrAmountOutOfRange  = errors.New("amount out of range")
	ErrFieldLength       = errors.New("field length out of range")
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidShape      = errors.New("amount and items are mutually exclusive")
)

// ValidationError is a request field that failed a local check.
// No request is sent when one is returned.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("spworlds: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

// TransportError is a request that never produced an HTTP response
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("spworlds: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// FormatError is a response that is not JSON. The API answers with an HTML
// page when its anti-bot protection blocks the caller.
type FormatError struct {
	StatusCode  int
	ContentType string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("spworlds: unexpected response format (HTTP %d, content-type %q)", e.StatusCode, e.ContentType)
}

func (e *FormatError) Unwrap() error {
	return ErrUnexpectedResponseFormat
}

// DecodeError is a 2xx response whose body does not match the expected shape
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("spworlds: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedBody, e.Err}
}

// APIError is an error response from the API
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	kind       error
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("spworlds: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("spworlds: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// Kind returns the error kind sentinel
func (e *APIError) Kind() error {
	return e.kind
}

// NotFoundError is a lookup whose target does not exist
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("spworlds: %s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// BalanceError is a batch rejected locally because the card balance does
// not cover its total
type BalanceError struct {
	Balance  int
	Required int
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("spworlds: balance %d does not cover batch total %d", e.Balance, e.Required)
}

func (e *BalanceError) Unwrap() error {
	return ErrInsufficientFunds
}

// BatchError is the failure that stopped a batch. Items before Index have
// already been applied remotely and are not reversed.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("spworlds: batch item %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
