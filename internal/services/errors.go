package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies gateway failures
type ErrorKind string

const (
	KindConfig       ErrorKind = "config"
	KindTimeout      ErrorKind = "timeout"
	KindNetwork      ErrorKind = "network"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindServer       ErrorKind = "server"
	KindUpstream     ErrorKind = "upstream"
	KindDecode       ErrorKind = "decode"
	KindInvalid      ErrorKind = "invalid"
)

// User-facing fallback messages
const (
	MsgNotConfigured = "API key is not configured"
	MsgNetwork       = "Network error occurred"
	MsgTimeout       = "Request timed out"
	MsgNotFound      = "Content not found"
	MsgUnauthorized  = "Invalid API key"
	MsgRateLimited   = "Too many requests"
	MsgServer        = "Server error occurred"
	MsgUnknown       = "An unexpected error occurred"
)

// APIError is the only error type returned by the catalog gateway
type APIError struct {
	Kind    ErrorKind
	Service string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could plausibly succeed
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork, KindServer:
		return true
	default:
		return false
	}
}

// HTTPStatus is the status a handler should answer with
func (e *APIError) HTTPStatus() int {
	if e.Status > 0 {
		return e.Status
	}
	switch e.Kind {
	case KindInvalid:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork, KindDecode, KindUpstream:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an APIError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

func configError(service string) *APIError {
	return &APIError{Kind: KindConfig, Service: service, Message: fmt.Sprintf("%s %s", service, MsgNotConfigured)}
}

func invalidError(service, format string, args ...any) *APIError {
	return &APIError{Kind: KindInvalid, Service: service, Message: fmt.Sprintf(format, args...)}
}

func decodeError(service string, err error) *APIError {
	return &APIError{Kind: KindDecode, Service: service, Message: fmt.Sprintf("invalid %s response: %v", service, err), Err: err}
}

// transportError classifies a failed round trip
func transportError(service string, err error) *APIError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Kind: KindTimeout, Service: service, Message: MsgTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: KindNetwork, Service: service, Message: "request canceled", Err: err}
	}
	return &APIError{Kind: KindNetwork, Service: service, Message: MsgNetwork, Err: err}
}

// statusError classifies a non-2xx response, preferring the upstream message
func statusError(service string, status int, body []byte) *APIError {
	e := &APIError{Service: service, Status: status, Message: upstreamMessage(body)}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthorized
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindUpstream
	}

	if e.Message == "" {
		e.Message = fallbackMessage(status)
	}
	return e
}

func fallbackMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return MsgUnauthorized
	case status == http.StatusNotFound:
		return MsgNotFound
	case status == http.StatusTooManyRequests:
		return MsgRateLimited
	case status >= 500:
		return MsgServer
	default:
		return fmt.Sprintf("HTTP error! status: %d", status)
	}
}

// upstreamMessage pulls the human message out of a TMDB or OMDb error body
func upstreamMessage(body []byte) string {
	var payload struct {
		StatusMessage string `json:"status_message"`
		Error         string `json:"Error"`
		Message       string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.StatusMessage != "":
		return payload.StatusMessage
	case payload.Error != "":
		return payload.Error
	default:
		return payload.Message
	}
}
