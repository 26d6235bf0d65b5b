package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed API call.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindServer       Kind = "server"
	// KindUnavailable means the call was not attempted or was throttled:
	// the circuit breaker is open or the server asked the client to back off.
	KindUnavailable Kind = "unavailable"
)

// FieldError is one invalid input reported by the server.
type FieldError struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// Error is the single failure type returned by Client methods.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "; %s: %s", f.Location, f.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return KindUnavailable
	}
	if status >= 500 {
		return KindServer
	}
	return KindValidation
}

// retryable reports whether a failed call may succeed if repeated.
func retryable(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Kind {
	case KindNetwork, KindServer:
		return true
	case KindUnavailable:
		return ce.Status != 0
	}
	return false
}

// tripsBreaker reports whether a failure says the server is unhealthy.
// Rejections of the request itself do not count.
func tripsBreaker(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return err != nil
	}
	switch ce.Kind {
	case KindNetwork, KindServer:
		return true
	case KindUnavailable:
		return ce.Status == http.StatusServiceUnavailable
	}
	return false
}
