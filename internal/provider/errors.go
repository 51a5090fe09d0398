package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProviderError is a failed delivery call. Its text is what ends up in the
// notification log, so it names the provider and keeps the upstream detail.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	if name := strings.TrimSpace(e.Provider); name != "" {
		b.WriteString(name)
	} else {
		b.WriteString("provider error")
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status=%d", e.StatusCode)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether the failure was likely temporary. Runs never
// retry; the flag only feeds the failure reason label.
func IsTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FailureReason is a low-cardinality metrics label for a failed send.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		return "internal"
	}

	switch code := providerErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		return "rate_limited"
	case code >= http.StatusInternalServerError:
		return "provider_5xx"
	case code >= http.StatusBadRequest:
		return "provider_4xx"
	case providerErr.Transient:
		return "transport"
	default:
		return "provider"
	}
}
