package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNetwork matches every failure to reach the server or read its reply.
var ErrNetwork = errors.New("taller: network error")

// NetworkError wraps a transport failure. errors.Is(err, ErrNetwork) holds
// for it.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("taller: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// APIError is a non-2xx reply. Code is the application code of the body,
// for example INVALID_TRANSITION.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "taller: HTTP %d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "; %s=%v", k, e.Details[k])
	}
	return b.String()
}

func hasCode(err error, codes ...string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.Code == c {
			return true
		}
	}
	return false
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func IsValidation(err error) bool {
	return hasCode(err, CodeValidation, CodeInvalidInput)
}

// IsInvalidTransition reports a status change the state machine refused.
func IsInvalidTransition(err error) bool { return hasCode(err, CodeInvalidTransition) }

// IsReadOnly reports an edit of a delivered or cancelled order.
func IsReadOnly(err error) bool { return hasCode(err, CodeReadOnly) }

// IsNotReady reports a sale requested for an order that is not ready.
func IsNotReady(err error) bool { return hasCode(err, CodeNotReady) }

func IsSaleExists(err error) bool { return hasCode(err, CodeSaleExists) }

func IsNoEligibleOrders(err error) bool { return hasCode(err, CodeNoEligibleOrders) }

// IsConflict covers duplicates, stale versions and idempotency key reuse.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }
