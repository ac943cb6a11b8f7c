package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")

	// ErrDenyAccess means the requester could not prove visibility. It always
	// fails closed: callers treat it exactly like "not visible" and never fall
	// back to unfiltered disclosure.
	ErrDenyAccess = errors.New("access denied")

	// ErrInvalidCursor means an unparseable or stale pagination token.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidPolicy means a malformed rule policy reached the engine. The
	// engine refuses to evaluate such a rule instead of silently granting
	// broad access; hitting this indicates an upstream validation bug.
	ErrInvalidPolicy = errors.New("invalid access rule policy")
)

// Deny reasons. Both report as ErrDenyAccess to callers but stay
// distinguishable for tests and logging.
var (
	ErrNoRulesForTenant = fmt.Errorf("%w: no rules for tenant", ErrDenyAccess)
	ErrNoMatchingRules  = fmt.Errorf("%w: no matching rules", ErrDenyAccess)
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound      = "RESOURCE_NOT_FOUND"
	ErrCodeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ErrCodeInvalidInput          = "INVALID_INPUT"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidCursor         = "INVALID_CURSOR"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
