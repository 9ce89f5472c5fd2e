package service

import "errors"

// Shared sentinel errors crossing multiple services. Handlers map these to
// HTTP status codes.
var (
	// ErrUnauthorized indicates the caller lacks the role for the operation.
	ErrUnauthorized = errors.New("operator role required")

	// ErrForbidden indicates the caller may not act on this resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidPayload indicates a malformed or foreign request payload.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrThrottled indicates the request hit a cooldown window.
	ErrThrottled = errors.New("request throttled")
)
