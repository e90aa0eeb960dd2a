package domain

import (
	"errors"
	"net/http"
)

// Kind classifies an Error so the transport layer can pick a status code
// without knowing which operation produced it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to its response code. Conflicts are reported as
// 400 to stay compatible with existing clients of the register endpoint.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type returned by services. Message is safe to
// show to callers; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and message so sentinels below work with errors.Is even
// when a fresh *Error carrying a cause is returned.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindAuth, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }

// Internal wraps an unexpected failure (store outage, hashing failure, ...).
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrFieldsRequired     = Validation("All fields are required")
	ErrInvalidEmail       = Validation("Please provide a valid email address")
	ErrUserExists         = Conflict("User already exists")
	ErrInvalidCredentials = Unauthorized("Invalid credentials")
	ErrMissingToken       = Unauthorized("Not authorized, no token")
	ErrInvalidToken       = Unauthorized("Not authorized, token failed")
	ErrUserNotFound       = NotFound("User not found")

	ErrNameAndPriceRequired = Validation("Name and price are required")
	ErrNegativePrice        = Validation("Price cannot be negative")
	ErrNegativeStock        = Validation("Stock cannot be negative")
	ErrEmptyName            = Validation("Name cannot be empty")
	ErrNoFieldsToUpdate     = Validation("No fields to update")
	ErrInvalidProductID     = Validation("Invalid product ID")
	ErrProductNotFound      = NotFound("Product not found")
	ErrRequestInProgress    = Conflict("A request with this Idempotency-Key is already in progress")
)
