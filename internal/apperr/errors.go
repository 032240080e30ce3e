package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error code surfaced to API callers.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindNotFound         Kind = "NOT_FOUND"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindConflict         Kind = "CONFLICT"
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	KindInternal         Kind = "INTERNAL"
)

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

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func PermissionDenied(format string, args ...any) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailable wraps a store-level failure with the step that hit it.
// The cause stays reachable through errors.Unwrap; always retryable.
func StoreUnavailable(err error, format string, args ...any) error {
	return &Error{Kind: KindStoreUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from any error in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// HTTPStatus maps an error kind to the status the API layer responds with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return 400
	case KindUnauthenticated:
		return 401
	case KindNotFound:
		return 404
	case KindPermissionDenied:
		return 403
	case KindConflict:
		return 409
	case KindStoreUnavailable:
		return 503
	default:
		return 500
	}
}
