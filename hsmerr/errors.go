// Package hsmerr defines the unified error taxonomy shared by the
// dispatcher and every backend. It lives in its own leaf package so that
// backend implementations can construct *Error values without importing
// the root hsm package (which in turn imports the backends).
package hsmerr

import (
	"github.com/pkg/errors"
)

// Kind is the unified error taxonomy every backend normalizes into.
type Kind string

const (
	KindSuccess         Kind = "success"
	KindNotAvailable    Kind = "not_available"
	KindNotInitialized  Kind = "not_initialized"
	KindInvalidIdentity Kind = "invalid_identity"
	KindSealFailed      Kind = "seal_failed"
	KindUnsealFailed    Kind = "unseal_failed"
	KindNotFound        Kind = "not_found"
	KindAuthFailed      Kind = "auth_failed"
	KindPCRMismatch     Kind = "pcr_mismatch"
	KindMemory          Kind = "memory"
	KindIO              Kind = "io"
	KindPermission      Kind = "permission"
	KindTimeout         Kind = "timeout"
	KindCancelled       Kind = "cancelled"
	KindInternal        Kind = "internal"
)

// Error carries a Kind alongside the operation that produced it and, where
// available, the backend-native cause (wrapped with github.com/pkg/errors
// so a stack trace survives to the debug trace / logs).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: KindNotFound}) match purely on Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds an *Error, wrapping cause (if non-nil) with a stack trace.
func New(op string, kind Kind, cause error) *Error {
	var wrapped error
	if cause != nil {
		wrapped = errors.Wrapf(cause, "hsm: %s", op)
	}
	return &Error{Kind: kind, Op: op, Err: wrapped}
}

// KindOf returns the Kind carried by err, or KindInternal if err is
// non-nil but not an *Error. A nil err yields KindSuccess.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CauseString returns the raw backend-native error text that produced
// err's Kind (e.g. a TPM response-code message or a keyring I/O error),
// for debug traces that want to record that alongside the mapped Kind.
// Returns "" for a nil err.
func CauseString(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return errors.Cause(e.Err).Error()
	}
	return err.Error()
}
