// Package apperrors defines the error taxonomy shared by every stage of the
// pipeline, from archive extraction through graph queries. Call sites wrap
// the underlying cause with a Kind so callers can branch on category
// without parsing message text.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories the pipeline must be
// able to distinguish, so callers can test the category (via OfKind or
// KindOf) rather than error text.
type Kind string

const (
	KindIoError               Kind = "io_error"
	KindInvalidFormat         Kind = "invalid_format"
	KindNotFound              Kind = "not_found"
	KindTimeout               Kind = "timeout"
	KindPermissionDenied      Kind = "permission_denied"
	KindChecksumMismatch      Kind = "checksum_mismatch"
	KindValidationFailed      Kind = "validation_failed"
	KindSchemaVersionMismatch Kind = "schema_version_mismatch"
	KindDatabaseError         Kind = "database_error"
	KindParseError            Kind = "parse_error"
	KindParserPanicked        Kind = "parser_panicked"
	KindUnsupportedOperation  Kind = "unsupported_operation"
	KindResourceExhausted     Kind = "resource_exhausted"
	KindUnknown               Kind = "unknown"
)

// Error wraps an underlying cause with a Kind and the operation that
// produced it, following the distinction the original error enum drew
// between "what failed" (Kind) and "what we were doing" (Op).
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for an operation with no underlying cause, used for
// validation-style failures that originate in this package.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap attaches a Kind and operation name to an existing error. A nil err
// returns nil so call sites can write `return apperrors.Wrap(...)` inline
// after an `if err != nil` check has already failed.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithPath attaches the filesystem or archive path the error is about.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Is lets errors.Is(err, apperrors.KindOf(apperrors.KindTimeout)) work by
// comparing Kind against a sentinel constructed with KindOf.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

type kindSentinel struct{ kind Kind }

func (k *kindSentinel) Error() string { return string(k.kind) }

// KindOf returns a sentinel error usable with errors.Is to test an error's
// Kind regardless of its message or wrapped cause.
func KindOf(k Kind) error { return &kindSentinel{kind: k} }

// OfKind reports the Kind of err, or KindUnknown if err is not an *Error.
func OfKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
