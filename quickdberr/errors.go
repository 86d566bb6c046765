// Package quickdberr defines the error taxonomy every quickdb package wraps
// driver/validation/config failures into, built on cockroachdb/errors so
// callers keep stack traces and can still errors.Is/As against a sentinel
// kind.
package quickdberr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind classifies an error into the taxonomy from the error handling design.
type Kind string

const (
	KindConnection    Kind = "connection"
	KindQuery         Kind = "query"
	KindValidation    Kind = "validation"
	KindConfig        Kind = "config"
	KindAliasNotFound Kind = "alias_not_found"
	KindSerialization Kind = "serialization"
	KindCache         Kind = "cache"
	KindIO            Kind = "io"
	KindOther         Kind = "other"
)

// sentinels holds the base error for each Kind; Is(err, kind) consults it
// for errors that are not a *Error, so callers can test for a kind without
// string matching.
var sentinels = map[Kind]error{
	KindConnection:    errors.New("connection error"),
	KindQuery:         errors.New("query error"),
	KindValidation:    errors.New("validation error"),
	KindConfig:        errors.New("config error"),
	KindAliasNotFound: errors.New("alias not found"),
	KindSerialization: errors.New("serialization error"),
	KindCache:         errors.New("cache error"),
	KindIO:            errors.New("io error"),
	KindOther:         errors.New("other error"),
}

// Error is a quickdb error: a Kind plus a wrapped cause and, for
// ValidationError and AliasNotFound, structured context fields.
type Error struct {
	Kind    Kind
	Field   string // set for KindValidation
	Alias   string // set for KindAliasNotFound
	Message string
	cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("validation error: field %q: %s", e.Field, e.Message)
	case KindAliasNotFound:
		return fmt.Sprintf("alias not found: %q", e.Alias)
	default:
		if e.cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, e.cause)
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return sentinels[e.Kind]
}

// newKind builds an *Error of the given kind wrapping cause (nil allowed)
// with a formatted message.
func newKind(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Connection wraps a driver-unreachable / pool-exhausted / channel-closed failure.
func Connection(cause error, format string, args ...any) *Error {
	return newKind(KindConnection, cause, format, args...)
}

// Query wraps a malformed or driver-rejected query.
func Query(cause error, format string, args ...any) *Error {
	return newKind(KindQuery, cause, format, args...)
}

// Validation builds a field-level validation failure.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Config wraps a missing builder field / mismatched connection variant /
// locked-phase duplicate-alias refusal.
func Config(format string, args ...any) *Error {
	return newKind(KindConfig, nil, format, args...)
}

// AliasNotFound builds an error naming an unregistered alias.
func AliasNotFound(alias string) *Error {
	return &Error{Kind: KindAliasNotFound, Alias: alias}
}

// Serialization wraps a value<->JSON conversion failure.
func Serialization(cause error, format string, args ...any) *Error {
	return newKind(KindSerialization, cause, format, args...)
}

// Cache wraps an underlying cache read/write failure.
func Cache(cause error, format string, args ...any) *Error {
	return newKind(KindCache, cause, format, args...)
}

// IO wraps a filesystem or network I/O failure.
func IO(cause error, format string, args ...any) *Error {
	return newKind(KindIO, cause, format, args...)
}

// Other wraps a driver-specific message that doesn't fit another kind.
func Other(cause error, format string, args ...any) *Error {
	return newKind(KindOther, cause, format, args...)
}

// Is reports whether err (or any error it wraps) is of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return errors.Is(err, sentinels[kind])
}

// IsDuplicate reports whether err looks like a driver "already exists"
// error, the string-matching test the model registry uses to swallow
// duplicate index-creation errors.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists")
}
