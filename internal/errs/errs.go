// Package errs defines the error taxonomy shared by the manager, the
// generation handler and the HTTP layer. Callers branch on Kind, never on
// message text.
package errs

import (
	"errors"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindInternal      Kind = "internal"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindLoad          Kind = "load"
	KindGeneration    Kind = "generation"
	KindPersist       Kind = "persist"
	KindCleanup       Kind = "cleanup"
	KindBusy          Kind = "busy"
)

// Error is a tagged error. Field is set for validation failures.
type Error struct {
	Kind  Kind
	Op    string
	Field string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Field != "" && e.Kind == KindValidation {
		b.WriteString("invalid ")
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a tagged error around err.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation reports a bad user-supplied field.
func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Err: errors.New(msg)}
}

// Configuration reports an unknown or inconsistent static setting, e.g. an
// unknown variant id.
func Configuration(op, msg string) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: errors.New(msg)}
}

// KindOf returns the kind of the outermost tagged error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldOf returns the offending field of a validation error.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

func IsValidation(err error) bool    { return Is(err, KindValidation) }
func IsConfiguration(err error) bool { return Is(err, KindConfiguration) }
func IsLoad(err error) bool          { return Is(err, KindLoad) }
func IsGeneration(err error) bool    { return Is(err, KindGeneration) }
func IsBusy(err error) bool          { return Is(err, KindBusy) }
func IsCleanup(err error) bool       { return Is(err, KindCleanup) }
