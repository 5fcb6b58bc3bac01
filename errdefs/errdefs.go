// Package errdefs carries the error taxonomy of the orchestration
// boundary. Validation and authorization errors are raised before any
// mutation; infrastructure errors wrap the underlying cluster or store
// failure.
package errdefs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota
	KindConflict
	KindValidation
	KindAuthorization
	KindInfrastructure
)

type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.message, e.cause.Error())
	}
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Kind() Kind {
	return e.kind
}

func NotFound(format string, args ...any) error {
	return &Error{kind: KindNotFound, message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{kind: KindConflict, message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{kind: KindValidation, message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) error {
	return &Error{kind: KindAuthorization, message: fmt.Sprintf(format, args...)}
}

func Infrastructure(cause error, format string, args ...any) error {
	return &Error{kind: KindInfrastructure, message: fmt.Sprintf(format, args...), cause: cause}
}

func IsNotFound(err error) bool       { return isKind(err, KindNotFound) }
func IsConflict(err error) bool       { return isKind(err, KindConflict) }
func IsValidation(err error) bool     { return isKind(err, KindValidation) }
func IsAuthorization(err error) bool  { return isKind(err, KindAuthorization) }
func IsInfrastructure(err error) bool { return isKind(err, KindInfrastructure) }

func isKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}
