// Package apperr carries business-rule failures as typed errors so callers can
// report a stable code instead of a transport-level failure.
package apperr

import (
	"errors"

	"ideias/internal/constants"
)

// Error is a business-rule failure. Code is one of the constants.ErrCode* values.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is matches any *Error with the same code, so wrapped or re-messaged copies
// still satisfy errors.Is against the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a human-readable message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

var (
	ErrInvalidData        = &Error{Code: constants.ErrCodeInvalidData}
	ErrNotFound           = &Error{Code: constants.ErrCodeNotFound}
	ErrEmailExists        = &Error{Code: constants.ErrCodeEmailExists}
	ErrInvalidCredentials = &Error{Code: constants.ErrCodeInvalidCredentials}
	ErrNotAuthenticated   = &Error{Code: constants.ErrCodeNotAuthenticated}
	ErrTokenInvalid       = &Error{Code: constants.ErrCodeTokenInvalid}
	ErrTokenUsed          = &Error{Code: constants.ErrCodeTokenUsed}
	ErrTokenExpired       = &Error{Code: constants.ErrCodeTokenExpired}
	ErrAudienceInvalid    = &Error{Code: constants.ErrCodeAudienceInvalid}
	ErrIssuerInvalid      = &Error{Code: constants.ErrCodeIssuerInvalid}
	ErrEmailMissing       = &Error{Code: constants.ErrCodeEmailMissing}
)

// CodeOf returns the business code carried by err, or "" when err is not a
// business failure.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
