// Package domainerrors carries coded errors across service boundaries.
//
// Services return *Error values so transports can map a failure to a status
// code and a stable machine-readable code without string matching. Stores do
// not use this package; they return sentinel errors (see pkg/platform/sentinel)
// which services translate.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeInsufficientFunds  Code = "insufficient_funds"
	CodeLotUnavailable     Code = "lot_unavailable"
	CodeTransactionFailure Code = "transaction_failure"
	CodeAuthFailure        Code = "auth_failure"
	CodeTokenInvalid       Code = "token_invalid"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error. Err optionally holds the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain is a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case CodeLotUnavailable:
		return http.StatusConflict
	case CodeAuthFailure, CodeTokenInvalid:
		return http.StatusUnauthorized
	case CodeTransactionFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
