// Package rpcerr holds the failure taxonomy reported back to the game
// provider. Codes are part of the provider contract and must not change.
package rpcerr

import (
	"errors"
	"fmt"
)

const (
	CodeInternal              = 6000
	CodeTokenInvalid          = 6001
	CodeTokenExpired          = 6002
	CodeAuthIncorrect         = 6003
	CodeInsufficientFunds     = 6503
	CodeGameReferenceNotExist = 6511
)

var messages = map[int]string{
	CodeInternal:              "Unspecified error",
	CodeTokenInvalid:          "The player token is invalid",
	CodeTokenExpired:          "The player token expired",
	CodeAuthIncorrect:         "The authentication credentials for the API are incorrect",
	CodeInsufficientFunds:     "Player has insufficient funds",
	CodeGameReferenceNotExist: "The external system name does not exist (gamereference)",
}

// Error is a failure the provider understands.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s [%v]", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so errors.Is(err, rpcerr.ErrTokenExpired) works for
// wrapped and freshly built values alike.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code int) *Error {
	return &Error{Code: code, Message: messages[code]}
}

func Wrap(code int, err error) *Error {
	return &Error{Code: code, Message: messages[code], Err: err}
}

var (
	ErrTokenInvalid          = New(CodeTokenInvalid)
	ErrTokenExpired          = New(CodeTokenExpired)
	ErrAuthIncorrect         = New(CodeAuthIncorrect)
	ErrInsufficientFunds     = New(CodeInsufficientFunds)
	ErrGameReferenceNotExist = New(CodeGameReferenceNotExist)
)

// From maps any error to a provider failure. Anything that is not already an
// *Error becomes Internal with the cause kept for logging.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return Wrap(CodeInternal, err)
}
