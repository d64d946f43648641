package rpc

import (
	"errors"

	"github.com/venuecore/ticketd/internal/core/ledger"
)

// Error is a JSON-RPC method error. ErrorString is the stable machine
// token; Message is human readable.
type Error struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Message     string `json:"error_message,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Protocol-level error codes follow JSON-RPC 2.0; domain codes are ours.
const (
	codeInvalidJSON    = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603

	codeNotInitialized     = 100
	codeAlreadyInitialized = 101
	codeUnauthorized       = 102
	codeDuplicateTier      = 103
	codeNotFound           = 104
	codeAlreadyInvalid     = 105
	codeTierInactive       = 106
	codeSoldOut            = 107
	codeSaleFrozen         = 108
	codeRefundWindowClosed = 109
	codeOracleUnavailable  = 110
	codeArithmeticOverflow = 111
	codeInvalidArgument    = 112
)

func errMethodNotFound(method string) *Error {
	return &Error{Code: codeMethodNotFound, ErrorString: "unknownCmd", Message: "unknown method: " + method}
}

func errInvalidParams(msg string) *Error {
	return &Error{Code: codeInvalidParams, ErrorString: "invalidParams", Message: msg}
}

func errForbidden(method string) *Error {
	return &Error{Code: codeUnauthorized, ErrorString: "forbidden", Message: "method requires admin access: " + method}
}

// fromCoreError maps ledger sentinel errors onto wire errors.
func fromCoreError(err error) *Error {
	for _, m := range coreErrorTable {
		if errors.Is(err, m.sentinel) {
			return &Error{Code: m.code, ErrorString: m.token, Message: err.Error()}
		}
	}
	return &Error{Code: codeInternal, ErrorString: "internal", Message: err.Error()}
}

var coreErrorTable = []struct {
	sentinel error
	code     int
	token    string
}{
	{ledger.ErrNotInitialized, codeNotInitialized, "notInitialized"},
	{ledger.ErrAlreadyInitialized, codeAlreadyInitialized, "alreadyInitialized"},
	{ledger.ErrUnauthorized, codeUnauthorized, "unauthorized"},
	{ledger.ErrDuplicateTier, codeDuplicateTier, "duplicateTier"},
	{ledger.ErrNotFound, codeNotFound, "notFound"},
	{ledger.ErrAlreadyInvalid, codeAlreadyInvalid, "alreadyInvalid"},
	{ledger.ErrTierInactive, codeTierInactive, "tierInactive"},
	{ledger.ErrSoldOut, codeSoldOut, "soldOut"},
	{ledger.ErrSaleFrozen, codeSaleFrozen, "saleFrozen"},
	{ledger.ErrRefundWindowClosed, codeRefundWindowClosed, "refundWindowClosed"},
	{ledger.ErrOracleUnavailable, codeOracleUnavailable, "oracleUnavailable"},
	{ledger.ErrArithmeticOverflow, codeArithmeticOverflow, "arithmeticOverflow"},
	{ledger.ErrInvalidArgument, codeInvalidArgument, "invalidArgument"},
}
