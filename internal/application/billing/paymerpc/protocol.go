// Package paymerpc implements the synchronous Payme merchant RPC protocol:
// a single JSON endpoint where the provider drives the transaction
// lifecycle through method calls and expects protocol-exact error codes.
package paymerpc

import "encoding/json"

// Method names the provider may call.
const (
	MethodCheckPerformTransaction = "CheckPerformTransaction"
	MethodCreateTransaction       = "CreateTransaction"
	MethodPerformTransaction      = "PerformTransaction"
	MethodCancelTransaction       = "CancelTransaction"
	MethodCheckTransaction        = "CheckTransaction"
)

// Protocol error codes. The -315xx/-326xx/-327xx codes are fixed by the
// protocol; -310xx business codes are chosen from the merchant range.
const (
	CodeParseError             = -32700
	CodeInvalidRequest         = -32600
	CodeMethodNotFound         = -32601
	CodeInsufficientPrivileges = -32504
	CodeInternalError          = -32400

	CodeInvalidAmount       = -31001
	CodeTransactionNotFound = -31003
	CodeUnableToPerform     = -31008
	CodeAccountNotFound     = -31050
)

// Request is the provider's RPC envelope. Params are decoded per method.
type Request struct {
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response mirrors the request ID and carries exactly one of result or error.
type Response struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *RPCError   `json:"error,omitempty"`
}

// RPCError is the protocol error object. Data names the offending account
// field for -310xx account errors.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

func NewRPCError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

func NewAccountError(code int, message, field string) *RPCError {
	return &RPCError{Code: code, Message: message, Data: field}
}

// OKResponse wraps a result in a response envelope.
func OKResponse(id, result interface{}) *Response {
	return &Response{ID: id, Result: result}
}

// ErrorResponse wraps an RPC error in a response envelope.
func ErrorResponse(id interface{}, err *RPCError) *Response {
	return &Response{ID: id, Error: err}
}

// CheckPerformParams are the params of CheckPerformTransaction.
type CheckPerformParams struct {
	Amount  int64                  `json:"amount"`
	Account map[string]interface{} `json:"account"`
}

// CreateParams are the params of CreateTransaction. Time is the provider's
// creation timestamp in unix milliseconds.
type CreateParams struct {
	ID      string                 `json:"id"`
	Time    int64                  `json:"time"`
	Amount  int64                  `json:"amount"`
	Account map[string]interface{} `json:"account"`
}

// PerformParams are the params of PerformTransaction.
type PerformParams struct {
	ID string `json:"id"`
}

// CancelParams are the params of CancelTransaction.
type CancelParams struct {
	ID     string `json:"id"`
	Reason int    `json:"reason"`
}

// CheckParams are the params of CheckTransaction.
type CheckParams struct {
	ID string `json:"id"`
}

// CheckPerformResult allows or denies a prospective payment.
type CheckPerformResult struct {
	Allow bool `json:"allow"`
}

// CreateResult reports the ledger view of a created transaction.
type CreateResult struct {
	CreateTime  int64  `json:"create_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
}

// PerformResult reports a completed transaction.
type PerformResult struct {
	Transaction string `json:"transaction"`
	PerformTime int64  `json:"perform_time"`
	State       int    `json:"state"`
}

// CancelResult reports a cancelled transaction.
type CancelResult struct {
	Transaction string `json:"transaction"`
	CancelTime  int64  `json:"cancel_time"`
	State       int    `json:"state"`
}

// CheckResult is the full lifecycle view returned by CheckTransaction.
// Zero-valued times mean the transition has not happened.
type CheckResult struct {
	CreateTime  int64  `json:"create_time"`
	PerformTime int64  `json:"perform_time"`
	CancelTime  int64  `json:"cancel_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
	Reason      *int   `json:"reason"`
}
