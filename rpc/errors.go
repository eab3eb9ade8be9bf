package rpc

import (
	"errors"
	"fmt"

	"farmledger/core"
	"farmledger/native/farm"
	"farmledger/native/forwarder"
	"farmledger/native/token"
)

const (
	codeParseError         = -32700
	codeInvalidRequest     = -32600
	codeMethodNotFound     = -32601
	codeInvalidParams      = -32602
	codeServerError        = -32000
	codeUnauthorized       = -32001
	codePoolNotFound       = -32004
	codeRateLimited        = -32020
	codeTransferFailed     = -32030
	codeModulePaused       = -32040
	codeNotBootstrapped    = -32050
	codeInsufficientFunds  = -32031
	codeForwarderNotFound  = -32005
	codeAlreadyInitialized = -32006
)

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

func invalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// errorCode maps a ledger error to its JSON-RPC code.
func errorCode(err error) int {
	var rpcErr *RPCError
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr.Code
	case errors.Is(err, farm.ErrInvalidAmount),
		errors.Is(err, farm.ErrInsufficientStake),
		errors.Is(err, farm.ErrInvalidParams),
		errors.Is(err, farm.ErrDuplicatePool),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrUnknownToken),
		errors.Is(err, forwarder.ErrZeroOwner):
		return codeInvalidParams
	case errors.Is(err, farm.ErrUnauthorized),
		errors.Is(err, forwarder.ErrUnauthorized),
		errors.Is(err, token.ErrMintUnauthorized):
		return codeUnauthorized
	case errors.Is(err, farm.ErrTransferFailed):
		return codeTransferFailed
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return codeInsufficientFunds
	case errors.Is(err, farm.ErrPoolNotFound):
		return codePoolNotFound
	case errors.Is(err, forwarder.ErrNotFound):
		return codeForwarderNotFound
	case errors.Is(err, farm.ErrModulePaused):
		return codeModulePaused
	case errors.Is(err, farm.ErrAlreadyInitialized):
		return codeAlreadyInitialized
	case errors.Is(err, core.ErrNotBootstrapped), errors.Is(err, farm.ErrNotInitialized):
		return codeNotBootstrapped
	default:
		return codeServerError
	}
}

func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &RPCError{Code: errorCode(err), Message: err.Error()}
}
