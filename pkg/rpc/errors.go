package rpc

import (
	"fmt"

	"github.com/fortiblox/X1-Bulldozer/pkg/blockstore"
)

// JSON-RPC 2.0 standard error codes.
const (
	// ParseError indicates invalid JSON was received.
	ParseError = -32700

	// InvalidRequest indicates the JSON sent is not a valid Request object.
	InvalidRequest = -32600

	// MethodNotFound indicates the method does not exist.
	MethodNotFound = -32601

	// InvalidParams indicates invalid method parameters.
	InvalidParams = -32602

	// InternalError indicates an internal JSON-RPC error.
	InternalError = -32603
)

// Solana-specific error codes.
const (
	// SendTransactionPreflightFailure reports a transaction that was
	// rejected before it reached the journal, or one that executed and failed.
	SendTransactionPreflightFailure = -32002

	// TransactionSignatureVerificationFailure indicates signature verification failed.
	TransactionSignatureVerificationFailure = -32003

	// NodeUnhealthy indicates the node is unhealthy.
	NodeUnhealthy = -32005

	// TransactionHistoryNotAvailable indicates the transaction was pruned or never seen.
	TransactionHistoryNotAvailable = -32011

	// ScanError indicates a scan/iteration error.
	ScanError = -32012

	// MinContextSlotNotReached indicates min context slot not yet reached.
	MinContextSlotNotReached = -32016

	// RateLimited is returned when sendTransaction or requestAirdrop is
	// called faster than the configured rate.
	RateLimited = -32429
)

// Common error messages.
var (
	ErrParseError     = NewRPCError(ParseError, "Parse error")
	ErrInvalidRequest = NewRPCError(InvalidRequest, "Invalid Request")
	ErrMethodNotFound = NewRPCError(MethodNotFound, "Method not found")
	ErrInvalidParams  = NewRPCError(InvalidParams, "Invalid params")
	ErrInternalError  = NewRPCError(InternalError, "Internal error")
	ErrNodeUnhealthy  = NewRPCError(NodeUnhealthy, "Node is unhealthy")
	ErrRateLimited    = NewRPCError(RateLimited, "Too many requests")
)

// NewRPCError creates a new RPC error.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// NewRPCErrorWithData creates a new RPC error with additional data.
func NewRPCErrorWithData(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// InvalidParamsError creates an invalid params error with a custom message.
func InvalidParamsError(msg string) *RPCError {
	return NewRPCError(InvalidParams, msg)
}

// InvalidParamsErrorf creates an invalid params error with a formatted message.
func InvalidParamsErrorf(format string, args ...interface{}) *RPCError {
	return NewRPCError(InvalidParams, fmt.Sprintf(format, args...))
}

// InternalServerErrorf creates an internal server error with a formatted message.
func InternalServerErrorf(format string, args ...interface{}) *RPCError {
	return NewRPCError(InternalError, fmt.Sprintf(format, args...))
}

// MinContextSlotError creates an error for min context slot not reached.
func MinContextSlotError(minSlot, currentSlot uint64) *RPCError {
	return NewRPCErrorWithData(MinContextSlotNotReached,
		fmt.Sprintf("Minimum context slot %d has not been reached, current slot is %d", minSlot, currentSlot),
		map[string]uint64{"minSlot": minSlot, "currentSlot": currentSlot})
}

// PreflightError reports a rejected transaction.
func PreflightError(msg string) *RPCError {
	return NewRPCError(SendTransactionPreflightFailure, "Transaction simulation failed: "+msg)
}

// TransactionFailedError reports a transaction that executed and failed.
// The data carries the journaled error and the program logs so clients
// can surface the program error code.
func TransactionFailedError(err *blockstore.TransactionError, signature string, logs []string) *RPCError {
	return NewRPCErrorWithData(SendTransactionPreflightFailure,
		"Transaction simulation failed: "+err.Message,
		map[string]interface{}{
			"err":       err,
			"signature": signature,
			"logs":      logs,
		})
}
