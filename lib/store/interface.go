package store

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/stash/lib/common"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is shared by all backend implementations
var Logger = logger.GetLogger(common.LoggerStore)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a new store.
// This is used to abstract the creation of a backend from the code using it.
type Factory func() (IStore, error)

// IStore is the generic interface for the key–value backend holding persisted
// state blobs. Every method takes a context so that callers can bound slow
// backends. Errors are returned as *Error values, never panicked.
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	// A missing key is not an error.
	Get(ctx context.Context, key string) (value []byte, loaded bool, err error)
	// Set inserts or updates a key–value pair.
	Set(ctx context.Context, key string, value []byte) (err error)
	// Clear removes every entry owned by the store.
	Clear(ctx context.Context) (err error)
	// Close releases the resources of the store. The store must not be used afterward.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new StoreError with the given code and message around err.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCUnavailable                     // 2: Backend could not be reached or the context ended.
	RetCInvalidOperation                // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnavailable:
		return "Unavailable"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}

// CodeFromContext maps a context error to RetCUnavailable and anything else
// to RetCInternalError.
func CodeFromContext(ctx context.Context) RetCode {
	if ctx.Err() != nil {
		return RetCUnavailable
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Optional capabilities
// --------------------------------------------------------------------------

// IKeyLister is implemented by stores that can enumerate their keys.
type IKeyLister interface {
	// Keys returns all keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) (keys []string, err error)
}
