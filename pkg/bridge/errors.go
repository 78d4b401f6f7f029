package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/morezero/frame-bridge/pkg/pending"
)

var (
	// ErrTimeout rejects a call that got no reply within the configured timeout.
	ErrTimeout = pending.ErrTimeout

	// ErrClosed rejects calls issued after Close and calls still pending when Close runs.
	ErrClosed = errors.New("rpc closed")

	// ErrNoTarget is returned by New when Options.Target is nil.
	ErrNoTarget = errors.New("bridge target is required")
)

// RpcError is an explicit error reply from the host. The message combines
// code and reason.
type RpcError struct {
	Code   int             `json:"code"`
	Reason string          `json:"message"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Reason)
}

// NewRpcError creates a new RpcError.
func NewRpcError(code int, reason string) *RpcError {
	return &RpcError{Code: code, Reason: reason}
}

// IsRpcError reports whether err carries an RpcError and returns it.
func IsRpcError(err error) (*RpcError, bool) {
	var rpcErr *RpcError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}

// callError adds method and identity context while keeping the cause matchable.
type callError struct {
	method string
	id     uint64
	err    error
}

func (e *callError) Error() string {
	return fmt.Sprintf("%s (id=%d): %v", e.method, e.id, e.err)
}

func (e *callError) Unwrap() error { return e.err }
