// Package dispatcher is the host side of the bridge: it answers request
// envelopes from a frame and pushes notifications to it.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/morezero/frame-bridge/pkg/wire"
)

const logPrefix = "dispatcher:dispatch"

// HandlerFunc answers one method. Returning a *wire.ErrorObject sends that
// error to the frame unchanged.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Dispatcher routes request envelopes to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for method, replacing any previous handler.
func (d *Dispatcher) Handle(method string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[method] = fn
}

// Methods returns the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	methods := make([]string, 0, len(d.handlers))
	for m := range d.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// Dispatch routes a request to its handler and returns the reply envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req *wire.Request) *wire.Response {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	if req.Method == "" {
		return wire.NewError(req.ID, wire.CodeInvalidRequest, "Missing method")
	}

	d.mu.RLock()
	fn, ok := d.handlers[req.Method]
	d.mu.RUnlock()
	if !ok {
		return wire.NewError(req.ID, wire.CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method))
	}

	result, err := fn(ctx, req.Params)
	if err != nil {
		return errorToResponse(req.ID, err)
	}
	resp, err := wire.NewResult(req.ID, result)
	if err != nil {
		return errorToResponse(req.ID, err)
	}
	return resp
}

// --- helpers ---

func errorToResponse(id json.RawMessage, err error) *wire.Response {
	var eo *wire.ErrorObject
	if errors.As(err, &eo) {
		return &wire.Response{JSONRPC: wire.Version, ID: id, Error: eo}
	}
	slog.Warn(fmt.Sprintf("%s - handler failed id=%s: %v", logPrefix, id, err))
	return wire.NewError(id, wire.CodeInternalError, err.Error())
}
