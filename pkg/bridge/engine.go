// Package bridge correlates calls sent from an embedded frame to its host
// with the host's asynchronous replies, and turns host notifications into
// typed session events.
//
// An Engine assigns each call a fresh numeric identity, sends a JSON-RPC
// envelope over its transport target and tracks the call until exactly one of
// a reply, an error reply, the timeout, or Close settles it. Inbound messages
// from an origin other than the configured target origin are dropped before
// they are looked at.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/morezero/frame-bridge/pkg/journal"
	"github.com/morezero/frame-bridge/pkg/metrics"
	"github.com/morezero/frame-bridge/pkg/pending"
	"github.com/morezero/frame-bridge/pkg/semver"
	"github.com/morezero/frame-bridge/pkg/transport"
	"github.com/morezero/frame-bridge/pkg/wire"
)

const logPrefix = "bridge:engine"

const journalTimeout = 5 * time.Second

// Engine is the frame side of the bridge.
type Engine struct {
	targetOrigin string
	timeout      time.Duration
	target       transport.Target
	journal      journal.Journal
	metrics      *metrics.Metrics
	hostRange    *semver.Constraint

	nextID   atomic.Uint64
	calls    *pending.Registry[json.RawMessage]
	inflight sync.Map // key -> *Call

	listeners listeners

	mu          sync.Mutex
	sub         transport.Subscription
	closed      bool
	state       SessionState
	hostVersion string
	enabled     bool
	accounts    []string
	enabling    *Call
	enableMu    sync.Mutex

	journalWG sync.WaitGroup
}

// Call is the pending result of one call.
type Call struct {
	id     uint64
	method string
	handle *pending.Handle[json.RawMessage]
}

// ID returns the call identity sent on the wire.
func (c *Call) ID() uint64 { return c.id }

// Method returns the called method.
func (c *Call) Method() string { return c.method }

// Done is closed once the call settles.
func (c *Call) Done() <-chan struct{} { return c.handle.Done() }

// Wait blocks until the call settles or ctx is done. Returning on ctx does
// not cancel the call.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	res, err := c.handle.Wait(ctx)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return nil, err
		}
		return nil, &callError{method: c.method, id: c.id, err: err}
	}
	return res, nil
}

// New creates an Engine and subscribes it to opts.Source.
func New(opts Options) (*Engine, error) {
	if opts.Target == nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, ErrNoTarget)
	}
	hostRange, err := semver.ParseConstraint(opts.HostVersionConstraint)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}

	e := &Engine{
		targetOrigin: opts.targetOrigin(),
		timeout:      opts.timeout(),
		target:       opts.Target,
		journal:      opts.Journal,
		metrics:      opts.Metrics,
		hostRange:    hostRange,
		state:        StateDisconnected,
	}
	if e.journal == nil {
		e.journal = &journal.NoOpJournal{}
	}
	e.calls = pending.New(pending.Params[json.RawMessage]{
		Timeout:  e.timeout,
		OnSettle: e.onSettle,
	})

	if opts.Source != nil {
		sub, err := opts.Source.Subscribe(e.HandleMessage)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to subscribe to message source: %w", logPrefix, err)
		}
		e.sub = sub
	}

	slog.Info(fmt.Sprintf("%s - Bridge ready target=%s timeout=%s", logPrefix, e.targetOrigin, e.timeout))
	return e, nil
}

// IsFrame always reports true; it distinguishes this provider from others.
func (e *Engine) IsFrame() bool { return true }

// Timeout returns the per-call timeout.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Pending returns the number of calls awaiting a reply.
func (e *Engine) Pending() int { return e.calls.Len() }

// Call sends method with params and returns the pending call. The context is
// only checked before sending; use Call.Wait to bound the wait.
func (e *Engine) Call(ctx context.Context, method string, params any) (*Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := e.nextID.Add(1)
	req, err := wire.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode envelope: %w", logPrefix, err)
	}

	key := wire.KeyOf(id)
	c := &Call{id: id, method: method}

	// Registering under mu keeps Close from missing a call it raced with.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s - %s: %w", logPrefix, method, ErrClosed)
	}
	e.inflight.Store(key, c)
	handle, err := e.calls.Register(key)
	if err != nil {
		e.inflight.Delete(key)
		e.mu.Unlock()
		return nil, err
	}
	c.handle = handle
	e.mu.Unlock()
	e.metrics.CallStarted(method)

	slog.Debug(fmt.Sprintf("%s - send id=%d method=%s", logPrefix, id, method))
	if err := e.target.Send(data, e.targetOrigin); err != nil {
		// Delivery failure is not observable to the caller; the call times out.
		slog.Warn(fmt.Sprintf("%s - send failed id=%d method=%s: %v", logPrefix, id, method, err))
	}
	return c, nil
}

// RequestArgs is the argument of Request.
type RequestArgs struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Request sends a call and waits for its result.
func (e *Engine) Request(ctx context.Context, args RequestArgs) (json.RawMessage, error) {
	c, err := e.Call(ctx, args.Method, args.Params)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx)
}

// RequestInto is Request followed by decoding the result into out.
func (e *Engine) RequestInto(ctx context.Context, args RequestArgs, out any) error {
	res, err := e.Request(ctx, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("%s - failed to decode %s result: %w", logPrefix, args.Method, err)
	}
	return nil
}

// Close unsubscribes from the source and rejects every pending call with ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()

	var err error
	if sub != nil {
		if uerr := sub.Unsubscribe(); uerr != nil {
			err = fmt.Errorf("%s - failed to unsubscribe: %w", logPrefix, uerr)
		}
	}
	n := e.calls.RejectAll(ErrClosed)
	e.flushJournal()
	slog.Info(fmt.Sprintf("%s - Bridge closed, rejected %d pending calls", logPrefix, n))
	return err
}

// flushJournal waits for in-flight journal writes, at most journalTimeout.
func (e *Engine) flushJournal() {
	done := make(chan struct{})
	go func() {
		e.journalWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(journalTimeout):
		slog.Warn(fmt.Sprintf("%s - journal writes still pending after %s", logPrefix, journalTimeout))
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// HandleMessage processes one inbound transport message. It never panics on
// foreign traffic: anything unrecognized is ignored.
func (e *Engine) HandleMessage(msg transport.Message) {
	if !transport.OriginMatches(e.targetOrigin, msg.Origin) {
		e.metrics.OriginRejected()
		slog.Debug(fmt.Sprintf("%s - ignoring message from origin %q", logPrefix, msg.Origin))
		return
	}
	if e.isClosed() {
		return
	}

	in, kind := wire.Classify(msg.Data)
	e.metrics.Inbound(kind.String())

	switch kind {
	case wire.KindResult:
		key, _ := wire.Key(in.ID)
		e.settle(key, pending.Outcome[json.RawMessage]{Value: in.Result})
	case wire.KindError:
		key, _ := wire.Key(in.ID)
		e.settle(key, pending.Outcome[json.RawMessage]{Err: &RpcError{
			Code:   in.ErrorObject.Code,
			Reason: in.ErrorObject.Message,
			Data:   in.ErrorObject.Data,
		}})
	case wire.KindNotification:
		e.dispatchNotification(in)
	default:
		slog.Debug(fmt.Sprintf("%s - ignoring unrecognized message (%d bytes)", logPrefix, len(msg.Data)))
	}
}

func (e *Engine) settle(key string, o pending.Outcome[json.RawMessage]) {
	if !e.calls.Settle(key, o) {
		slog.Debug(fmt.Sprintf("%s - late or unmatched reply id=%s", logPrefix, key))
		return
	}
	if o.Err == nil {
		e.markConnectedByCall()
	}
}

// onSettle runs once per call, from whichever path settled it.
func (e *Engine) onSettle(h *pending.Handle[json.RawMessage], o pending.Outcome[json.RawMessage]) {
	v, ok := e.inflight.LoadAndDelete(h.Key())
	if !ok {
		return
	}
	c := v.(*Call)

	entry := &journal.Entry{
		CallID:    h.Key(),
		Method:    c.method,
		Outcome:   outcomeOf(o.Err),
		StartedAt: h.Started(),
		SettledAt: time.Now(),
	}
	if o.Err != nil {
		entry.ErrorMessage = o.Err.Error()
		if rpcErr, ok := IsRpcError(o.Err); ok {
			code := rpcErr.Code
			entry.ErrorCode = &code
		}
	}
	e.metrics.CallSettled(c.method, string(entry.Outcome), entry.Duration())

	e.journalWG.Add(1)
	go func() {
		defer e.journalWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := e.journal.Record(ctx, entry); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to journal call id=%s: %v", logPrefix, entry.CallID, err))
		}
	}()
}

func outcomeOf(err error) journal.Outcome {
	switch {
	case err == nil:
		return journal.OutcomeResolved
	case errors.Is(err, ErrTimeout):
		return journal.OutcomeTimeout
	case errors.Is(err, ErrClosed):
		return journal.OutcomeClosed
	default:
		return journal.OutcomeRejected
	}
}
