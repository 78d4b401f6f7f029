package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/morezero/frame-bridge/pkg/semver"
	"github.com/morezero/frame-bridge/pkg/transport"
	"github.com/morezero/frame-bridge/pkg/wire"
)

const hostLogPrefix = "dispatcher:host"

// DefaultRequestTimeout bounds a single handler invocation.
const DefaultRequestTimeout = 30 * time.Second

// HostParams configures a Host.
type HostParams struct {
	Dispatcher *Dispatcher
	Source     transport.Source
	Target     transport.Target
	// FrameOrigin is where replies and notifications are addressed, and the
	// only origin whose requests are answered. Empty or "*" accepts any.
	FrameOrigin    string
	RequestTimeout time.Duration
}

// Host answers frame requests through a Dispatcher.
type Host struct {
	dispatcher  *Dispatcher
	source      transport.Source
	target      transport.Target
	frameOrigin string
	timeout     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu  sync.Mutex
	sub transport.Subscription
}

// NewHost creates a Host. Call Start to begin answering.
func NewHost(p HostParams) (*Host, error) {
	if p.Dispatcher == nil || p.Source == nil || p.Target == nil {
		return nil, errors.New("dispatcher:host - dispatcher, source and target are required")
	}
	frameOrigin := p.FrameOrigin
	if frameOrigin == "" {
		frameOrigin = transport.AnyOrigin
	}
	timeout := p.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		dispatcher:  p.Dispatcher,
		source:      p.Source,
		target:      p.Target,
		frameOrigin: frameOrigin,
		timeout:     timeout,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start subscribes to the source.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub != nil {
		return nil
	}
	sub, err := h.source.Subscribe(h.handleMessage)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe: %w", hostLogPrefix, err)
	}
	h.sub = sub
	slog.Info(fmt.Sprintf("%s - Host serving %d methods for %s", hostLogPrefix, len(h.dispatcher.Methods()), h.frameOrigin))
	return nil
}

// Stop unsubscribes and waits for in-flight handlers.
func (h *Host) Stop() error {
	h.mu.Lock()
	sub := h.sub
	h.sub = nil
	// Cancelling under mu orders it against wg.Add in handleMessage.
	h.cancel()
	h.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	h.wg.Wait()
	return err
}

// Notify pushes a notification to the frame.
func (h *Host) Notify(method string, params any) error {
	n, err := wire.NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%s - failed to encode %s: %w", hostLogPrefix, method, err)
	}
	return h.target.Send(data, h.frameOrigin)
}

// Connect announces the session, advertising version when it is set.
func (h *Host) Connect(version string) error {
	if version == "" {
		return h.Notify(wire.MethodConnect, []any{})
	}
	if !semver.IsExactVersion(version) {
		return fmt.Errorf("%s - invalid host version %q", hostLogPrefix, version)
	}
	return h.Notify(wire.MethodConnect, []any{map[string]string{"version": version}})
}

// Close announces the end of the session.
func (h *Host) Close(code int, reason string) error {
	return h.Notify(wire.MethodClose, []any{code, reason})
}

// track registers one in-flight handler. It reports false once Stop began.
func (h *Host) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		return false
	}
	h.wg.Add(1)
	return true
}

func (h *Host) handleMessage(msg transport.Message) {
	if !transport.OriginMatches(h.frameOrigin, msg.Origin) {
		slog.Debug(fmt.Sprintf("%s - ignoring request from origin %q", hostLogPrefix, msg.Origin))
		return
	}
	var req wire.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Debug(fmt.Sprintf("%s - ignoring undecodable message: %v", hostLogPrefix, err))
		return
	}
	if _, ok := wire.Key(req.ID); !ok {
		// Only requests carrying an identity get a reply.
		return
	}
	if !h.track() {
		return
	}
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
		defer cancel()

		resp := h.dispatcher.Dispatch(ctx, &req)
		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to encode reply id=%s: %v", hostLogPrefix, req.ID, err))
			return
		}
		if err := h.target.Send(data, h.frameOrigin); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to send reply id=%s: %v", hostLogPrefix, req.ID, err))
		}
	}()
}
