package bridge

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/morezero/frame-bridge/pkg/transport"
	"github.com/morezero/frame-bridge/pkg/wire"
)

const (
	hostOrigin  = "https://wallet.example"
	otherOrigin = "https://evil.example"
)

type sentMessage struct {
	req          wire.Request
	targetOrigin string
}

// recordingTarget captures every envelope the engine sends.
type recordingTarget struct {
	ch  chan sentMessage
	err error
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{ch: make(chan sentMessage, 64)}
}

func (r *recordingTarget) Send(data []byte, targetOrigin string) error {
	var req wire.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	r.ch <- sentMessage{req: req, targetOrigin: targetOrigin}
	return r.err
}

func (r *recordingTarget) next(t *testing.T) sentMessage {
	t.Helper()
	select {
	case m := <-r.ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("bridge:helpers_test - no envelope sent")
		return sentMessage{}
	}
}

func (r *recordingTarget) count() int {
	return len(r.ch)
}

// fakeSource hands the subscribed handler back to the test.
type fakeSource struct {
	mu           sync.Mutex
	handler      transport.Handler
	unsubscribed bool
	err          error
}

func (s *fakeSource) Subscribe(h transport.Handler) (transport.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	return s, nil
}

func (s *fakeSource) Unsubscribe() error {
	s.mu.Lock()
	s.unsubscribed = true
	s.handler = nil
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) deliver(origin, data string) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(transport.Message{Origin: origin, Data: []byte(data)})
	}
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *recordingTarget) {
	t.Helper()
	target := newRecordingTarget()
	if opts.Target == nil {
		opts.Target = target
	}
	if opts.TargetOrigin == "" {
		opts.TargetOrigin = hostOrigin
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("bridge:helpers_test - New failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, target
}

func deliver(e *Engine, data string) {
	e.HandleMessage(transport.Message{Origin: hostOrigin, Data: []byte(data)})
}

func reply(e *Engine, id json.RawMessage, result string) {
	deliver(e, `{"jsonrpc":"2.0","id":`+string(id)+`,"result":`+result+`}`)
}

func waitErr(t *testing.T, c *Call) error {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("bridge:helpers_test - call %d did not settle", c.ID())
	}
	_, err := c.Wait(contextBackground())
	return err
}

var errSend = errors.New("send failed")
