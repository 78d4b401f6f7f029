package transport

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

const pipeLogPrefix = "transport:pipe"

const pipeQueueSize = 256

// Endpoint is one side of an in-process Pipe. It is both a Source and a Target.
// Delivery is asynchronous and ordered: each endpoint drains its queue on a
// single goroutine.
type Endpoint struct {
	origin string
	peer   *Endpoint

	mu       sync.RWMutex
	nextSub  uint64
	handlers map[uint64]Handler

	queue     chan Message
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPipe returns two connected endpoints. Messages sent from frame arrive at
// host stamped with frameOrigin and vice versa.
func NewPipe(frameOrigin, hostOrigin string) (frame, host *Endpoint) {
	frame = newEndpoint(frameOrigin)
	host = newEndpoint(hostOrigin)
	frame.peer = host
	host.peer = frame
	return frame, host
}

func newEndpoint(origin string) *Endpoint {
	e := &Endpoint{
		origin:   origin,
		handlers: make(map[uint64]Handler),
		queue:    make(chan Message, pipeQueueSize),
		done:     make(chan struct{}),
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// Origin returns the origin this endpoint stamps on what it sends.
func (e *Endpoint) Origin() string { return e.origin }

// Send queues data for the peer. Like a browser postMessage, a targetOrigin
// that does not match the peer's origin drops the message silently.
func (e *Endpoint) Send(data []byte, targetOrigin string) error {
	if !OriginMatches(targetOrigin, e.peer.origin) {
		slog.Debug(fmt.Sprintf("%s - dropping message for %s, peer is %s", pipeLogPrefix, targetOrigin, e.peer.origin))
		return nil
	}
	select {
	case <-e.done:
		return ErrClosed
	case <-e.peer.done:
		return ErrClosed
	default:
	}
	msg := Message{Origin: e.origin, Data: append([]byte(nil), data...)}
	select {
	case <-e.done:
		return ErrClosed
	case <-e.peer.done:
		return ErrClosed
	case e.peer.queue <- msg:
		return nil
	}
}

// Subscribe registers h for messages arriving at this endpoint.
func (e *Endpoint) Subscribe(h Handler) (Subscription, error) {
	select {
	case <-e.done:
		return nil, ErrClosed
	default:
	}
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.handlers[id] = h
	e.mu.Unlock()
	return &pipeSubscription{endpoint: e, id: id}, nil
}

// Close stops delivery on this endpoint. Queued messages are discarded.
// It must not be called from inside a handler of the same endpoint.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	e.wg.Wait()
	return nil
}

func (e *Endpoint) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case msg := <-e.queue:
			e.deliver(msg)
		}
	}
}

func (e *Endpoint) deliver(msg Message) {
	e.mu.RLock()
	ids := make([]uint64, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		e.mu.RLock()
		h, ok := e.handlers[id]
		e.mu.RUnlock()
		if ok {
			h(msg)
		}
	}
}

type pipeSubscription struct {
	endpoint *Endpoint
	id       uint64
}

func (s *pipeSubscription) Unsubscribe() error {
	s.endpoint.mu.Lock()
	delete(s.endpoint.handlers, s.id)
	s.endpoint.mu.Unlock()
	return nil
}
