package pending

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const registryTestPrefix = "pending:registry_test"

func TestRegister_ResolveSettlesOnce(t *testing.T) {
	r := New[string](Params[string]{Timeout: time.Minute})

	h, err := r.Register("1")
	if err != nil {
		t.Fatalf("%s - Register failed: %v", registryTestPrefix, err)
	}
	if r.Len() != 1 {
		t.Fatalf("%s - Len = %d, want 1", registryTestPrefix, r.Len())
	}

	if !r.Resolve("1", "0x1") {
		t.Fatalf("%s - first Resolve should settle", registryTestPrefix)
	}
	if r.Resolve("1", "0x2") {
		t.Errorf("%s - second Resolve should be a no-op", registryTestPrefix)
	}
	if r.Reject("1", errors.New("late")) {
		t.Errorf("%s - Reject after Resolve should be a no-op", registryTestPrefix)
	}

	got, err := h.Wait(context.Background())
	if err != nil {
		t.Fatalf("%s - Wait returned error: %v", registryTestPrefix, err)
	}
	if got != "0x1" {
		t.Errorf("%s - value = %q, want %q", registryTestPrefix, got, "0x1")
	}
	if r.Len() != 0 {
		t.Errorf("%s - Len = %d after settle, want 0", registryTestPrefix, r.Len())
	}
}

func TestRegister_DuplicateLiveKey(t *testing.T) {
	r := New[int](Params[int]{})
	if _, err := r.Register("a"); err != nil {
		t.Fatalf("%s - Register failed: %v", registryTestPrefix, err)
	}
	_, err := r.Register("a")
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("%s - err = %v, want ErrDuplicateKey", registryTestPrefix, err)
	}

	r.Resolve("a", 1)
	if _, err := r.Register("a"); err != nil {
		t.Errorf("%s - key should be reusable after settle: %v", registryTestPrefix, err)
	}
}

func TestSettle_UnknownKey(t *testing.T) {
	r := New[int](Params[int]{})
	if r.Settle("missing", Outcome[int]{Value: 1}) {
		t.Errorf("%s - Settle of unknown key should report false", registryTestPrefix)
	}
}

func TestTimeout_RejectsAndRemoves(t *testing.T) {
	r := New[string](Params[string]{Timeout: 20 * time.Millisecond})
	h, _ := r.Register("1")

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("%s - record did not time out", registryTestPrefix)
	}

	_, err := h.Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("%s - err = %v, want ErrTimeout", registryTestPrefix, err)
	}
	if r.Len() != 0 {
		t.Errorf("%s - Len = %d after timeout, want 0", registryTestPrefix, r.Len())
	}

	// A late reply is a harmless no-op.
	if r.Resolve("1", "late") {
		t.Errorf("%s - late Resolve should be a no-op", registryTestPrefix)
	}
	o, ok := h.Settled()
	if !ok || !errors.Is(o.Err, ErrTimeout) {
		t.Errorf("%s - outcome changed after late reply: %+v", registryTestPrefix, o)
	}
}

func TestReplyBeforeTimeout_TimerIsNoOp(t *testing.T) {
	var settles atomic.Int32
	r := New[string](Params[string]{
		Timeout:  30 * time.Millisecond,
		OnSettle: func(_ *Handle[string], _ Outcome[string]) { settles.Add(1) },
	})
	h, _ := r.Register("1")
	r.Resolve("1", "ok")

	time.Sleep(80 * time.Millisecond)

	v, err := h.Wait(context.Background())
	if err != nil || v != "ok" {
		t.Errorf("%s - Wait = (%q, %v), want (ok, nil)", registryTestPrefix, v, err)
	}
	if n := settles.Load(); n != 1 {
		t.Errorf("%s - OnSettle called %d times, want 1", registryTestPrefix, n)
	}
}

func TestZeroTimeout_NeverExpires(t *testing.T) {
	r := New[int](Params[int]{})
	h, _ := r.Register("1")
	if !h.Deadline().IsZero() {
		t.Errorf("%s - Deadline = %v, want zero", registryTestPrefix, h.Deadline())
	}
	if _, ok := h.Settled(); ok {
		t.Errorf("%s - record should still be pending", registryTestPrefix)
	}
}

func TestRejectAll(t *testing.T) {
	r := New[int](Params[int]{Timeout: time.Minute})
	closed := errors.New("closed")

	var handles []*Handle[int]
	for _, k := range []string{"1", "2", "3"} {
		h, _ := r.Register(k)
		handles = append(handles, h)
	}

	if n := r.RejectAll(closed); n != 3 {
		t.Fatalf("%s - RejectAll = %d, want 3", registryTestPrefix, n)
	}
	for _, h := range handles {
		if _, err := h.Wait(context.Background()); !errors.Is(err, closed) {
			t.Errorf("%s - key %s err = %v, want closed", registryTestPrefix, h.Key(), err)
		}
	}
	if r.RejectAll(closed) != 0 {
		t.Errorf("%s - second RejectAll should find nothing", registryTestPrefix)
	}
}

func TestWait_ContextCancelDoesNotSettle(t *testing.T) {
	r := New[int](Params[int]{Timeout: time.Minute})
	h, _ := r.Register("1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("%s - err = %v, want context.Canceled", registryTestPrefix, err)
	}
	if r.Len() != 1 {
		t.Errorf("%s - record should remain live after caller gives up", registryTestPrefix)
	}
	if !r.Resolve("1", 5) {
		t.Errorf("%s - record should still be resolvable", registryTestPrefix)
	}
}

func TestConcurrentSettleAndTimeout_AtMostOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		var settles atomic.Int32
		r := New[int](Params[int]{
			Timeout:  time.Millisecond,
			OnSettle: func(_ *Handle[int], _ Outcome[int]) { settles.Add(1) },
		})
		h, _ := r.Register("k")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); r.Resolve("k", 1) }()
		go func() { defer wg.Done(); r.Reject("k", errors.New("x")) }()
		wg.Wait()
		<-h.Done()
		time.Sleep(3 * time.Millisecond)

		if n := settles.Load(); n != 1 {
			t.Fatalf("%s - iteration %d settled %d times", registryTestPrefix, i, n)
		}
	}
}
