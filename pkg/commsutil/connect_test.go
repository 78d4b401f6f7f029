package commsutil

import (
	"testing"
	"time"

	comms "github.com/nats-io/nats.go"
)

const connectTestPrefix = "commsutil:connect_test"

func TestConnect_InvalidURL(t *testing.T) {
	nc, err := Connect("invalid://not-a-nats-server", "test-client")
	if err == nil {
		if nc != nil {
			nc.Close()
		}
		t.Fatalf("%s - expected error for invalid URL", connectTestPrefix)
	}
	if nc != nil {
		t.Errorf("%s - expected nil connection on error", connectTestPrefix)
	}
}

func TestConnectWith_EmptyURL(t *testing.T) {
	if _, err := ConnectWith(ConnectParams{Name: "x"}); err == nil {
		t.Fatalf("%s - expected error for empty URL", connectTestPrefix)
	}
}

func TestConnectParams_Defaults(t *testing.T) {
	opts := comms.GetDefaultOptions()
	for _, o := range (ConnectParams{Name: "bridge"}).options() {
		if err := o(&opts); err != nil {
			t.Fatalf("%s - option failed: %v", connectTestPrefix, err)
		}
	}
	if opts.Name != "bridge" {
		t.Errorf("%s - Name = %q", connectTestPrefix, opts.Name)
	}
	if opts.Timeout != defaultDialTimeout || opts.MaxReconnect != defaultMaxReconnects || opts.ReconnectWait != defaultReconnectWait {
		t.Errorf("%s - timeout=%s maxReconnect=%d wait=%s", connectTestPrefix, opts.Timeout, opts.MaxReconnect, opts.ReconnectWait)
	}
}

func TestConnectParams_Overrides(t *testing.T) {
	var got []bool
	p := ConnectParams{Name: "host", DialTimeout: time.Second, MaxReconnects: -1, OnStatus: func(c bool) { got = append(got, c) }}
	opts := comms.GetDefaultOptions()
	for _, o := range p.options() {
		if err := o(&opts); err != nil {
			t.Fatalf("%s - option failed: %v", connectTestPrefix, err)
		}
	}
	if opts.Timeout != time.Second || opts.MaxReconnect != -1 {
		t.Errorf("%s - timeout=%s maxReconnect=%d", connectTestPrefix, opts.Timeout, opts.MaxReconnect)
	}

	opts.DisconnectedErrCB(nil, nil)
	opts.ReconnectedCB(&comms.Conn{})
	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("%s - status calls = %v, want [false true]", connectTestPrefix, got)
	}
}
