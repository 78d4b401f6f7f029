package commsutil

import (
	"strings"
	"testing"
)

const codecTestPrefix = "commsutil:codec_test"

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{name: "event", input: map[string]any{"kind": "close", "code": 4900}, want: `{"code":4900,"kind":"close"}`},
		{name: "accounts", input: []string{"0xabc"}, want: `["0xabc"]`},
		{name: "nil", input: nil, want: "null"},
		{name: "channel is not serializable", input: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), codecLogPrefix) {
					t.Fatalf("%s - expected prefixed error, got %v", codecTestPrefix, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
			}
			if string(data) != tt.want {
				t.Errorf("%s - EncodePayload() = %q, want %q", codecTestPrefix, data, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	type event struct {
		Kind     string   `json:"kind"`
		Accounts []string `json:"accounts"`
	}

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "object", data: `{"kind":"accountsChanged","accounts":["0xabc"]}`},
		{name: "surrounding whitespace", data: "  {\"kind\":\"accountsChanged\",\"accounts\":[\"0xabc\"]}\n"},
		{name: "invalid json", data: `{invalid}`, wantErr: true},
		{name: "empty data", data: "", wantErr: true},
		{name: "trailing value", data: `{"kind":"connect"}{"kind":"close"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got event
			err := DecodePayload([]byte(tt.data), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("%s - expected error but got nil", codecTestPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
			}
			if got.Kind != "accountsChanged" || len(got.Accounts) != 1 || got.Accounts[0] != "0xabc" {
				t.Errorf("%s - decoded = %+v", codecTestPrefix, got)
			}
		})
	}
}
