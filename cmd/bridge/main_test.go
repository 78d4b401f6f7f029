package main

import (
	"strings"
	"testing"
)

const mainTestPrefix = "cmd/bridge:main_test"

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "host", "call", "migrate", "clear", "ensure-db", "DATABASE_URL", "COMMS_URL"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestParseCallArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantMethod string
		wantParams string
		wantErr    bool
	}{
		{"no args", nil, "", "", true},
		{"empty method", []string{""}, "", "", true},
		{"method only", []string{"eth_chainId"}, "eth_chainId", "", false},
		{"array params", []string{"eth_getBalance", `["0xabc","latest"]`}, "eth_getBalance", `["0xabc","latest"]`, false},
		{"object params", []string{"wallet_switch", `{"chainId":"0x5"}`}, "wallet_switch", `{"chainId":"0x5"}`, false},
		{"invalid params", []string{"eth_chainId", `[`}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, params, err := parseCallArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("%s - err = %v, wantErr %v", mainTestPrefix, err, tt.wantErr)
			}
			if method != tt.wantMethod || string(params) != tt.wantParams {
				t.Errorf("%s - got (%q, %s), want (%q, %s)", mainTestPrefix, method, params, tt.wantMethod, tt.wantParams)
			}
		})
	}
}
