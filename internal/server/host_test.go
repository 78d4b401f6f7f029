package server

import (
	"os"
	"path/filepath"
	"testing"
)

const hostTestPrefix = "server:host_test"

func TestHostFixture_FromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HostFixtureFile = ""

	fx, err := hostFixture(cfg)
	if err != nil {
		t.Fatalf("%s - hostFixture: %v", hostTestPrefix, err)
	}
	if fx.ChainID != "0x1" || fx.NetworkID != "1" || fx.Version != "1.0.0" || len(fx.Accounts) != 1 {
		t.Errorf("%s - fixture = %+v", hostTestPrefix, fx)
	}
}

func TestHostFixture_FileOverlay(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wallet.json")
	body := `{"version":"2.1.0","chainId":"0x5","methods":{"eth_blockNumber":{"result":"0x10"}}}`
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("%s - write: %v", hostTestPrefix, err)
	}
	cfg := testConfig()
	cfg.HostFixtureFile = p

	fx, err := hostFixture(cfg)
	if err != nil {
		t.Fatalf("%s - hostFixture: %v", hostTestPrefix, err)
	}
	if fx.ChainID != "0x5" || fx.NetworkID != "1" || fx.Version != "2.1.0" {
		t.Errorf("%s - fixture = %+v", hostTestPrefix, fx)
	}
	if _, ok := fx.Methods["eth_blockNumber"]; !ok {
		t.Errorf("%s - expected canned eth_blockNumber", hostTestPrefix)
	}
}

func TestHostFixture_MissingFile(t *testing.T) {
	cfg := testConfig()
	cfg.HostFixtureFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := hostFixture(cfg); err == nil {
		t.Errorf("%s - expected error for missing fixture file", hostTestPrefix)
	}
}
