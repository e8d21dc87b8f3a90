package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RPCAddress != defaultRPCAddress {
		t.Fatalf("rpc address mismatch: %s", cfg.RPCAddress)
	}
	if cfg.Backend != defaultBackend {
		t.Fatalf("backend mismatch: %s", cfg.Backend)
	}
	if cfg.ChainID != defaultChainID {
		t.Fatalf("chain id mismatch: %d", cfg.ChainID)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	// The written default must round-trip cleanly.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.AuditDBPath != cfg.AuditDBPath {
		t.Fatalf("audit path drifted: %s vs %s", again.AuditDBPath, cfg.AuditDBPath)
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "RPCAddress = \"0.0.0.0:9000\"\nBackend = \"leveldb\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" {
		t.Fatalf("explicit value lost: %s", cfg.RPCAddress)
	}
	if cfg.Backend != "leveldb" {
		t.Fatalf("backend lost: %s", cfg.Backend)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("data dir default missing: %s", cfg.DataDir)
	}
	if cfg.JWTSecretEnv != "TUNELEDGER_JWT_SECRET" {
		t.Fatalf("jwt env default missing: %s", cfg.JWTSecretEnv)
	}
	if cfg.RateLimitPerSec != 20 || cfg.RateLimitBurst != 40 {
		t.Fatalf("rate limit defaults missing: %d/%d", cfg.RateLimitPerSec, cfg.RateLimitBurst)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("Backend = \"oracle\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected backend validation error")
	}
}
