package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u, err := cfg.URL()
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if u != "ws://localhost:8080/ws" {
		t.Fatalf("expected default url, got %s", u)
	}
	if cfg.ConnectTimeout() != DefaultConnectTimeout || cfg.InboundBuffer() != DefaultInboundBuffer {
		t.Fatalf("expected default client settings, got %+v", cfg.Client)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  endpoint: https://quiz.example.com/api/
client:
  connect_timeout: 2s
  write_timeout: nonsense
  read_limit: 1024
  inbound_buffer: 4
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u, err := cfg.URL()
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if u != "wss://quiz.example.com/api/ws" {
		t.Fatalf("unexpected url %s", u)
	}
	if cfg.ConnectTimeout() != 2*time.Second {
		t.Fatalf("expected 2s connect timeout, got %v", cfg.ConnectTimeout())
	}
	if cfg.WriteTimeout() != DefaultWriteTimeout {
		t.Fatalf("expected fallback write timeout, got %v", cfg.WriteTimeout())
	}
	if cfg.ReadLimit() != 1024 || cfg.InboundBuffer() != 4 {
		t.Fatalf("unexpected client settings %+v", cfg.Client)
	}
}

func TestURLRejectsUnknownScheme(t *testing.T) {
	cfg := Default()
	cfg.Server.Endpoint = "ftp://example.com"
	if _, err := cfg.URL(); err == nil {
		t.Fatalf("expected scheme error")
	}
}
