package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvAndNormalizes(t *testing.T) {
	t.Setenv("TEST_BNET_KEY", "client-key")
	path := writeConfig(t, `
associations:
  backend: memory
battlenet:
  key: ${TEST_BNET_KEY}
  secret: s3cret
  region: " EU "
  domain: https://forum.example.com/
  fetch_timeout: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BattleNet.Key != "client-key" {
		t.Errorf("Key = %q, want %q", cfg.BattleNet.Key, "client-key")
	}
	if cfg.BattleNet.Region != "eu" {
		t.Errorf("Region = %q, want %q", cfg.BattleNet.Region, "eu")
	}
	if cfg.BattleNet.Domain != "https://forum.example.com" {
		t.Errorf("Domain = %q, want trailing slash trimmed", cfg.BattleNet.Domain)
	}
	if cfg.BattleNet.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.BattleNet.FetchTimeout)
	}
	if !cfg.BattleNet.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	if got := cfg.BattleNet.Scopes; len(got) != 1 || got[0] != "wow.profile" {
		t.Errorf("Scopes = %v, want default [wow.profile]", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "associations:\n  backend: etcd\n"},
		{"bad port", "associations:\n  backend: memory\nserver:\n  port: 70000\n"},
		{"max below min", "associations:\n  backend: memory\nregistration:\n  username_min_length: 5\n  username_max_length: 3\n"},
		{"bad session store", "associations:\n  backend: memory\nsession:\n  store: memcached\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Errorf("Load() error = nil, want validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil, want not found")
	}
}

func TestEnabledRequiresAllSettings(t *testing.T) {
	full := BattleNetConfig{Key: "k", Secret: "s", Region: "us", Domain: "https://x"}
	if !full.Enabled() {
		t.Fatal("full config should be enabled")
	}

	for name, mutate := range map[string]func(*BattleNetConfig){
		"key":    func(c *BattleNetConfig) { c.Key = "" },
		"secret": func(c *BattleNetConfig) { c.Secret = "" },
		"region": func(c *BattleNetConfig) { c.Region = "" },
		"domain": func(c *BattleNetConfig) { c.Domain = "" },
	} {
		c := full
		mutate(&c)
		if c.Enabled() {
			t.Errorf("missing %s: Enabled() = true, want false", name)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.BattleNet.Secret = "top"
	cfg.Session.Secret = "sess"

	r := cfg.Redacted()
	if r.BattleNet.Secret == "top" || r.Session.Secret == "sess" {
		t.Errorf("Redacted() leaked secrets: %+v", r.BattleNet)
	}
	if r.State.SigningKey != "" {
		t.Errorf("empty secret should stay empty, got %q", r.State.SigningKey)
	}
	if cfg.BattleNet.Secret != "top" {
		t.Error("Redacted() mutated the original")
	}
}
