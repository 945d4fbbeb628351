package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_SIGNING_SECRET", "s1")
	t.Setenv("API_KEY_INDEX_SECRET", "s2")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" || c.Cache.Kind != "memory" {
		t.Fatalf("drivers = %q / %q", c.Storage.Driver, c.Cache.Kind)
	}
	if c.Publish.Concurrency != 1 {
		t.Fatalf("concurrency = %d", c.Publish.Concurrency)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	p := writeConfig(t, `
server:
  addr: ":9000"
security:
  state_signing_secret: from-yaml
  api_key_index_secret: from-yaml
providers:
  twitter:
    client_id: yaml-id
    client_secret: yaml-secret
`)
	t.Setenv("SERVER_ADDR", ":9100")
	t.Setenv("TWITTER_CLIENT_ID", "env-id")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":9100" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
	if c.Providers.Twitter.ClientID != "env-id" {
		t.Fatalf("client id = %q", c.Providers.Twitter.ClientID)
	}
	if !c.Providers.Twitter.Enabled {
		t.Fatal("provider with credentials should be enabled")
	}
}

func TestLoadRejectsIncompleteStorage(t *testing.T) {
	t.Setenv("STATE_SIGNING_SECRET", "s1")
	t.Setenv("API_KEY_INDEX_SECRET", "s2")
	t.Setenv("STORAGE_DRIVER", "postgres")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error without state signing secret")
	}
}

func TestRedirectURI(t *testing.T) {
	t.Setenv("STATE_SIGNING_SECRET", "s1")
	t.Setenv("API_KEY_INDEX_SECRET", "s2")
	t.Setenv("SERVER_BASE_URL", "https://api.example.com/")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.RedirectURI("twitter")
	if got != "https://api.example.com/connect/twitter/callback" {
		t.Fatalf("redirect uri = %q", got)
	}
}
