package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.ServerAddr != ":8080" {
		t.Errorf("ServerAddr = %q, want :8080", cfg.ServerAddr)
	}
	if cfg.WSTypingTTL != 0 {
		t.Errorf("WSTypingTTL = %d, want 0 (disabled by default)", cfg.WSTypingTTL)
	}
	if cfg.DBMaxConnections() != 20 {
		t.Errorf("DBMaxConnections() = %d, want 20", cfg.DBMaxConnections())
	}
	if cfg.MaxUploadSize != 20<<20 {
		t.Errorf("MaxUploadSize = %d, want %d", cfg.MaxUploadSize, 20<<20)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	data := []byte("server_addr: \":9090\"\nws_typing_ttl_seconds: 8\nmax_ws_connections: 50\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))

	cfg := Load()
	if cfg.ServerAddr != ":9090" {
		t.Errorf("ServerAddr = %q, want :9090", cfg.ServerAddr)
	}
	if cfg.WSTypingTTL != 8 {
		t.Errorf("WSTypingTTL = %d, want 8", cfg.WSTypingTTL)
	}
	if cfg.MaxWSConnections != 50 {
		t.Errorf("MaxWSConnections = %d, want 50", cfg.MaxWSConnections)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	if err := os.WriteFile(path, []byte("server_addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/brew")
	t.Setenv("TOKEN_TTL_MINUTES", "30")

	cfg := Load()
	if cfg.ServerAddr != ":7070" {
		t.Errorf("ServerAddr = %q, want :7070 (env wins over yaml)", cfg.ServerAddr)
	}
	if cfg.DatabaseURL() != "postgres://u:p@db:5432/brew" {
		t.Errorf("DatabaseURL() = %q", cfg.DatabaseURL())
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want 30m", cfg.TokenTTL)
	}
}
