package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "")
	fs := afero.NewMemMapFs()

	cfg, err := Load(fs, "/cfg/config.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.WatchedKey != "watched" {
		t.Errorf("WatchedKey = %q, want watched", cfg.Store.WatchedKey)
	}
	if cfg.OMDb.Timeout != 0 {
		t.Errorf("default timeout should be 0, got %v", cfg.OMDb.Timeout)
	}
	if cfg.OMDb.Endpoint == "" {
		t.Error("default endpoint should be set")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "")
	fs := afero.NewMemMapFs()
	path := "/home/u/.popcorn/config.yaml"

	cfg := DefaultConfig()
	cfg.OMDb.APIKey = "abc123"
	cfg.OMDb.Timeout = 15 * time.Second
	cfg.Store.WatchedKey = "seen"
	if err := cfg.Save(fs, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perms = %v, want 0600", info.Mode().Perm())
	}

	got, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.OMDb.APIKey != "abc123" || got.OMDb.Timeout != 15*time.Second || got.Store.WatchedKey != "seen" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "")
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/c.yaml", []byte("omdb:\n  api_key: k\n  timeout: 5s\n"), 0600)

	cfg, err := Load(fs, "/c.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OMDb.APIKey != "k" || cfg.OMDb.Timeout != 5*time.Second {
		t.Errorf("omdb section not read: %+v", cfg.OMDb)
	}
	if cfg.Store.WatchedKey != "watched" || cfg.Log.Level != "info" {
		t.Errorf("unset sections should keep defaults: %+v %+v", cfg.Store, cfg.Log)
	}
	if err := cfg.ParseError(); err != nil {
		t.Errorf("valid config reported a parse error: %v", err)
	}
}

func TestLoadBlankedFieldsRestored(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "")
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/c.yaml", []byte("store:\n  watched_key: \"\"\n  path: \"\"\n"), 0600)

	cfg, _ := Load(fs, "/c.yaml")
	if cfg.Store.WatchedKey != "watched" || cfg.Store.Path == "" {
		t.Errorf("blank store fields should fall back to defaults: %+v", cfg.Store)
	}
}

func TestLoadCorruptFallsBackToDefaults(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "")
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/c.yaml", []byte("omdb: [unclosed"), 0600)

	cfg, err := Load(fs, "/c.yaml")
	if err != nil {
		t.Fatalf("corrupt config should not fail: %v", err)
	}
	if cfg.Store.WatchedKey != "watched" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if cfg.ParseError() == nil {
		t.Error("corrupt config should be reported through ParseError")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OMDB_API_KEY", "from-env")
	t.Setenv("POPCORN_DB_PATH", "/tmp/x.db")
	t.Setenv("POPCORN_LOG_LEVEL", "debug")
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/c.yaml", []byte("omdb:\n  api_key: from-file\n"), 0600)

	cfg, err := Load(fs, "/c.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OMDb.APIKey != "from-env" {
		t.Errorf("env should win, got %q", cfg.OMDb.APIKey)
	}
	if cfg.Store.Path != "/tmp/x.db" || cfg.Log.Level != "debug" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Store, cfg.Log)
	}
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv("POPCORN_CONFIG", "/etc/popcorn.yaml")
	if got := ConfigPath(); got != "/etc/popcorn.yaml" {
		t.Errorf("ConfigPath() = %q", got)
	}

	t.Setenv("POPCORN_CONFIG", "")
	if got := ConfigPath(); !strings.HasSuffix(got, "config.yaml") {
		t.Errorf("ConfigPath() = %q", got)
	}
}

func TestLoadKeysFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/keys.sh", []byte("#!/bin/sh\nexport OTHER=1\nexport OMDB_API_KEY=\"9067ef3\"\n"), 0600)

	cfg := DefaultConfig()
	if err := cfg.LoadKeysFromFile(fs, "/keys.sh"); err != nil {
		t.Fatalf("LoadKeysFromFile failed: %v", err)
	}
	if cfg.OMDb.APIKey != "9067ef3" {
		t.Errorf("APIKey = %q", cfg.OMDb.APIKey)
	}

	if err := cfg.LoadKeysFromFile(fs, "/missing.sh"); err == nil {
		t.Error("expected error for missing file")
	}
}
