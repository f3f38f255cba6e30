package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/pomstack/pkg/errors"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Kind != CacheMemory {
		t.Errorf("cache kind = %q, want %q", cfg.Cache.Kind, CacheMemory)
	}
	if cfg.HTTP.Timeout.Duration() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.HTTP.Timeout.Duration())
	}
	if cfg.Server.Addr == "" {
		t.Error("default server addr missing")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pomstack.toml")
	content := `
active_profiles = ["corp"]

[cache]
kind = "file"
dir = "/tmp/pomstack-cache"
ttl = "1h"

[http]
user_agent = "custom-agent"
max_retries = 5

[[repositories]]
id = "corp"
url = "https://repo.corp.example/maven2"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Kind != CacheFile || cfg.Cache.Dir != "/tmp/pomstack-cache" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL.Duration() != time.Hour {
		t.Errorf("ttl = %v, want 1h", cfg.Cache.TTL.Duration())
	}
	if cfg.HTTP.UserAgent != "custom-agent" || cfg.HTTP.MaxRetries != 5 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	// Unset keys keep their defaults.
	if cfg.HTTP.Timeout.Duration() != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.HTTP.Timeout.Duration())
	}
	if len(cfg.Repositories) != 1 || cfg.Repositories[0].URL != "https://repo.corp.example/maven2" {
		t.Errorf("repositories = %+v", cfg.Repositories)
	}
	if len(cfg.ActiveProfiles) != 1 || cfg.ActiveProfiles[0] != "corp" {
		t.Errorf("active profiles = %v", cfg.ActiveProfiles)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[cache\nkind = "), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected %v, got %v", errors.ErrCodeInvalidInput, err)
	}
}

func TestBuildCache(t *testing.T) {
	tests := []struct {
		name string
		cfg  CacheConfig
	}{
		{"none", CacheConfig{Kind: CacheNone}},
		{"empty kind", CacheConfig{}},
		{"memory", CacheConfig{Kind: CacheMemory, Size: 8}},
		{"file", CacheConfig{Kind: CacheFile, Dir: t.TempDir()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.cfg.BuildCache(context.Background())
			if err != nil {
				t.Fatalf("BuildCache: %v", err)
			}
			defer c.Close()
			if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
				t.Errorf("Set: %v", err)
			}
		})
	}

	if _, err := (CacheConfig{Kind: "bogus"}).BuildCache(context.Background()); err == nil {
		t.Error("unknown kind should fail")
	}
}
