package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dispatch/internal/config"
)

func TestLoadDefaultsExpandPathsAndEnvKey(t *testing.T) {
	t.Setenv("DISPATCH_LLM_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "dispatch")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.Socket != filepath.Join(wantData, "dispatchd.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.Socket)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7519" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != config.Default().LLM.BaseURL {
		t.Fatalf("unexpected LLM base url: %q", cfg.LLM.BaseURL)
	}
	if !cfg.Worker.Enabled {
		t.Fatal("expected embedded worker enabled by default")
	}
	if cfg.QueueDBPath() != filepath.Join(wantData, "jobs.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadParsesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = ""

[worker]
enabled = false
poll_interval = 2

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Worker.Enabled {
		t.Fatal("expected worker disabled via file")
	}
	if cfg.Worker.PollIntervalSeconds != 2 {
		t.Fatalf("unexpected poll interval: %d", cfg.Worker.PollIntervalSeconds)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Paths.APIBind != "" {
		t.Fatalf("expected api bind to stay empty (disabled), got %q", cfg.Paths.APIBind)
	}
}

func TestLoadRejectsBadLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[logging]
format = "xml"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	} else if !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateLLMRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""
	if err := cfg.ValidateLLM(); err == nil {
		t.Fatal("expected error when llm.api_key missing")
	}
	cfg.LLM.APIKey = "k"
	if err := cfg.ValidateLLM(); err != nil {
		t.Fatalf("ValidateLLM failed: %v", err)
	}
}
