package testsupport

import (
	"path/filepath"
	"testing"

	"dispatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Socket = filepath.Join(base, "dispatchd.sock")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Bridge.Bind = "127.0.0.1:0"
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWorkerDisabled turns off the embedded daemon worker.
func WithWorkerDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Worker.Enabled = false
	}
}
