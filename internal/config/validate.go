package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.PollIntervalSeconds <= 0 {
		return errors.New("worker.poll_interval must be positive")
	}
	if c.Worker.ContentionDelayMillis <= 0 {
		return errors.New("worker.contention_delay_millis must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// ValidateLLM checks the settings the bridge needs to reach the hosted model.
// It is separate from Validate so queue-only deployments can run without an
// API key.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/dispatch/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set DISPATCH_LLM_API_KEY env var or edit %s (create with 'dispatch config init')", defaultPath)
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}
