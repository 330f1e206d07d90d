package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"fidctail/internal/sources"
)

// Validate ensures the configuration is usable. Tenant credentials are checked
// separately by ValidateTenant because only the tail command needs them.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateTail(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateTenant ensures the monitoring API host and log API key are set.
func (c *Config) ValidateTenant() error {
	if c.Tenant.Host == "" {
		return missingTenantField("tenant.host", "FIDC_HOST")
	}
	parsed, err := url.Parse(c.Tenant.Host)
	if err != nil {
		return fmt.Errorf("tenant.host: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("tenant.host: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("tenant.host: missing host in %q", c.Tenant.Host)
	}
	if c.Tenant.APIKeyID == "" {
		return missingTenantField("tenant.api_key_id", "FIDC_API_KEY_ID")
	}
	if c.Tenant.APIKeySecret == "" {
		return missingTenantField("tenant.api_key_secret", "FIDC_API_KEY_SECRET")
	}
	return nil
}

func missingTenantField(field, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/fidctail/config.toml"
	}
	return fmt.Errorf("%s is required. Set %s or edit %s (create with 'fidctail config init')", field, env, defaultPath)
}

func (c *Config) validateSource() error {
	if c.Tenant.Source == "" {
		return errors.New("tenant.source must be set")
	}
	if !sources.Valid(c.Tenant.Source) {
		return fmt.Errorf("tenant.source: unknown source %q (see 'fidctail sources')", c.Tenant.Source)
	}
	return nil
}

func (c *Config) validateTail() error {
	if err := ensurePositiveMap(map[string]int{
		"tail.poll_interval":        c.Tail.PollInterval,
		"tail.error_retry_interval": c.Tail.ErrorRetryInterval,
		"tail.request_timeout":      c.Tail.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Tail.MaxConsecutiveFailures < 0 {
		return errors.New("tail.max_consecutive_failures must be >= 0")
	}
	switch c.Tail.EndOfStream {
	case EndOfStreamRestart, EndOfStreamStop:
	default:
		return fmt.Errorf("tail.end_of_stream: unsupported value %q (want %q or %q)", c.Tail.EndOfStream, EndOfStreamRestart, EndOfStreamStop)
	}
	switch c.Tail.Output {
	case OutputAuto, OutputPretty, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("tail.output: unsupported value %q", c.Tail.Output)
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

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
