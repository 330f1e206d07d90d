package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fidctail/internal/sources"
)

func (c *Config) normalize() error {
	c.normalizeTenant()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeTail()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeTenant() {
	envFallback(&c.Tenant.Host, "FIDC_HOST")
	envFallback(&c.Tenant.APIKeyID, "FIDC_API_KEY_ID")
	envFallback(&c.Tenant.APIKeySecret, "FIDC_API_KEY_SECRET")
	envFallback(&c.Tenant.Source, "FIDC_SOURCE")

	host := strings.TrimSpace(c.Tenant.Host)
	if host != "" && !strings.Contains(host, "://") {
		host = "https://" + host
	}
	c.Tenant.Host = strings.TrimRight(host, "/")
	c.Tenant.APIKeyID = strings.TrimSpace(c.Tenant.APIKeyID)
	c.Tenant.APIKeySecret = strings.TrimSpace(c.Tenant.APIKeySecret)
	c.Tenant.Source = strings.ToLower(strings.TrimSpace(c.Tenant.Source))
	if c.Tenant.Source == "" {
		c.Tenant.Source = sources.Default
	}
}

func envFallback(target *string, key string) {
	if strings.TrimSpace(*target) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*target = value
	}
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() error {
	path := strings.TrimSpace(c.Archive.Path)
	if path == "" {
		path = filepath.Join(c.Paths.StateDir, defaultArchiveFile)
	}
	var err error
	if c.Archive.Path, err = expandPath(path); err != nil {
		return fmt.Errorf("archive.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTail() {
	c.Tail.EndOfStream = strings.ToLower(strings.TrimSpace(c.Tail.EndOfStream))
	if c.Tail.EndOfStream == "" {
		c.Tail.EndOfStream = EndOfStreamRestart
	}
	c.Tail.Output = strings.ToLower(strings.TrimSpace(c.Tail.Output))
	if c.Tail.Output == "" {
		c.Tail.Output = OutputAuto
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		var err error
		if c.Logging.File, err = expandPath(file); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
