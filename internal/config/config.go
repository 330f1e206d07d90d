package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tenant identifies the monitoring API and the log source to tail.
type Tenant struct {
	Host         string `toml:"host"`
	APIKeyID     string `toml:"api_key_id"`
	APIKeySecret string `toml:"api_key_secret"`
	Source       string `toml:"source"`
}

// Paths contains local directories used at runtime.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Tail contains polling cadence and output settings. Durations are seconds.
type Tail struct {
	PollInterval           int    `toml:"poll_interval"`
	ErrorRetryInterval     int    `toml:"error_retry_interval"`
	RequestTimeout         int    `toml:"request_timeout"`
	MaxConsecutiveFailures int    `toml:"max_consecutive_failures"`
	EndOfStream            string `toml:"end_of_stream"`
	Output                 string `toml:"output"`
}

// Archive controls the optional SQLite copy of every emitted entry.
type Archive struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for diagnostic log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for fidctail.
//
// Configuration sections:
//   - Tenant: monitoring API host, log API key, and source
//   - Paths: state directory for locks and the default archive
//   - Tail: poll cadence, retry policy, end-of-stream policy, output format
//   - Archive: optional SQLite entry archive
//   - Logging: diagnostic log format, level, and optional file
type Config struct {
	Tenant  Tenant  `toml:"tenant"`
	Paths   Paths   `toml:"paths"`
	Tail    Tail    `toml:"tail"`
	Archive Archive `toml:"archive"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fidctail/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Tenant credentials are not required here; see
// ValidateTenant.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fidctail.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and, when archiving is
// enabled, the archive's parent directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	if c.Archive.Enabled {
		dir := filepath.Dir(c.Archive.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval is the delay between successful polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tail.PollInterval) * time.Second
}

// ErrorRetryInterval is the delay before retrying a failed poll.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Tail.ErrorRetryInterval) * time.Second
}

// RequestTimeout bounds a single HTTP round trip.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Tail.RequestTimeout) * time.Second
}

// LockDir holds per-source tail locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	// Credentials are edited in place, keep the file private.
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
