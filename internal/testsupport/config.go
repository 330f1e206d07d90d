package testsupport

import (
	"path/filepath"
	"testing"

	"fidctail/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config with tenant credentials filled in and its state
// directory under a per-test temp dir. Options run after the defaults.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Tenant.Host = "https://tenant.example.com"
	cfgVal.Tenant.APIKeyID = TestKeyID
	cfgVal.Tenant.APIKeySecret = TestKeySecret
	cfgVal.Tenant.Source = "am-core"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Archive.Path = filepath.Join(base, "state", "archive.db")
	cfgVal.Tail.PollInterval = 1
	cfgVal.Tail.ErrorRetryInterval = 1
	cfgVal.Tail.Output = config.OutputJSON

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithHost points the config at host, typically a TailServer URL.
func WithHost(host string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tenant.Host = host
	}
}

// WithSource overrides the tailed source.
func WithSource(source string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tenant.Source = source
	}
}

// WithArchive enables the entry archive.
func WithArchive() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Enabled = true
	}
}

// WithEndOfStream sets the end-of-stream policy.
func WithEndOfStream(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tail.EndOfStream = policy
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
