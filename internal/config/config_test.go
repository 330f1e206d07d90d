package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"fidctail/internal/config"
)

func clearTenantEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"FIDC_HOST", "FIDC_API_KEY_ID", "FIDC_API_KEY_SECRET", "FIDC_SOURCE"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearTenantEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "fidctail", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "state", "fidctail")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Archive.Path != filepath.Join(wantState, "archive.db") {
		t.Fatalf("unexpected archive path: %q", cfg.Archive.Path)
	}
	if cfg.Archive.Enabled {
		t.Fatal("expected archive disabled by default")
	}
	if cfg.Tenant.Source != "am-core" {
		t.Fatalf("unexpected default source: %q", cfg.Tenant.Source)
	}
	if cfg.PollInterval() != 10*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Tail.EndOfStream != config.EndOfStreamRestart {
		t.Fatalf("unexpected end-of-stream policy: %q", cfg.Tail.EndOfStream)
	}
	if cfg.Tail.Output != config.OutputAuto {
		t.Fatalf("unexpected output: %q", cfg.Tail.Output)
	}
	if err := cfg.ValidateTenant(); err == nil {
		t.Fatal("expected tenant validation to fail without credentials")
	}
}

func TestLoadReadsFileAndNormalizesTenant(t *testing.T) {
	clearTenantEnv(t)
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[tenant]
host = "  tenant.example.com/ "
api_key_id = " id "
api_key_secret = "secret"
source = "IDM-Core"

[paths]
state_dir = "` + filepath.ToSlash(filepath.Join(dir, "state")) + `"

[tail]
poll_interval = 3
end_of_stream = "STOP"
output = "yaml"

[archive]
enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Tenant.Host != "https://tenant.example.com" {
		t.Fatalf("unexpected host: %q", cfg.Tenant.Host)
	}
	if cfg.Tenant.APIKeyID != "id" {
		t.Fatalf("unexpected key id: %q", cfg.Tenant.APIKeyID)
	}
	if cfg.Tenant.Source != "idm-core" {
		t.Fatalf("unexpected source: %q", cfg.Tenant.Source)
	}
	if cfg.Tail.EndOfStream != config.EndOfStreamStop || cfg.Tail.Output != config.OutputYAML {
		t.Fatalf("unexpected tail settings: %+v", cfg.Tail)
	}
	if cfg.Tail.ErrorRetryInterval != config.Default().Tail.ErrorRetryInterval {
		t.Fatalf("expected default retry interval, got %d", cfg.Tail.ErrorRetryInterval)
	}
	if cfg.Archive.Path != filepath.Join(dir, "state", "archive.db") {
		t.Fatalf("unexpected archive path: %q", cfg.Archive.Path)
	}
	if err := cfg.ValidateTenant(); err != nil {
		t.Fatalf("ValidateTenant: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state")); err != nil {
		t.Fatalf("expected state dir: %v", err)
	}
}

func TestTenantEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FIDC_HOST", "http://localhost:8080")
	t.Setenv("FIDC_API_KEY_ID", "env-id")
	t.Setenv("FIDC_API_KEY_SECRET", "env-secret")
	t.Setenv("FIDC_SOURCE", "am-access")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tenant.Host != "http://localhost:8080" || cfg.Tenant.APIKeyID != "env-id" || cfg.Tenant.APIKeySecret != "env-secret" {
		t.Fatalf("expected env credentials, got %+v", cfg.Tenant)
	}
	if cfg.Tenant.Source != "am-access" {
		t.Fatalf("unexpected source: %q", cfg.Tenant.Source)
	}
	if err := cfg.ValidateTenant(); err != nil {
		t.Fatalf("ValidateTenant: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearTenantEnv(t)
	t.Setenv("HOME", t.TempDir())

	tests := map[string]string{
		"unknown source":   "[tenant]\nsource = \"am-nope\"\n",
		"zero interval":    "[tail]\npoll_interval = 0\n",
		"negative max":     "[tail]\nmax_consecutive_failures = -1\n",
		"bad end policy":   "[tail]\nend_of_stream = \"rewind\"\n",
		"bad output":       "[tail]\noutput = \"xml\"\n",
		"bad log format":   "[logging]\nformat = \"logfmt\"\n",
		"bad log level":    "[logging]\nlevel = \"trace\"\n",
		"unknown field":    "[tenant]\nhostname = \"x\"\n",
		"malformed toml":   "[tenant\n",
		"wrong field type": "[tail]\npoll_interval = \"ten\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateTenant(t *testing.T) {
	base := config.Default()
	base.Tenant.Host = "https://tenant.example.com"
	base.Tenant.APIKeyID = "id"
	base.Tenant.APIKeySecret = "secret"
	if err := base.ValidateTenant(); err != nil {
		t.Fatalf("expected valid tenant: %v", err)
	}

	tests := map[string]func(*config.Config){
		"missing host":   func(c *config.Config) { c.Tenant.Host = "" },
		"ftp scheme":     func(c *config.Config) { c.Tenant.Host = "ftp://tenant.example.com" },
		"no host":        func(c *config.Config) { c.Tenant.Host = "https://" },
		"missing id":     func(c *config.Config) { c.Tenant.APIKeyID = "" },
		"missing secret": func(c *config.Config) { c.Tenant.APIKeySecret = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.ValidateTenant(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSampleConfigRoundTrip(t *testing.T) {
	clearTenantEnv(t)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat sample: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected private sample config, got %v", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if parsed.Tail.PollInterval != config.Default().Tail.PollInterval {
		t.Fatalf("sample poll interval drifted from defaults: %d", parsed.Tail.PollInterval)
	}
	if !strings.Contains(string(data), "api_key_secret") {
		t.Fatal("expected sample to document api_key_secret")
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load(sample): %v", err)
	}
}
