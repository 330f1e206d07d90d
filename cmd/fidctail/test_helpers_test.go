package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fidctail/internal/config"
	"fidctail/internal/testsupport"
)

type cliTestEnv struct {
	t       *testing.T
	homeDir string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"FIDC_HOST", "FIDC_API_KEY_ID", "FIDC_API_KEY_SECRET", "FIDC_SOURCE"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Chdir(base)
	return &cliTestEnv{t: t, homeDir: homeDir}
}

// writeConfig builds a test config, writes it to disk, and returns both.
func (e *cliTestEnv) writeConfig(opts ...testsupport.ConfigOption) (*config.Config, string) {
	e.t.Helper()
	cfg := testsupport.NewConfig(e.t, opts...)
	return cfg, testsupport.WriteConfig(e.t, cfg)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
