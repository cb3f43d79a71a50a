package internal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv isolates each test from the ambient environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NOWLEDGE_MEM_API_URL",
		"NOWLEDGE_MEM_AUTH_TOKEN",
		"NOWLEDGE_MEM_TIMEOUT",
		"NOWLEDGE_MEM_TIMEOUT_HEALTH",
		"NOWLEDGE_MEM_MAX_MESSAGES",
		"NOWLEDGE_MEM_SESSION_SOURCE",
		"PROJECT_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(Overrides{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Timeout != DefaultTimeout || cfg.HealthTimeout != DefaultHealthTimeout {
		t.Errorf("timeouts = %s, %s", cfg.Timeout, cfg.HealthTimeout)
	}
	if cfg.MaxMessages != 0 {
		t.Errorf("MaxMessages = %d, want 0 (unlimited)", cfg.MaxMessages)
	}
	if cfg.SessionSource != SourceAuto {
		t.Errorf("SessionSource = %s", cfg.SessionSource)
	}

	cwd, _ := os.Getwd()
	if cfg.ProjectPath != cwd {
		t.Errorf("ProjectPath = %q, want cwd %q", cfg.ProjectPath, cwd)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOWLEDGE_MEM_API_URL", "http://mem.example:9000")
	t.Setenv("NOWLEDGE_MEM_AUTH_TOKEN", "tkn")
	t.Setenv("NOWLEDGE_MEM_TIMEOUT", "2.5")
	t.Setenv("NOWLEDGE_MEM_TIMEOUT_HEALTH", "1")
	t.Setenv("NOWLEDGE_MEM_MAX_MESSAGES", "25")
	t.Setenv("NOWLEDGE_MEM_SESSION_SOURCE", "codex")
	t.Setenv("PROJECT_PATH", "/srv/proj")

	cfg, err := LoadConfig(Overrides{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "http://mem.example:9000" || cfg.AuthToken != "tkn" {
		t.Errorf("url/token = %q, %q", cfg.APIURL, cfg.AuthToken)
	}
	if cfg.Timeout != 2500*time.Millisecond || cfg.HealthTimeout != time.Second {
		t.Errorf("timeouts = %s, %s", cfg.Timeout, cfg.HealthTimeout)
	}
	if cfg.MaxMessages != 25 {
		t.Errorf("MaxMessages = %d", cfg.MaxMessages)
	}
	if cfg.SessionSource != SourceCodex {
		t.Errorf("SessionSource = %s", cfg.SessionSource)
	}
	if cfg.ProjectPath != "/srv/proj" {
		t.Errorf("ProjectPath = %q", cfg.ProjectPath)
	}
}

func TestLoadConfigFlagOverridesBeatEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOWLEDGE_MEM_SESSION_SOURCE", "codex")
	t.Setenv("PROJECT_PATH", "/srv/env")

	cfg, err := LoadConfig(Overrides{ProjectPath: "/srv/flag", SessionSource: "claude"})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ProjectPath != "/srv/flag" {
		t.Errorf("ProjectPath = %q", cfg.ProjectPath)
	}
	if cfg.SessionSource != SourceClaude {
		t.Errorf("SessionSource = %s", cfg.SessionSource)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	home := os.Getenv("HOME")
	dir := filepath.Join(home, ".config", "nm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "api_url: http://file.example:1234\ntimeout: 10\nmax_messages: 5\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(Overrides{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "http://file.example:1234" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s", cfg.Timeout)
	}
	if cfg.MaxMessages != 5 {
		t.Errorf("MaxMessages = %d", cfg.MaxMessages)
	}

	// Environment beats the file.
	t.Setenv("NOWLEDGE_MEM_API_URL", "http://env.example:1")
	cfg, err = LoadConfig(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://env.example:1" {
		t.Errorf("env did not override file: %q", cfg.APIURL)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	for _, tc := range []struct{ key, value string }{
		{"NOWLEDGE_MEM_MAX_MESSAGES", "lots"},
		{"NOWLEDGE_MEM_TIMEOUT", "soon"},
		{"NOWLEDGE_MEM_TIMEOUT", "-1"},
		{"NOWLEDGE_MEM_TIMEOUT_HEALTH", "0"},
		{"NOWLEDGE_MEM_SESSION_SOURCE", "cursor"},
	} {
		clearEnv(t)
		t.Setenv(tc.key, tc.value)

		_, err := LoadConfig(Overrides{})
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%s=%q: got %v, want ErrConfig", tc.key, tc.value, err)
		}
	}
}

func TestLoadConfigNegativeMaxMessagesClampsToUnlimited(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOWLEDGE_MEM_MAX_MESSAGES", "-3")

	cfg, err := LoadConfig(Overrides{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxMessages != 0 {
		t.Errorf("MaxMessages = %d, want 0", cfg.MaxMessages)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	clearEnv(t)
	home := os.Getenv("HOME")
	dir := filepath.Join(home, ".config", "nm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(Overrides{})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("got %v, want ErrConfig", err)
	}
}
