package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_TZ":
			return "Europe/Berlin"
		case "TEST_LOCALE":
			return "de-DE"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "timezone: ${TEST_TZ}",
			expected: "timezone: Europe/Berlin",
		},
		{
			name:     "with default (env set)",
			input:    "timezone: ${TEST_TZ:-UTC}",
			expected: "timezone: Europe/Berlin",
		},
		{
			name:     "with default (env not set)",
			input:    "timezone: ${UNSET_VAR:-UTC}",
			expected: "timezone: UTC",
		},
		{
			name:     "multiple substitutions",
			input:    "timezone: ${TEST_TZ}\nlocale: ${TEST_LOCALE}",
			expected: "timezone: Europe/Berlin\nlocale: de-DE",
		},
		{
			name:     "no substitution needed",
			input:    "output: text",
			expected: "output: text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rilltime.yaml")

	configContent := `
timezone: America/New_York
week_start: sunday
locale: en-GB
output: json
history_file: /tmp/history
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath, os.Getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Timezone != "America/New_York" {
		t.Errorf("expected timezone 'America/New_York', got %q", cfg.Timezone)
	}
	if cfg.WeekStart != "sunday" {
		t.Errorf("expected week start 'sunday', got %q", cfg.WeekStart)
	}
	if cfg.Locale != "en-GB" {
		t.Errorf("expected locale 'en-GB', got %q", cfg.Locale)
	}
	if cfg.Output != "json" {
		t.Errorf("expected output 'json', got %q", cfg.Output)
	}
	if cfg.HistoryFile != "/tmp/history" {
		t.Errorf("expected history file '/tmp/history', got %q", cfg.HistoryFile)
	}
}

func TestLoadKeepsDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rilltime.yaml")

	if err := os.WriteFile(configPath, []byte("locale: fr\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath, os.Getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Locale != "fr" {
		t.Errorf("expected locale 'fr', got %q", cfg.Locale)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("unset timezone should stay 'UTC', got %q", cfg.Timezone)
	}
	if cfg.Output != "text" {
		t.Errorf("unset output should stay 'text', got %q", cfg.Output)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rilltime.yaml")

	configContent := "timezone: ${RILL_TEST_TZ:-UTC}\nlocale: ${RILL_TEST_LOCALE}\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	getenv := func(key string) string {
		if key == "RILL_TEST_LOCALE" {
			return "ja"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Timezone != "UTC" {
		t.Errorf("expected interpolated default 'UTC', got %q", cfg.Timezone)
	}
	if cfg.Locale != "ja" {
		t.Errorf("expected interpolated locale 'ja', got %q", cfg.Locale)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), os.Getenv)
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	// Point the search path at an empty directory so nothing is found.
	tmp := t.TempDir()
	getenv := func(key string) string {
		if key == "XDG_CONFIG_HOME" {
			return tmp
		}
		return ""
	}

	cfg, path, err := LoadWithPath("", getenv)
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected no resolved path, got %q", path)
	}
	if cfg.Timezone != "UTC" || cfg.Output != "text" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFindsXDGConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgDir := filepath.Join(tmp, "rilltime")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("output: json\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	getenv := func(key string) string {
		if key == "XDG_CONFIG_HOME" {
			return tmp
		}
		return ""
	}

	cfg, path, err := LoadWithPath("", getenv)
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}
	if path != filepath.Join(cfgDir, "config.yaml") {
		t.Errorf("wrong resolved path: %q", path)
	}
	if cfg.Output != "json" {
		t.Errorf("expected output 'json', got %q", cfg.Output)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rilltime.yaml")

	if err := os.WriteFile(configPath, []byte("output: xml\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath, os.Getenv); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rilltime.yaml")

	if err := os.WriteFile(configPath, []byte("timezone: [unterminated\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath, os.Getenv); err == nil {
		t.Fatal("expected a parse error")
	}
}
