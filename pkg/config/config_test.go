package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestInitWithCustomPath validates custom config path
func TestInitWithCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	customConfigPath := filepath.Join(tempDir, "custom", "path", "config.toml")

	if err := Init(customConfigPath); err != nil {
		t.Fatalf("Failed to initialize with custom path: %v", err)
	}

	expectedDir := filepath.Join(tempDir, "custom", "path")
	if GetConfigDir() != expectedDir {
		t.Errorf("Expected config dir %s, got %s", expectedDir, GetConfigDir())
	}
	if GetConfigFile() != customConfigPath {
		t.Errorf("Expected config file %s, got %s", customConfigPath, GetConfigFile())
	}

	if _, err := os.Stat(expectedDir); err != nil {
		t.Fatalf("Config directory was not created: %v", err)
	}
}

// TestScrollDefaults validates progressive loading defaults
func TestScrollDefaults(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "config.toml")); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if got := GetFloat64("scroll.threshold"); got != 0.8 {
		t.Errorf("Expected scroll.threshold 0.8, got %v", got)
	}
	if got := GetString("scroll.root_margin"); got != "100px" {
		t.Errorf("Expected scroll.root_margin 100px, got %q", got)
	}
	if got := GetString("media.root_margin"); got != "50px" {
		t.Errorf("Expected media.root_margin 50px, got %q", got)
	}
	if got := GetInt("feed.page_size"); got != 20 {
		t.Errorf("Expected feed.page_size 20, got %d", got)
	}
	if got := GetInt("viewport.cell_height"); got != 16 {
		t.Errorf("Expected viewport.cell_height 16, got %d", got)
	}
}

// TestMediaCacheUnderConfigDir validates the bbolt cache default location
func TestMediaCacheUnderConfigDir(t *testing.T) {
	tempDir := t.TempDir()
	if err := Init(filepath.Join(tempDir, "config.toml")); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	cacheFile := GetString("media.cache_file")
	if filepath.Dir(cacheFile) != tempDir {
		t.Errorf("Expected media cache under %s, got %s", tempDir, cacheFile)
	}
}

// TestUserConfigOverridesDefaults validates the TOML user file is read
func TestUserConfigOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")
	content := "[scroll]\nthreshold = 0.5\nroot_margin = \"2px 0px\"\n\n[feed]\npage_size = 5\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if err := Init(configPath); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if got := GetFloat64("scroll.threshold"); got != 0.5 {
		t.Errorf("Expected scroll.threshold 0.5, got %v", got)
	}
	if got := GetString("scroll.root_margin"); got != "2px 0px" {
		t.Errorf("Expected scroll.root_margin '2px 0px', got %q", got)
	}
	if got := GetInt("feed.page_size"); got != 5 {
		t.Errorf("Expected feed.page_size 5, got %d", got)
	}
}

// TestExpandPath validates tilde expansion for path keys
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/media.db", filepath.Join(home, "media.db")},
		{"/tmp/media.db", "/tmp/media.db"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.input); got != tt.want {
			t.Errorf("expandPath(%q): got %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestSetOverride validates process-local overrides
func TestSetOverride(t *testing.T) {
	if err := Init(filepath.Join(t.TempDir(), "config.toml")); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	Set("output.format", "json")
	defer Set("output.format", "text")

	if got := GetString("output.format"); got != "json" {
		t.Errorf("Expected overridden format json, got %q", got)
	}
}
