package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positionals are moved first",
			args:     []string{"m-1", "heap profile", "-output", "json"},
			expected: []string{"-output", "json", "m-1", "heap profile"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "m-1"},
			expected: []string{"-output", "json", "m-1"},
		},
		{
			name:     "positionals only returns unchanged",
			args:     []string{"m-1", "heap"},
			expected: []string{"m-1", "heap"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"goroutines"}, "goroutines"},
		{"multiple words", []string{"heap", "profile"}, "heap profile"},
		{"single quoted phrase", []string{"heap profile"}, "heap profile"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSourceFromArg(t *testing.T) {
	u, f, err := sourceFromArg("HTTPS://youtu.be/x")
	if err != nil || u != "HTTPS://youtu.be/x" || f != "" {
		t.Errorf("url arg = %q, %q, %v", u, f, err)
	}
	u, f, err = sourceFromArg("talk.mp4")
	if err != nil || u != "" || !filepath.IsAbs(f) || filepath.Base(f) != "talk.mp4" {
		t.Errorf("file arg = %q, %q, %v", u, f, err)
	}
}

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers("A, c,3,,b")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"0": 0, "1": 2, "2": 3, "4": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseAnswers() = %v, want %v", got, want)
	}
	if got, _ := parseAnswers(""); len(got) != 0 {
		t.Errorf("empty answers = %v", got)
	}
	if _, err := parseAnswers("A,maybe"); err == nil {
		t.Error("expected error for non-letter answer")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
videodb:
  api_key: "sk-test"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if cfg.VideoDB.APIKey != "sk-test" {
		t.Errorf("videodb api key = %q", cfg.VideoDB.APIKey)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
