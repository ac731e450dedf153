package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"animforge/internal/config"
)

func clearRepairEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"ANIMFORGE_REPAIR_API_KEY", "GOOGLE_API_KEY_FIX", "GOOGLE_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearRepairEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "animforge", "media", "videos")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Render.MaxRenderAttempts != 3 {
		t.Fatalf("expected default render budget 3, got %d", cfg.Render.MaxRenderAttempts)
	}
	if cfg.Validation.MaxAttempts != 5 {
		t.Fatalf("expected default validation budget 5, got %d", cfg.Validation.MaxAttempts)
	}
	if cfg.Render.TrialQuality != "l" || cfg.Render.FinalQuality != "m" {
		t.Fatalf("unexpected qualities: %q/%q", cfg.Render.TrialQuality, cfg.Render.FinalQuality)
	}
	if cfg.Repair.Provider != config.ProviderGemini {
		t.Fatalf("unexpected provider: %q", cfg.Repair.Provider)
	}
	if cfg.Repair.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected default model: %q", cfg.Repair.Model)
	}
	if cfg.Repair.APIKey != "" {
		t.Fatalf("expected empty api key, got %q", cfg.Repair.APIKey)
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.LogDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearRepairEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "animforge.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Render struct {
			MaxRenderAttempts int    `toml:"max_render_attempts"`
			Locator           string `toml:"locator"`
		} `toml:"render"`
		Repair struct {
			Provider string `toml:"provider"`
			APIKey   string `toml:"api_key"`
		} `toml:"repair"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Render.MaxRenderAttempts = 7
	custom.Render.Locator = "EXACT"
	custom.Repair.Provider = "openrouter"
	custom.Repair.APIKey = "file-key"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Render.MaxRenderAttempts != 7 {
		t.Fatalf("expected render budget 7, got %d", cfg.Render.MaxRenderAttempts)
	}
	if cfg.Render.Locator != config.LocatorExact {
		t.Fatalf("expected locator to be normalized, got %q", cfg.Render.Locator)
	}
	if cfg.Repair.APIKey != "file-key" {
		t.Fatalf("expected key from file, got %q", cfg.Repair.APIKey)
	}
	if cfg.Repair.BaseURL == "" {
		t.Fatal("expected openrouter base url default")
	}
	if cfg.Validation.MaxAttempts != 5 {
		t.Fatalf("expected untouched default validation budget, got %d", cfg.Validation.MaxAttempts)
	}
}

func TestEnvVarOverridesConfigFileForAPIKey(t *testing.T) {
	clearRepairEnv(t)
	configPath := filepath.Join(t.TempDir(), "animforge.toml")
	if err := os.WriteFile(configPath, []byte("[repair]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANIMFORGE_REPAIR_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Repair.APIKey != "env-key" {
		t.Fatalf("expected env override, got %q", cfg.Repair.APIKey)
	}
}

func TestProviderSpecificEnvFallback(t *testing.T) {
	clearRepairEnv(t)
	t.Setenv("GOOGLE_API_KEY_FIX", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Repair.APIKey != "gemini-key" {
		t.Fatalf("expected gemini fallback key, got %q", cfg.Repair.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"quality", func(c *config.Config) { c.Render.TrialQuality = "z" }, "render.trial_quality"},
		{"locator", func(c *config.Config) { c.Render.Locator = "glob" }, "render.locator"},
		{"compiler", func(c *config.Config) { c.Validation.Compiler = "javac" }, "validation.compiler"},
		{"provider", func(c *config.Config) { c.Repair.Provider = "claude" }, "repair.provider"},
		{"temperature", func(c *config.Config) { c.Repair.Temperature = 3 }, "repair.temperature"},
		{"scratch", func(c *config.Config) { c.Paths.ScratchDir = c.Paths.OutputDir }, "paths.scratch_dir"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearRepairEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Render.Binary != "manim" {
		t.Fatalf("unexpected render binary %q", cfg.Render.Binary)
	}
	if cfg.Notifications.NtfyTopic != "" || cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("unexpected notification defaults %+v", cfg.Notifications)
	}
}
