package config

import (
	"fmt"
	"os"
	"strings"
)

// providerKeyEnv lists provider-specific credential variables consulted after
// ANIMFORGE_REPAIR_API_KEY.
var providerKeyEnv = map[string][]string{
	ProviderGemini:     {"GOOGLE_API_KEY_FIX", "GOOGLE_API_KEY", "GEMINI_API_KEY"},
	ProviderOpenRouter: {"OPENROUTER_API_KEY"},
	ProviderOpenAI:     {"OPENAI_API_KEY"},
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeValidation()
	c.normalizeRepair()
	c.normalizeLogging()
	c.normalizeNotifications()
	return c.normalizeHistory()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.Binary == "" {
		c.Render.Binary = defaultRenderBinary
	}
	c.Render.TrialQuality = strings.ToLower(strings.TrimSpace(c.Render.TrialQuality))
	if c.Render.TrialQuality == "" {
		c.Render.TrialQuality = defaultTrialQuality
	}
	c.Render.FinalQuality = strings.ToLower(strings.TrimSpace(c.Render.FinalQuality))
	if c.Render.FinalQuality == "" {
		c.Render.FinalQuality = defaultFinalQuality
	}
	if c.Render.MaxRenderAttempts <= 0 {
		c.Render.MaxRenderAttempts = defaultMaxRenderAttempts
	}
	c.Render.Locator = strings.ToLower(strings.TrimSpace(c.Render.Locator))
	if c.Render.Locator == "" {
		c.Render.Locator = defaultLocator
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeValidation() {
	if c.Validation.MaxAttempts <= 0 {
		c.Validation.MaxAttempts = defaultMaxAttempts
	}
	c.Validation.Compiler = strings.ToLower(strings.TrimSpace(c.Validation.Compiler))
	if c.Validation.Compiler == "" {
		c.Validation.Compiler = defaultCompiler
	}
	c.Validation.PythonBinary = strings.TrimSpace(c.Validation.PythonBinary)
	if c.Validation.PythonBinary == "" {
		c.Validation.PythonBinary = defaultPythonBinary
	}
}

func (c *Config) normalizeRepair() {
	c.Repair.Provider = strings.ToLower(strings.TrimSpace(c.Repair.Provider))
	if c.Repair.Provider == "" {
		c.Repair.Provider = defaultProvider
	}
	if value, ok := os.LookupEnv("ANIMFORGE_REPAIR_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Repair.APIKey = value
	}
	if strings.TrimSpace(c.Repair.APIKey) == "" {
		for _, name := range providerKeyEnv[c.Repair.Provider] {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.Repair.APIKey = value
				break
			}
		}
	}
	c.Repair.APIKey = strings.TrimSpace(c.Repair.APIKey)
	c.Repair.Model = strings.TrimSpace(c.Repair.Model)
	if c.Repair.Model == "" {
		c.Repair.Model = defaultModels[c.Repair.Provider]
	}
	c.Repair.BaseURL = strings.TrimSpace(c.Repair.BaseURL)
	if c.Repair.BaseURL == "" {
		c.Repair.BaseURL = defaultBaseURLs[c.Repair.Provider]
	}
	if c.Repair.TimeoutSeconds <= 0 {
		c.Repair.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Repair.RetryAttempts <= 0 {
		c.Repair.RetryAttempts = defaultRetryAttempts
	}
	c.Repair.Referer = strings.TrimSpace(c.Repair.Referer)
	c.Repair.Title = strings.TrimSpace(c.Repair.Title)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		return nil
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}
