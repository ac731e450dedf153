package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable. A missing repair credential is
// not an error; the repair client degrades to pass-through.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateRepair(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.ScratchDir == c.Paths.OutputDir {
		return errors.New("paths.scratch_dir must differ from paths.output_dir")
	}
	return nil
}

var qualityFlags = []string{"l", "m", "h", "p", "k"}

func (c *Config) validateRender() error {
	if !slices.Contains(qualityFlags, c.Render.TrialQuality) {
		return fmt.Errorf("render.trial_quality must be one of %v, got %q", qualityFlags, c.Render.TrialQuality)
	}
	if !slices.Contains(qualityFlags, c.Render.FinalQuality) {
		return fmt.Errorf("render.final_quality must be one of %v, got %q", qualityFlags, c.Render.FinalQuality)
	}
	switch c.Render.Locator {
	case LocatorSubstring, LocatorExact:
	default:
		return fmt.Errorf("render.locator must be %q or %q, got %q", LocatorSubstring, LocatorExact, c.Render.Locator)
	}
	return nil
}

func (c *Config) validateValidation() error {
	switch c.Validation.Compiler {
	case CompilerPython, CompilerTreeSitter:
		return nil
	default:
		return fmt.Errorf("validation.compiler must be %q or %q, got %q", CompilerPython, CompilerTreeSitter, c.Validation.Compiler)
	}
}

func (c *Config) validateRepair() error {
	switch c.Repair.Provider {
	case ProviderGemini, ProviderOpenRouter, ProviderOpenAI:
	default:
		return fmt.Errorf("repair.provider must be one of gemini, openrouter, openai, got %q", c.Repair.Provider)
	}
	if c.Repair.Temperature < 0 || c.Repair.Temperature > 2 {
		return errors.New("repair.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}
