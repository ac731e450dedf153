package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"animforge/internal/config"
	"animforge/internal/history"
	"animforge/internal/logging"
	"animforge/internal/media/ffprobe"
	"animforge/internal/notifications"
	"animforge/internal/pipeline"
	"animforge/internal/render"
	"animforge/internal/repair"
	"animforge/internal/validate"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("run history is disabled (set [history] enabled = true)")
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// stack holds the stage components built from config.
type stack struct {
	repair    *repair.Client
	validator *validate.Validator
	renderer  *render.Renderer
	history   *history.Store
	notifier  notifications.Service
}

func (s *stack) Close() {
	if s.history != nil {
		_ = s.history.Close()
	}
}

func (c *commandContext) buildStack(ctx context.Context, withHistory bool) (*stack, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	s := &stack{
		repair:   repair.New(ctx, cfg.Repair, logger),
		notifier: notifications.NewService(cfg.Notifications),
	}

	var compiler validate.Compiler
	switch cfg.Validation.Compiler {
	case config.CompilerTreeSitter:
		compiler = validate.NewSyntaxCompiler()
	default:
		compiler = validate.NewPythonCompiler(cfg.Validation.PythonBinary)
	}
	s.validator = validate.New(compiler, s.repair,
		validate.WithMaxAttempts(cfg.Validation.MaxAttempts),
		validate.WithScratchRoot(cfg.Paths.ScratchDir),
		validate.WithLogger(logger),
	)

	var locator render.ArtifactLocator = render.SubstringLocator{}
	if cfg.Render.Locator == config.LocatorExact {
		locator = render.ExactLocator{Quality: cfg.Render.FinalQuality}
	}
	renderOpts := []render.Option{
		render.WithQualities(cfg.Render.TrialQuality, cfg.Render.FinalQuality),
		render.WithLocator(locator),
		render.WithLogger(logger),
	}
	if cfg.Render.VerifyArtifact {
		renderOpts = append(renderOpts, render.WithVerifier(ffprobe.NewProber(cfg.Render.FFprobeBinary, nil)))
	}
	s.renderer = render.New(cfg.Render.Binary, renderOpts...)

	if withHistory && cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check [history] path permissions"),
				logging.String(logging.FieldImpact, "this run will not be recorded"),
			)
		} else {
			s.history = store
		}
	}
	return s, nil
}

func (c *commandContext) newPipeline(s *stack) (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithScratchRoot(cfg.Paths.ScratchDir),
		pipeline.WithMaxRenderAttempts(cfg.Render.MaxRenderAttempts),
		pipeline.WithLogger(logger),
	}
	if s.history != nil {
		opts = append(opts, pipeline.WithRecorder(s.history))
	}
	if s.notifier != nil && s.notifier.Enabled() {
		opts = append(opts, pipeline.WithRecorder(s.notifier))
	}
	return pipeline.New(s.validator, s.renderer, s.repair, opts...), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
