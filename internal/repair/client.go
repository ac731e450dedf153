package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"animforge/internal/config"
	"animforge/internal/logging"
	"animforge/internal/services"
	"animforge/internal/services/gemini"
	"animforge/internal/services/llm"
	"animforge/internal/services/openai"
)

// Oracle produces text for a system/user prompt pair.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Client wraps an Oracle with fail-soft semantics.
type Client struct {
	oracle  Oracle
	timeout time.Duration
	logger  *slog.Logger
	calls   atomic.Int64
}

// Option customizes the client.
type Option func(*Client)

// WithTimeout bounds each oracle call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewWithOracle builds a client around oracle. A nil oracle yields an
// unavailable client.
func NewWithOracle(oracle Oracle, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		oracle: oracle,
		logger: logging.NewComponentLogger(logger, "repair"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New selects an oracle backend from cfg. It never fails: when the backend
// cannot be constructed the client is returned unavailable and a warning is
// logged.
func New(ctx context.Context, cfg config.Repair, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	var opts []Option
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	oracle, err := NewOracle(ctx, cfg)
	if err != nil {
		logging.WarnWithContext(logger, "code repair oracle unavailable", "repair_unavailable",
			logging.String("provider", cfg.Provider),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set repair.api_key or the provider API key environment variable"),
			logging.String(logging.FieldImpact, "code will be retried without repairs"),
		)
		return NewWithOracle(nil, logger, opts...)
	}
	return NewWithOracle(oracle, logger, opts...)
}

// NewOracle constructs the backend named by cfg.Provider.
func NewOracle(ctx context.Context, cfg config.Repair) (Oracle, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrRepairUnavailable, "repair", "init", "api key not configured", nil)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderGemini, "":
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrRepairUnavailable, "repair", "init gemini", "", err)
		}
		return client, nil
	case config.ProviderOpenRouter:
		opts := []llm.Option{}
		if cfg.RetryAttempts > 0 {
			opts = append(opts, llm.WithRetryMaxAttempts(cfg.RetryAttempts))
		}
		return llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
			Temperature:    cfg.Temperature,
		}, opts...), nil
	case config.ProviderOpenAI:
		client, err := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrRepairUnavailable, "repair", "init openai", "", err)
		}
		return client, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "repair", "init", fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
}

// Available reports whether an oracle is attached.
func (c *Client) Available() bool {
	return c != nil && c.oracle != nil
}

// Calls returns the number of Repair invocations, including pass-through ones.
func (c *Client) Calls() int {
	if c == nil {
		return 0
	}
	return int(c.calls.Load())
}

// Backend names the attached oracle, or "none".
func (c *Client) Backend() string {
	if !c.Available() {
		return "none"
	}
	return c.oracle.Name()
}

// Repair returns a corrected version of source, or source unchanged when the
// oracle is unavailable or fails. diagnostic may be empty.
func (c *Client) Repair(ctx context.Context, source, diagnostic string) string {
	if c == nil {
		return source
	}
	c.calls.Add(1)
	logger := logging.WithContext(ctx, c.logger)
	if c.oracle == nil {
		logger.Debug("repair skipped; oracle unavailable")
		return source
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	reply, err := c.oracle.Complete(callCtx, systemInstruction, BuildPrompt(source, diagnostic))
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("oracle returned empty reply")
	}
	if err != nil {
		logging.WarnWithContext(logger, "code repair failed; keeping original source", "repair_failed",
			logging.String("backend", c.oracle.Name()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check repair oracle credentials and connectivity"),
			logging.String(logging.FieldImpact, "the next attempt retries unchanged code"),
		)
		return source
	}
	fixed := StripCodeFences(reply)
	if fixed == "" {
		logging.WarnWithContext(logger, "code repair returned only fences; keeping original source", "repair_failed",
			logging.String("backend", c.oracle.Name()),
			logging.String(logging.FieldImpact, "the next attempt retries unchanged code"),
		)
		return source
	}
	logger.Info("code repaired",
		logging.Args(
			logging.String("backend", c.oracle.Name()),
			logging.Bool("with_diagnostic", strings.TrimSpace(diagnostic) != ""),
			logging.Int("source_bytes", len(source)),
			logging.Int("repaired_bytes", len(fixed)),
			logging.Duration("elapsed", time.Since(started)),
		)...,
	)
	return fixed
}

// Check verifies the oracle when the backend supports a health probe.
func (c *Client) Check(ctx context.Context) error {
	if !c.Available() {
		return services.Wrap(services.ErrRepairUnavailable, "repair", "check", "no oracle configured", nil)
	}
	if hc, ok := c.oracle.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
