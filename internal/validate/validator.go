package validate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"animforge/internal/logging"
	"animforge/internal/services"
	"animforge/internal/textutil"
)

const (
	// DefaultMaxAttempts bounds the validation-fix loop.
	DefaultMaxAttempts = 5
	snapshotLimit      = 500
	candidateFileName  = "candidate.py"
)

// ErrorRecord describes one failed compile attempt.
type ErrorRecord struct {
	Attempt      int    `json:"attempt"`
	Error        string `json:"error"`
	CodeSnapshot string `json:"code_snapshot"`
}

// Result is the outcome of a validation cycle. Source is the last candidate,
// which is still broken when Valid is false.
type Result struct {
	Source  string        `json:"source"`
	Valid   bool          `json:"valid"`
	History []ErrorRecord `json:"history"`
}

// Attempts returns how many compile attempts the cycle used.
func (r Result) Attempts() int {
	if r.Valid {
		return len(r.History) + 1
	}
	return len(r.History)
}

// Repairer revises source given a diagnostic.
type Repairer interface {
	Repair(ctx context.Context, source, diagnostic string) string
}

// Validator runs the validation-fix loop.
type Validator struct {
	compiler    Compiler
	repairer    Repairer
	maxAttempts int
	scratchRoot string
	logger      *slog.Logger
}

// Option customizes a Validator.
type Option func(*Validator)

// WithMaxAttempts overrides the attempt budget; values <= 0 are ignored.
func WithMaxAttempts(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

// WithScratchRoot sets the directory under which per-attempt scratch
// directories are created. Defaults to os.TempDir().
func WithScratchRoot(dir string) Option {
	return func(v *Validator) {
		v.scratchRoot = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New constructs a Validator.
func New(compiler Compiler, repairer Repairer, opts ...Option) *Validator {
	v := &Validator{
		compiler:    compiler,
		repairer:    repairer,
		maxAttempts: DefaultMaxAttempts,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = logging.NewComponentLogger(v.logger, "validate")
	return v
}

// MaxAttempts returns the configured budget.
func (v *Validator) MaxAttempts() int { return v.maxAttempts }

// Validate compiles source, repairing and retrying until it compiles or the
// budget is spent. The history holds exactly one record per failed attempt.
func (v *Validator) Validate(ctx context.Context, source string) Result {
	candidate := source
	history := make([]ErrorRecord, 0, v.maxAttempts)

	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		attemptCtx := services.WithAttempt(ctx, attempt)
		logger := logging.WithContext(attemptCtx, v.logger)

		diagnostic, ok := v.check(attemptCtx, candidate)
		if ok {
			logger.Info("candidate compiled",
				logging.Args(
					logging.String("compiler", v.compiler.Name()),
					logging.Int("failed_attempts", len(history)),
				)...,
			)
			return Result{Source: candidate, Valid: true, History: history}
		}

		history = append(history, ErrorRecord{
			Attempt:      attempt,
			Error:        diagnostic,
			CodeSnapshot: textutil.Truncate(candidate, snapshotLimit),
		})
		logging.WarnWithContext(logger, "candidate failed compilation", "compile_failed",
			logging.Int("max_attempts", v.maxAttempts),
			logging.String("diagnostic", diagnostic),
			logging.String(logging.FieldErrorHint, "the repair oracle will be asked to fix the reported error"),
			logging.String(logging.FieldImpact, "validation attempt consumed"),
		)

		if v.repairer != nil {
			candidate = v.repairer.Repair(attemptCtx, candidate, diagnostic)
		}
	}

	logging.ErrorWithContext(logging.WithContext(ctx, v.logger), "validation budget exhausted", "validation_exhausted",
		logging.Int("attempts", v.maxAttempts),
		logging.String(logging.FieldErrorHint, "inspect the error history and fix the script manually"),
	)
	return Result{Source: candidate, Valid: false, History: history}
}

// check compiles candidate inside a private scratch directory that is removed
// on every exit path.
func (v *Validator) check(ctx context.Context, candidate string) (string, bool) {
	if v.compiler == nil {
		return "no compiler configured", false
	}
	root := v.scratchRoot
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Sprintf("validation infrastructure error: create scratch root: %v", err), false
	}
	dir, err := os.MkdirTemp(root, "validate-")
	if err != nil {
		return fmt.Sprintf("validation infrastructure error: create scratch dir: %v", err), false
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			v.logger.Debug("scratch cleanup failed", logging.Args(logging.String("path", dir), logging.Error(err))...)
		}
	}()

	path := filepath.Join(dir, candidateFileName)
	if err := os.WriteFile(path, []byte(candidate), 0o644); err != nil {
		return fmt.Sprintf("validation infrastructure error: write candidate: %v", err), false
	}
	diagnostic, ok, err := v.compiler.Compile(ctx, path)
	if err != nil {
		return fmt.Sprintf("validation infrastructure error: %v", err), false
	}
	return diagnostic, ok
}
