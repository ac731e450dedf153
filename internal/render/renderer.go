package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"animforge/internal/logging"
	"animforge/internal/media/ffprobe"
	"animforge/internal/procexec"
	"animforge/internal/services"
	"animforge/internal/textutil"
)

const (
	defaultBinary       = "manim"
	defaultTrialQuality = "l"
	defaultFinalQuality = "m"
)

// Outcome is the result of a trial render. Diagnostic is empty on success.
type Outcome struct {
	Success    bool   `json:"success"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// FinalOutcome is the result of a final render. Err carries
// services.ErrFinalRender or services.ErrArtifactNotFound on failure.
type FinalOutcome struct {
	ArtifactPath string
	ExitCode     int
	Err          error
}

// Verifier probes a located artifact.
type Verifier interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Renderer invokes the render engine.
type Renderer struct {
	binary       string
	trialQuality string
	finalQuality string
	exec         procexec.Executor
	locator      ArtifactLocator
	verifier     Verifier
	logger       *slog.Logger
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithQualities overrides the trial and final quality flags; empty values
// keep the defaults.
func WithQualities(trial, final string) Option {
	return func(r *Renderer) {
		if trial = strings.TrimSpace(trial); trial != "" {
			r.trialQuality = trial
		}
		if final = strings.TrimSpace(final); final != "" {
			r.finalQuality = final
		}
	}
}

// WithLocator sets the artifact locator.
func WithLocator(locator ArtifactLocator) Option {
	return func(r *Renderer) {
		if locator != nil {
			r.locator = locator
		}
	}
}

// WithVerifier enables probing of located artifacts.
func WithVerifier(v Verifier) Option {
	return func(r *Renderer) {
		r.verifier = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Renderer for binary (default "manim").
func New(binary string, opts ...Option) *Renderer {
	if strings.TrimSpace(binary) == "" {
		binary = defaultBinary
	}
	r := &Renderer{
		binary:       binary,
		trialQuality: defaultTrialQuality,
		finalQuality: defaultFinalQuality,
		exec:         procexec.CommandExecutor{},
		locator:      SubstringLocator{},
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "render")
	return r
}

// FinalQuality returns the quality flag used for final renders.
func (r *Renderer) FinalQuality() string { return r.finalQuality }

func (r *Renderer) args(sourcePath, sceneID, quality, mediaDir string) []string {
	return []string{
		sourcePath,
		sceneID,
		"-q" + quality,
		"--disable_caching",
		"--media_dir=" + mediaDir,
	}
}

// Trial renders at trial fidelity into scratchDir. On success scratchDir is
// removed; a cleanup failure is logged and does not fail the trial.
func (r *Renderer) Trial(ctx context.Context, sourcePath, sceneID, scratchDir string) Outcome {
	logger := logging.WithContext(ctx, r.logger)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return Outcome{Diagnostic: fmt.Sprintf("Trial render exception: %v", err)}
	}

	args := r.args(sourcePath, sceneID, r.trialQuality, scratchDir)
	logger.Info("trial render starting",
		logging.Args(
			logging.String("scene", sceneID),
			logging.String("command", r.binary+" "+strings.Join(args, " ")),
		)...,
	)
	result, err := r.exec.Run(ctx, r.binary, args)
	if err != nil {
		return Outcome{Diagnostic: fmt.Sprintf("Trial render exception: %v", err)}
	}
	if !result.Success() {
		return Outcome{Diagnostic: fmt.Sprintf("Trial render failed:\nReturn Code: %d\nStdout: %s\nStderr: %s",
			result.ExitCode, result.Stdout, result.Stderr)}
	}

	if err := os.RemoveAll(scratchDir); err != nil {
		logging.WarnWithContext(logger, "trial media cleanup failed", "trial_cleanup_failed",
			logging.String("path", scratchDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
			logging.String(logging.FieldImpact, "scratch space is not reclaimed"),
		)
	}
	logger.Info("trial render succeeded", logging.Args(logging.String("scene", sceneID))...)
	return Outcome{Success: true}
}

// Final renders at final fidelity into outputDir and returns the located
// artifact path.
func (r *Renderer) Final(ctx context.Context, sourcePath, sceneID, outputDir, source string) (string, bool) {
	outcome := r.RenderFinal(ctx, sourcePath, sceneID, outputDir, source)
	return outcome.ArtifactPath, outcome.Err == nil
}

// RenderFinal is Final with failure classification.
func (r *Renderer) RenderFinal(ctx context.Context, sourcePath, sceneID, outputDir, source string) FinalOutcome {
	logger := logging.WithContext(ctx, r.logger)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return r.finalFailure(logger, source, procexec.Result{ExitCode: -1},
			services.Wrap(services.ErrFinalRender, "final_render", "prepare output", outputDir, err))
	}

	args := r.args(sourcePath, sceneID, r.finalQuality, outputDir)
	logger.Info("final render starting",
		logging.Args(
			logging.String("scene", sceneID),
			logging.String("command", r.binary+" "+strings.Join(args, " ")),
		)...,
	)
	result, err := r.exec.Run(ctx, r.binary, args)
	if err != nil {
		return r.finalFailure(logger, source, procexec.Result{ExitCode: -1},
			services.Wrap(services.ErrFinalRender, "final_render", "run engine", "", err))
	}
	if !result.Success() {
		return r.finalFailure(logger, source, result,
			services.Wrap(services.ErrFinalRender, "final_render", "run engine", fmt.Sprintf("exit status %d", result.ExitCode), nil))
	}

	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	path, ok := r.locator.Locate(outputDir, stem, sceneID)
	if !ok {
		logging.ErrorWithContext(logger, "final render succeeded but the video file was not found", "artifact_not_found",
			logging.String("output_dir", outputDir),
			logging.String("scene", sceneID),
			logging.String("stdout", result.Stdout),
			logging.String("stderr", result.Stderr),
			logging.String(logging.FieldErrorHint, "check the engine output layout or switch render.locator"),
		)
		return FinalOutcome{Err: services.Wrap(services.ErrArtifactNotFound, "final_render", "locate artifact", sceneID, nil)}
	}

	if r.verifier != nil {
		probe, err := r.verifier.Inspect(ctx, path)
		if err == nil && probe.VideoStreamCount() == 0 {
			err = fmt.Errorf("no video streams")
		}
		if err != nil {
			logging.ErrorWithContext(logger, "located artifact failed verification", "artifact_invalid",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the file with ffprobe"),
			)
			return FinalOutcome{Err: services.Wrap(services.ErrArtifactNotFound, "final_render", "verify artifact", path, err)}
		}
		width, height := probe.Resolution()
		logger.Info("artifact verified",
			logging.Args(
				logging.String("path", path),
				logging.Int("width", width),
				logging.Int("height", height),
				logging.Any("duration_seconds", probe.DurationSeconds()),
			)...,
		)
	}

	logger.Info("animation created", logging.Args(logging.String("path", path))...)
	return FinalOutcome{ArtifactPath: path}
}

func (r *Renderer) finalFailure(logger *slog.Logger, source string, result procexec.Result, err error) FinalOutcome {
	logging.ErrorWithContext(logger, "final render failed after successful trial", "final_render_failed",
		logging.Int("exit_code", result.ExitCode),
		logging.String("stdout", result.Stdout),
		logging.String("stderr", result.Stderr),
		logging.String("source", textutil.NumberLines(source)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the trial passed, so compare trial and final fidelity behaviour"),
	)
	return FinalOutcome{ExitCode: result.ExitCode, Err: err}
}
