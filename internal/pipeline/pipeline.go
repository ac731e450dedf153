package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"animforge/internal/fileutil"
	"animforge/internal/logging"
	"animforge/internal/render"
	"animforge/internal/repair"
	"animforge/internal/scene"
	"animforge/internal/services"
	"animforge/internal/textutil"
	"animforge/internal/validate"
)

// DefaultMaxRenderAttempts bounds the render-fix loop.
const DefaultMaxRenderAttempts = 3

// Validator is the static validation stage.
type Validator interface {
	Validate(ctx context.Context, source string) validate.Result
}

// Renderer is the render stage.
type Renderer interface {
	Trial(ctx context.Context, sourcePath, sceneID, scratchDir string) render.Outcome
	RenderFinal(ctx context.Context, sourcePath, sceneID, outputDir, source string) render.FinalOutcome
}

// Repairer revises source given a diagnostic.
type Repairer interface {
	Repair(ctx context.Context, source, diagnostic string) string
}

// Recorder persists run reports.
type Recorder interface {
	Record(ctx context.Context, report Report) error
}

// Request describes one animation request.
type Request struct {
	Source            string
	OutputDir         string
	MaxRenderAttempts int
	// Label is an optional human name for the run (e.g. the input file).
	Label string
}

// TrialRecord describes one failed trial render.
type TrialRecord struct {
	Attempt    int    `json:"attempt"`
	Diagnostic string `json:"diagnostic"`
}

// Report is the detailed result of a run. Err is nil on success and
// otherwise wraps one of the services sentinel markers.
type Report struct {
	RunID              string                 `json:"run_id"`
	Label              string                 `json:"label,omitempty"`
	ArtifactPath       string                 `json:"artifact_path,omitempty"`
	SceneID            string                 `json:"scene_id,omitempty"`
	Source             string                 `json:"source,omitempty"`
	ValidationHistory  []validate.ErrorRecord `json:"validation_history"`
	RenderHistory      []TrialRecord          `json:"render_history"`
	ValidationAttempts int                    `json:"validation_attempts"`
	RenderAttempts     int                    `json:"render_attempts"`
	RepairCalls        int                    `json:"repair_calls"`
	Err                error                  `json:"-"`
	StartedAt          time.Time              `json:"started_at"`
	FinishedAt         time.Time              `json:"finished_at"`
}

// Succeeded reports whether the run produced an artifact.
func (r Report) Succeeded() bool {
	return r.Err == nil && r.ArtifactPath != ""
}

// ErrorMessage returns Err's text or "".
func (r Report) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Pipeline wires the stages together.
type Pipeline struct {
	validator         Validator
	renderer          Renderer
	repairer          Repairer
	recorders         []Recorder
	scratchRoot       string
	maxRenderAttempts int
	logger            *slog.Logger
	newID             func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRecorder attaches a recorder that receives every finished report.
// Recorders run in the order they were added.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorders = append(p.recorders, r)
		}
	}
}

// WithScratchRoot sets where trial media and scratch sources are written.
func WithScratchRoot(dir string) Option {
	return func(p *Pipeline) {
		p.scratchRoot = dir
	}
}

// WithMaxRenderAttempts sets the default render-fix budget.
func WithMaxRenderAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxRenderAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a Pipeline from its collaborators. A nil repairer is
// replaced by an unavailable repair client, which returns code unchanged.
func New(validator Validator, renderer Renderer, repairer Repairer, opts ...Option) *Pipeline {
	if repairer == nil {
		repairer = repair.NewWithOracle(nil, nil)
	}
	p := &Pipeline{
		validator:         validator,
		renderer:          renderer,
		repairer:          repairer,
		maxRenderAttempts: DefaultMaxRenderAttempts,
		logger:            logging.NewNop(),
		newID:             uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.scratchRoot == "" {
		p.scratchRoot = filepath.Join(os.TempDir(), "animforge")
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}

// CreateAnimation runs the full pipeline and returns the artifact path.
// maxRenderAttempts <= 0 uses the configured default.
func (p *Pipeline) CreateAnimation(ctx context.Context, source, outputDir string, maxRenderAttempts int) (string, bool) {
	report := p.Run(ctx, Request{Source: source, OutputDir: outputDir, MaxRenderAttempts: maxRenderAttempts})
	return report.ArtifactPath, report.Succeeded()
}

// Run executes one request and returns its Report.
func (p *Pipeline) Run(ctx context.Context, req Request) Report {
	report := Report{
		RunID:     p.newID(),
		Label:     req.Label,
		StartedAt: time.Now().UTC(),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	repairsBefore := p.repairCalls()

	p.execute(ctx, req, &report)

	report.RepairCalls = p.repairCalls() - repairsBefore
	report.FinishedAt = time.Now().UTC()
	p.finish(ctx, report)
	return report
}

func (p *Pipeline) execute(ctx context.Context, req Request, report *Report) {
	logger := logging.WithContext(ctx, p.logger)
	if strings.TrimSpace(req.Source) == "" {
		report.Err = services.Wrap(services.ErrEmptySource, "input", "create animation", "no source provided", nil)
		logging.ErrorWithContext(logger, "no animation source provided", "empty_source",
			logging.String(logging.FieldErrorHint, "pass a non-empty script"),
		)
		return
	}

	// Validation.
	validateCtx := services.WithStage(ctx, "validation")
	result := p.validator.Validate(validateCtx, req.Source)
	report.ValidationHistory = result.History
	report.ValidationAttempts = result.Attempts()
	report.Source = result.Source
	if !result.Valid {
		for _, rec := range result.History {
			logger.Error("validation attempt failed",
				logging.Args(
					logging.Int(logging.FieldAttempt, rec.Attempt),
					logging.String("diagnostic", rec.Error),
				)...,
			)
		}
		report.Err = services.Wrap(services.ErrCompile, "validation", "validate source",
			"failed to produce compilable code after maximum attempts", nil)
		return
	}

	// Scene extraction.
	sceneID, ok := scene.Extract(result.Source)
	if !ok {
		report.Err = services.Wrap(services.ErrMissingScene, "scene", "extract scene", "no Scene subclass found in validated code", nil)
		logging.ErrorWithContext(logger, "could not find scene class in the validated code", "missing_scene",
			logging.String(logging.FieldErrorHint, "declare a class deriving from a Scene type"),
		)
		return
	}
	report.SceneID = sceneID

	// Trial render-fix loop.
	candidate, ok := p.trialLoop(services.WithStage(ctx, "trial_render"), req, sceneID, report)
	report.Source = candidate
	if !ok {
		return
	}

	// Final render; never repaired.
	finalCtx := services.WithStage(ctx, "final_render")
	path, err := p.final(finalCtx, candidate, sceneID, req.OutputDir)
	if err != nil {
		report.Err = err
		return
	}
	report.ArtifactPath = path
}

func (p *Pipeline) trialLoop(ctx context.Context, req Request, sceneID string, report *Report) (string, bool) {
	budget := req.MaxRenderAttempts
	if budget <= 0 {
		budget = p.maxRenderAttempts
	}
	candidate := report.Source
	trialDir := filepath.Join(p.scratchRoot, "trial-"+report.RunID)

	for attempt := 1; attempt <= budget; attempt++ {
		attemptCtx := services.WithAttempt(ctx, attempt)
		logger := logging.WithContext(attemptCtx, p.logger)
		report.RenderAttempts = attempt

		outcome := p.trialOnce(attemptCtx, candidate, sceneID, trialDir)
		if outcome.Success {
			logger.Info("trial render passed; proceeding with final render",
				logging.Args(logging.DecisionAttrs("render_loop", "proceed", "trial render succeeded")...)...)
			return candidate, true
		}
		report.RenderHistory = append(report.RenderHistory, TrialRecord{Attempt: attempt, Diagnostic: outcome.Diagnostic})
		decision := logging.DecisionAttrs("render_loop",
			textutil.Ternary(attempt < budget, "repair", "abort"),
			textutil.Ternary(attempt < budget, "render attempts remain", "render-fix budget exhausted"))

		if attempt < budget {
			logging.WarnWithContext(logger, "trial render failed; requesting repair", "trial_render_failed",
				append(decision,
					logging.Int("max_attempts", budget),
					logging.String("diagnostic", outcome.Diagnostic),
					logging.String(logging.FieldErrorHint, "the repair oracle will be asked to fix the render error"),
					logging.String(logging.FieldImpact, "render attempt consumed"),
				)...,
			)
			candidate = p.repairer.Repair(attemptCtx, candidate, outcome.Diagnostic)
			continue
		}
		logging.ErrorWithContext(logger, "failed to fix rendering errors", "trial_render_exhausted",
			append(decision,
				logging.Int("max_attempts", budget),
				logging.String("diagnostic", outcome.Diagnostic),
				logging.String(logging.FieldErrorHint, "inspect the render diagnostic and fix the script manually"),
			)...,
		)
	}
	p.removeTrialMedia(ctx, trialDir)
	report.Err = services.Wrap(services.ErrTrialRender, "trial_render", "render fix loop", "render-fix budget exhausted", nil)
	return candidate, false
}

// trialOnce writes candidate to a fresh scratch file, trial-renders it, and
// removes the file.
func (p *Pipeline) trialOnce(ctx context.Context, candidate, sceneID, trialDir string) render.Outcome {
	sourcePath, err := fileutil.WriteScratch(p.scratchRoot, "anim", ".py", []byte(candidate))
	if err != nil {
		return render.Outcome{Diagnostic: "Trial render exception: " + err.Error()}
	}
	defer p.removeScratch(ctx, sourcePath)
	return p.renderer.Trial(ctx, sourcePath, sceneID, trialDir)
}

func (p *Pipeline) final(ctx context.Context, candidate, sceneID, outputDir string) (string, error) {
	sourcePath, err := fileutil.WriteScratch(p.scratchRoot, "anim", ".py", []byte(candidate))
	if err != nil {
		return "", services.Wrap(services.ErrFinalRender, "final_render", "write scratch source", "", err)
	}
	defer p.removeScratch(ctx, sourcePath)
	outcome := p.renderer.RenderFinal(ctx, sourcePath, sceneID, outputDir, candidate)
	if outcome.Err != nil {
		return "", outcome.Err
	}
	return outcome.ArtifactPath, nil
}

func (p *Pipeline) removeScratch(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "scratch source cleanup failed", "scratch_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a temporary file is left behind"),
		)
	}
}

func (p *Pipeline) removeTrialMedia(ctx context.Context, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "trial media cleanup failed", "trial_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
			logging.String(logging.FieldImpact, "scratch space is not reclaimed"),
		)
	}
}

func (p *Pipeline) repairCalls() int {
	if counter, ok := p.repairer.(interface{ Calls() int }); ok {
		return counter.Calls()
	}
	return 0
}

func (p *Pipeline) finish(ctx context.Context, report Report) {
	logger := logging.WithContext(ctx, p.logger)
	attrs := []logging.Attr{
		logging.String("scene", report.SceneID),
		logging.Int("validation_attempts", report.ValidationAttempts),
		logging.Int("render_attempts", report.RenderAttempts),
		logging.Int("repair_calls", report.RepairCalls),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	}
	if report.Succeeded() {
		logger.Info("animation run succeeded", logging.Args(append(attrs, logging.String("artifact", report.ArtifactPath))...)...)
	} else {
		logger.Error("animation run failed", logging.Args(append(attrs,
			logging.String("failure_stage", services.FailureStage(report.Err)),
			logging.Error(report.Err))...)...)
	}
	for _, recorder := range p.recorders {
		if err := recorder.Record(ctx, report); err != nil {
			logging.WarnWithContext(logger, "run report not recorded", "report_record_failed",
				logging.String("recorder", fmt.Sprintf("%T", recorder)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path permissions or the ntfy topic"),
				logging.String(logging.FieldImpact, "run is missing from history or was not announced"),
			)
		}
	}
}
