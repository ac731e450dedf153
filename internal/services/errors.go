package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySource       = errors.New("empty source")
	ErrCompile           = errors.New("compile error")
	ErrMissingScene      = errors.New("missing scene identifier")
	ErrTrialRender       = errors.New("trial render failure")
	ErrFinalRender       = errors.New("final render failure")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrRepairUnavailable = errors.New("repair oracle unavailable")
	ErrExternalTool      = errors.New("external tool error")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStage maps a terminal pipeline error to the short stage label stored in
// run history. A nil error maps to "none".
func FailureStage(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEmptySource):
		return "input"
	case errors.Is(err, ErrCompile):
		return "validation"
	case errors.Is(err, ErrMissingScene):
		return "scene"
	case errors.Is(err, ErrTrialRender):
		return "trial_render"
	case errors.Is(err, ErrFinalRender), errors.Is(err, ErrArtifactNotFound):
		return "final_render"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
