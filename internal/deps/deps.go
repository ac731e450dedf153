package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"animforge/internal/config"
	"animforge/internal/procexec"
	"animforge/internal/textutil"
)

// Requirement defines an external dependency animforge relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to Command to report its version.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Version     string
	Detail      string
}

// Requirements lists the external tools the configuration needs.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Manim",
			Command:     cfg.Render.Binary,
			Description: "Renders trial and final animations",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "Python",
			Command:     cfg.Validation.PythonBinary,
			Description: "Compile-only validation (py_compile)",
			Optional:    cfg.Validation.Compiler != config.CompilerPython,
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Render.FFprobeBinary,
			Description: "Verifies rendered artifacts",
			Optional:    !cfg.Render.VerifyArtifact,
			VersionArgs: []string{"-version"},
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

const versionTimeout = 10 * time.Second

// ProbeVersions fills Version for available statuses whose requirement
// declares VersionArgs. Failures leave Version empty.
func ProbeVersions(ctx context.Context, exec procexec.Executor, requirements []Requirement, statuses []Status) {
	if exec == nil {
		exec = procexec.CommandExecutor{}
	}
	for i := range statuses {
		if i >= len(requirements) || !statuses[i].Available || len(requirements[i].VersionArgs) == 0 {
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
		result, err := exec.Run(probeCtx, statuses[i].Path, requirements[i].VersionArgs)
		cancel()
		if err != nil || !result.Success() {
			continue
		}
		line := textutil.FirstLine(result.Stdout)
		if line == "" {
			line = textutil.FirstLine(result.Stderr)
		}
		statuses[i].Version = line
	}
}
