package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"animforge/internal/config"
	"animforge/internal/fileutil"
	"animforge/internal/pipeline"
	"animforge/internal/preflight"
	"animforge/internal/runlock"
	"animforge/internal/services"
	"animforge/internal/textutil"
)

// renderView is the JSON shape of a render run.
type renderView struct {
	pipeline.Report
	Succeeded    bool   `json:"succeeded"`
	FailureStage string `json:"failure_stage"`
	Error        string `json:"error,omitempty"`
	CopiedTo     string `json:"copied_to,omitempty"`
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var maxAttempts int
	var jsonOutput bool
	var copyTo string

	cmd := &cobra.Command{
		Use:   "render <script.py>",
		Short: "Validate, repair and render an animation script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			scriptPath, source, err := readScript(args[0])
			if err != nil {
				return err
			}

			output := cfg.Paths.OutputDir
			if strings.TrimSpace(outputDir) != "" {
				output, err = config.ExpandPath(strings.TrimSpace(outputDir))
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				if err := os.MkdirAll(output, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if check := preflight.CheckDirectoryAccess("Output directory", output); !check.Passed {
				return errors.New(check.Detail)
			}

			lock, err := runlock.Acquire(output)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			s, err := ctx.buildStack(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := ctx.newPipeline(s)
			if err != nil {
				return err
			}

			report := p.Run(cmd.Context(), pipeline.Request{
				Source:            source,
				OutputDir:         output,
				MaxRenderAttempts: maxAttempts,
				Label:             filepath.Base(scriptPath),
			})

			view := renderView{
				Report:       report,
				Succeeded:    report.Succeeded(),
				FailureStage: services.FailureStage(report.Err),
				Error:        report.ErrorMessage(),
			}

			if report.Succeeded() && strings.TrimSpace(copyTo) != "" {
				dst, err := copyDestination(copyTo, scriptPath)
				if err != nil {
					return err
				}
				if err := fileutil.CopyFileVerified(report.ArtifactPath, dst); err != nil {
					return fmt.Errorf("copy artifact: %w", err)
				}
				view.CopiedTo = dst
			}

			if jsonOutput {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				printRenderSummary(cmd, view)
			}

			if !report.Succeeded() {
				return fmt.Errorf("render failed (%s): %s", view.FailureStage, view.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().IntVar(&maxAttempts, "max-render-attempts", 0, "Render-fix budget (defaults to render.max_render_attempts)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	cmd.Flags().StringVar(&copyTo, "copy-to", "", "Copy the final artifact to this file or directory")
	return cmd
}

func readScript(arg string) (string, string, error) {
	path, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", "", fmt.Errorf("resolve script path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read script: %w", err)
	}
	return path, string(data), nil
}

// copyDestination resolves --copy-to. A directory target receives a file
// named after the script as a lowercase token.
func copyDestination(target, scriptPath string) (string, error) {
	dst, err := config.ExpandPath(strings.TrimSpace(target))
	if err != nil {
		return "", fmt.Errorf("resolve copy destination: %w", err)
	}
	info, err := os.Stat(dst)
	isDir := err == nil && info.IsDir()
	if isDir || strings.HasSuffix(target, string(os.PathSeparator)) {
		stem := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
		return filepath.Join(dst, textutil.SanitizeToken(stem)+".mp4"), nil
	}
	return dst, nil
}

func printRenderSummary(cmd *cobra.Command, view renderView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if view.Succeeded {
		fmt.Fprintln(out, renderStatusLine("Render", statusOK, view.ArtifactPath, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Render", statusError, "failed at "+view.FailureStage, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, view.RunID, colorize))
	if view.SceneID != "" {
		fmt.Fprintln(out, renderStatusLine("Scene", statusInfo, view.SceneID, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo,
		fmt.Sprintf("validation %d, render %d, repairs %d", view.ValidationAttempts, view.RenderAttempts, view.RepairCalls), colorize))
	if view.CopiedTo != "" {
		fmt.Fprintln(out, renderStatusLine("Copied", statusOK, view.CopiedTo, colorize))
	}
}
