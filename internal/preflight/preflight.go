package preflight

import (
	"context"

	"animforge/internal/config"
	"animforge/internal/repair"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The repair oracle check is skipped when client is nil.
func RunAll(ctx context.Context, cfg *config.Config, client *repair.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := CheckDirectories(cfg)

	if cfg.History.Enabled {
		results = append(results, CheckHistoryLocation(cfg.HistoryPath()))
	}

	if client != nil {
		results = append(results, CheckRepair(ctx, client))
	}

	return results
}

// CheckDirectories verifies the output, scratch and log directories.
func CheckDirectories(cfg *config.Config) []Result {
	return []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}
