package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"animforge/internal/config"
	"animforge/internal/deps"
	"animforge/internal/procexec"
	"animforge/internal/repair"
	"animforge/internal/services"
)

const repairCheckTimeout = 30 * time.Second

// CheckRepair verifies that the configured repair oracle is reachable.
// Oracles without a health endpoint pass once constructed.
func CheckRepair(ctx context.Context, client *repair.Client) Result {
	const name = "Repair oracle"

	if !client.Available() {
		return Result{Name: name, Detail: "unavailable (fixes pass code through unchanged)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, repairCheckTimeout)
	defer cancel()

	if err := client.Check(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeOracleError(err)}
	}
	return Result{Name: name, Passed: true, Detail: client.Backend() + " reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHistoryLocation verifies the history database can be created or opened.
func CheckHistoryLocation(path string) Result {
	const name = "History database"

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: path}
	}
	dir := CheckDirectoryAccess(name, filepath.Dir(path))
	if !dir.Passed {
		return dir
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckSystemDeps evaluates the external binaries the config requires and
// probes their versions.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, exec procexec.Executor) []deps.Status {
	requirements := deps.Requirements(cfg)
	statuses := deps.CheckBinaries(requirements)
	deps.ProbeVersions(ctx, exec, requirements, statuses)
	return statuses
}

// summarizeOracleError produces a human-readable summary for oracle health check failures.
func summarizeOracleError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (oracle API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (oracle API unreachable)"
	}
	if errors.Is(err, services.ErrRepairUnavailable) {
		return "no oracle configured"
	}
	return err.Error()
}
