// Package preflight provides readiness checks for the external tools,
// directories and repair oracle that animforge depends on.
//
// The CLI "animforge doctor" command runs RunAll and prints the results.
// The render command runs the directory checks before taking the run lock
// so that an unwritable output directory fails fast.
package preflight
