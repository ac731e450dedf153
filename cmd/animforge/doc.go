// Package main hosts the animforge CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into pipeline runs,
// validation-only passes, scene inspection, dependency checks, run history
// queries, and configuration scaffolding. It centralizes configuration
// resolution and logger setup so subcommands can focus on output.
//
// Keep this package lean: new behavior belongs in the internal packages first,
// surfaced here through dedicated commands or flags.
package main
