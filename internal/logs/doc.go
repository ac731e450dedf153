// Package logs tails the animforge log file for the CLI "logs" command.
//
// Tail reads the last N lines with bounded memory, then follow mode polls from
// the returned offset. A Match predicate narrows output to one pipeline run,
// for both the console and JSON log formats.
package logs
