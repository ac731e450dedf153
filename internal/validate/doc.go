// Package validate statically checks candidate Manim source and drives the
// validation-fix loop.
//
// Each attempt compiles the candidate in an isolated scratch directory that
// is removed before the attempt returns. On failure the diagnostic is
// recorded in the error history and handed to the repairer; the repaired
// text becomes the next candidate. The loop is bounded by the configured
// attempt budget and never returns an error: infrastructure faults become
// diagnostics and consume an attempt like any compile failure.
//
// Two compilers are provided. PythonCompiler runs `python3 -m py_compile`
// and matches the interpreter exactly. SyntaxCompiler parses with the
// tree-sitter Python grammar in process, for hosts without an interpreter.
package validate
