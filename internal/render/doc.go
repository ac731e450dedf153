// Package render drives the Manim engine for trial and final renders and
// locates the produced video.
//
// Trial renders run at low fidelity into a throwaway media directory that is
// removed on success; failures return a composed diagnostic for the repair
// loop. Final renders run at the final fidelity into the output directory and
// are never retried here: a final failure after a passing trial is logged
// with a line-numbered source dump for postmortem.
//
// Artifact discovery is pluggable. SubstringLocator mirrors the tolerant
// search (file-stem subtree first, then the whole media dir). ExactLocator
// computes the engine's documented layout.
package render
