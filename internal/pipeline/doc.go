// Package pipeline sequences validation, scene extraction, the trial
// render-fix loop and the final render for one animation request.
//
// The orchestrator owns two independent retry budgets: the validation-fix
// budget (inside the validator) and the render-fix budget (here). Validation
// failure is always terminal; a final-render failure is never repaired.
// Each run is tagged with a UUID used as the log correlation id and in
// scratch directory names, and its Report may be handed to a Recorder.
package pipeline
