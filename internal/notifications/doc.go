// Package notifications pushes run outcomes to ntfy.
//
// The Service doubles as a pipeline recorder, so the CLI attaches it next to
// the history store and every finished run is announced once. Without a
// configured topic NewService returns a no-op implementation.
package notifications
