// Package config loads, normalizes, and validates animforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// repair oracle credential. The Config type centralizes every knob the
// pipeline and CLI need so render directories, engine binaries, retry budgets
// and oracle settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
