// Package llm is the OpenRouter repair backend: a plain net/http client for
// the OpenAI-compatible chat completions endpoint.
//
// Complete sends a system and a user prompt and returns the reply text.
// HealthCheck sends a one-word ping through the same path.
//
// Requests that fail with HTTP 408, 429 or 5xx, return no text, or time out
// at the network layer are retried with exponential backoff. Retry-After is
// honoured up to the maximum delay. Context cancellation stops retries.
package llm
