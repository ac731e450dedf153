// Package repair asks a language-model oracle to fix generated Manim code.
//
// The client is fail-soft: any oracle failure, an empty reply, or a missing
// oracle returns the input source unchanged so the caller's retry loop keeps
// its budget semantics. Three oracle backends are available: Gemini via the
// Google Gen AI SDK, OpenRouter via the retrying HTTP client in
// internal/services/llm, and OpenAI-compatible endpoints via go-openai.
package repair
