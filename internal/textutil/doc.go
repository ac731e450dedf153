// Package textutil holds small string helpers shared by the validation and
// render stages: snapshot truncation, line-numbered source dumps and
// filesystem-safe tokens.
package textutil
