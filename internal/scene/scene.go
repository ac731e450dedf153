// Package scene extracts the renderable scene class name from Manim source.
package scene

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// identChar matches Python identifier characters; RE2's \w is ASCII-only.
const identChar = `[\p{L}\p{Nl}\p{Mn}\p{Mc}\p{Nd}\p{Pc}]`

// A scene declaration is `class <Name>(<Base>)` where Base is one identifier
// containing "Scene".
var declPattern = regexp.MustCompile(`class\s+(` + identChar + `+)\s*\(\s*` + identChar + `*Scene` + identChar + `*\s*\)`)

// Extract returns the first scene class name in document order.
func Extract(source string) (string, bool) {
	m := declPattern.FindStringSubmatch(source)
	if m == nil {
		return "", false
	}
	return normalize(m[1]), true
}

// ExtractAll returns every scene class name in document order.
func ExtractAll(source string) []string {
	matches := declPattern.FindAllStringSubmatch(source, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, normalize(m[1]))
	}
	return names
}

// Python compares identifiers after NFKC normalization, so the engine must
// receive the normalized spelling.
func normalize(name string) string {
	return norm.NFKC.String(name)
}
