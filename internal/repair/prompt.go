package repair

import (
	"strings"
)

const systemInstruction = "You are an expert Manim code fixer. Return only corrected Python code, no explanations or markdown."

// BuildPrompt returns the user directive sent to the oracle.
func BuildPrompt(source, diagnostic string) string {
	var b strings.Builder
	if strings.TrimSpace(diagnostic) != "" {
		b.WriteString("Fix this Manim Python code that has the following error:\n\n")
		b.WriteString("ERROR: ")
		b.WriteString(diagnostic)
		b.WriteString("\n\nMANIM CODE TO FIX:\n")
		b.WriteString(source)
	} else {
		b.WriteString("Review and fix this Manim Python code to ensure it compiles and runs correctly:\n\n")
		b.WriteString("MANIM CODE:\n")
		b.WriteString(source)
	}
	b.WriteString("\n\nReturn only the corrected Python code with proper Manim syntax.")
	return b.String()
}

// StripCodeFences removes a leading ```python or ``` marker and a trailing ```
// marker from an oracle reply. Text without markers is only trimmed.
func StripCodeFences(text string) string {
	out := strings.TrimSpace(text)
	out = strings.TrimPrefix(out, "```python")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
