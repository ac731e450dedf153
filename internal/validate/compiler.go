package validate

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"animforge/internal/procexec"
)

// Compiler performs a compile-only check of the file at path. ok reports a
// clean compile; err reports that the check itself could not run.
type Compiler interface {
	Compile(ctx context.Context, path string) (diagnostic string, ok bool, err error)
	Name() string
}

// PythonCompiler byte-compiles with the Python interpreter.
type PythonCompiler struct {
	binary string
	exec   procexec.Executor
}

// PythonOption customizes a PythonCompiler.
type PythonOption func(*PythonCompiler)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) PythonOption {
	return func(c *PythonCompiler) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// NewPythonCompiler returns a compiler invoking binary (default python3).
func NewPythonCompiler(binary string, opts ...PythonOption) *PythonCompiler {
	if strings.TrimSpace(binary) == "" {
		binary = "python3"
	}
	c := &PythonCompiler{binary: binary, exec: procexec.CommandExecutor{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Compiler.
func (c *PythonCompiler) Name() string { return "py_compile" }

// Compile implements Compiler.
func (c *PythonCompiler) Compile(ctx context.Context, path string) (string, bool, error) {
	result, err := c.exec.Run(ctx, c.binary, []string{"-m", "py_compile", path})
	if err != nil {
		return "", false, fmt.Errorf("run %s: %w", c.binary, err)
	}
	if result.Success() {
		return "", true, nil
	}
	diagnostic := strings.TrimSpace(result.Stderr)
	if diagnostic == "" {
		diagnostic = strings.TrimSpace(result.Stdout)
	}
	if diagnostic == "" {
		diagnostic = fmt.Sprintf("py_compile exited with status %d", result.ExitCode)
	}
	return diagnostic, false, nil
}

const maxSyntaxErrors = 20

// SyntaxCompiler checks Python syntax with tree-sitter.
type SyntaxCompiler struct{}

// NewSyntaxCompiler returns an in-process syntax checker.
func NewSyntaxCompiler() *SyntaxCompiler { return &SyntaxCompiler{} }

// Name implements Compiler.
func (*SyntaxCompiler) Name() string { return "tree-sitter" }

// Compile implements Compiler.
func (*SyntaxCompiler) Compile(ctx context.Context, path string) (string, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read candidate: %w", err)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return "", false, fmt.Errorf("parse candidate: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return "", true, nil
	}
	var problems []string
	collectSyntaxErrors(root, content, &problems, 0)
	if len(problems) == 0 {
		problems = append(problems, "invalid syntax")
	}
	return fmt.Sprintf("File %q: SyntaxError: %s", path, strings.Join(problems, "; ")), false, nil
}

func collectSyntaxErrors(node *sitter.Node, content []byte, problems *[]string, depth int) {
	if node == nil || depth > 1000 || len(*problems) >= maxSyntaxErrors {
		return
	}
	if node.IsMissing() || node.IsError() {
		pos := node.StartPoint()
		var msg string
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %q", node.Type())
		} else {
			msg = "unexpected " + snippet(content, node.StartByte(), node.EndByte())
		}
		*problems = append(*problems, fmt.Sprintf("line %d, col %d: %s", pos.Row+1, pos.Column+1, msg))
		if node.IsError() {
			return
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxErrors(node.Child(i), content, problems, depth+1)
	}
}

func snippet(content []byte, start, end uint32) string {
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if start >= end {
		return "token"
	}
	text := strings.TrimSpace(string(content[start:end]))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	if text == "" {
		return "token"
	}
	return fmt.Sprintf("%q", text)
}
