package repair

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"animforge/internal/config"
	"animforge/internal/services"
)

type stubOracle struct {
	reply   string
	err     error
	systems []string
	prompts []string
}

func (s *stubOracle) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.systems = append(s.systems, systemPrompt)
	s.prompts = append(s.prompts, userPrompt)
	return s.reply, s.err
}

func (s *stubOracle) Name() string { return "stub" }

type slowOracle struct{}

func (slowOracle) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowOracle) Name() string { return "slow" }

type healthOracle struct {
	stubOracle
	healthErr error
}

func (h *healthOracle) HealthCheck(context.Context) error { return h.healthErr }

func TestRepairUnavailablePassesThrough(t *testing.T) {
	client := NewWithOracle(nil, nil)
	if client.Available() {
		t.Fatal("expected client without oracle to be unavailable")
	}
	source := "class Demo(Scene):\n    pass\n"
	for i := 0; i < 4; i++ {
		if got := client.Repair(context.Background(), source, "boom"); got != source {
			t.Fatalf("call %d: expected pass-through, got %q", i, got)
		}
	}
	if client.Calls() != 4 {
		t.Fatalf("expected 4 calls, got %d", client.Calls())
	}
	if client.Backend() != "none" {
		t.Fatalf("expected backend none, got %q", client.Backend())
	}
}

func TestRepairStripsFencesAndSendsDiagnostic(t *testing.T) {
	oracle := &stubOracle{reply: "```python\nclass Fixed(Scene):\n    pass\n```"}
	client := NewWithOracle(oracle, nil)

	got := client.Repair(context.Background(), "class Broken(Scene) pass", "SyntaxError: invalid syntax")
	if got != "class Fixed(Scene):\n    pass" {
		t.Fatalf("unexpected repaired source %q", got)
	}
	if len(oracle.prompts) != 1 {
		t.Fatalf("expected one oracle call, got %d", len(oracle.prompts))
	}
	prompt := oracle.prompts[0]
	if !strings.Contains(prompt, "ERROR: SyntaxError: invalid syntax") {
		t.Fatalf("prompt missing diagnostic: %q", prompt)
	}
	if !strings.Contains(prompt, "MANIM CODE TO FIX:\nclass Broken(Scene) pass") {
		t.Fatalf("prompt missing source: %q", prompt)
	}
	if oracle.systems[0] != systemInstruction {
		t.Fatalf("unexpected system instruction %q", oracle.systems[0])
	}
}

func TestRepairWithoutDiagnosticUsesReviewPrompt(t *testing.T) {
	oracle := &stubOracle{reply: "x = 1"}
	client := NewWithOracle(oracle, nil)
	client.Repair(context.Background(), "x = 0", "")
	if !strings.HasPrefix(oracle.prompts[0], "Review and fix this Manim Python code") {
		t.Fatalf("unexpected prompt %q", oracle.prompts[0])
	}
	if strings.Contains(oracle.prompts[0], "ERROR:") {
		t.Fatalf("review prompt should not carry an error section: %q", oracle.prompts[0])
	}
}

func TestRepairOracleErrorPassesThrough(t *testing.T) {
	oracle := &stubOracle{err: errors.New("quota exceeded")}
	client := NewWithOracle(oracle, nil)
	if got := client.Repair(context.Background(), "x = 0", "err"); got != "x = 0" {
		t.Fatalf("expected original source, got %q", got)
	}
}

func TestRepairEmptyReplyPassesThrough(t *testing.T) {
	for _, reply := range []string{"", "   \n", "```\n```"} {
		client := NewWithOracle(&stubOracle{reply: reply}, nil)
		if got := client.Repair(context.Background(), "x = 0", "err"); got != "x = 0" {
			t.Fatalf("reply %q: expected original source, got %q", reply, got)
		}
	}
}

func TestRepairTimeoutPassesThrough(t *testing.T) {
	client := NewWithOracle(slowOracle{}, nil, WithTimeout(10*time.Millisecond))
	if got := client.Repair(context.Background(), "x = 0", "err"); got != "x = 0" {
		t.Fatalf("expected original source after timeout, got %q", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```python\nx = 1\n```":       "x = 1",
		"```\nx = 1\n```":             "x = 1",
		"  x = 1  ":                   "x = 1",
		"x = 1\n```":                  "x = 1",
		"```python\nx = 1":            "x = 1",
		"print('```inline```')":       "print('```inline```')",
		"```py\nx = 1\n```":           "py\nx = 1",
		"\n\n```python\ny = 2\n```\n": "y = 2",
	}
	for input, want := range cases {
		if got := StripCodeFences(input); got != want {
			t.Fatalf("StripCodeFences(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewWithoutAPIKeyIsUnavailable(t *testing.T) {
	client := New(context.Background(), config.Repair{Provider: config.ProviderGemini}, nil)
	if client.Available() {
		t.Fatal("expected unavailable client without api key")
	}
	if got := client.Repair(context.Background(), "x = 0", "err"); got != "x = 0" {
		t.Fatalf("expected pass-through, got %q", got)
	}
}

func TestNewOracleSelectsBackend(t *testing.T) {
	cases := map[string]string{
		config.ProviderGemini:     "gemini:",
		config.ProviderOpenRouter: "openrouter",
		config.ProviderOpenAI:     "openai:",
	}
	for provider, prefix := range cases {
		oracle, err := NewOracle(context.Background(), config.Repair{Provider: provider, APIKey: "k", Model: "m"})
		if err != nil {
			t.Fatalf("%s: NewOracle: %v", provider, err)
		}
		if !strings.HasPrefix(oracle.Name(), prefix) {
			t.Fatalf("%s: unexpected oracle name %q", provider, oracle.Name())
		}
	}
}

func TestNewOracleUnknownProvider(t *testing.T) {
	_, err := NewOracle(context.Background(), config.Repair{Provider: "carrier-pigeon", APIKey: "k"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	if err := NewWithOracle(nil, nil).Check(context.Background()); !errors.Is(err, services.ErrRepairUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if err := NewWithOracle(&stubOracle{}, nil).Check(context.Background()); err != nil {
		t.Fatalf("expected nil for oracle without health probe, got %v", err)
	}
	probeErr := errors.New("bad key")
	if err := NewWithOracle(&healthOracle{healthErr: probeErr}, nil).Check(context.Background()); !errors.Is(err, probeErr) {
		t.Fatalf("expected probe error, got %v", err)
	}
}
