package textutil

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged, got %q", got)
	}
	if got := Truncate("exactly10!", 10); got != "exactly10!" {
		t.Fatalf("expected unchanged at limit, got %q", got)
	}
	if got := Truncate("abcdefghijkl", 10); got != "abcdefghij..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("ééééé", 3); got != "ééé..." {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
	long := strings.Repeat("x", 600)
	if got := Truncate(long, 500); len(got) != 503 {
		t.Fatalf("expected 503 bytes, got %d", len(got))
	}
}

func TestNumberLines(t *testing.T) {
	got := NumberLines("a\nb")
	if got != "  1: a\n  2: b" {
		t.Fatalf("unexpected dump %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("\n  \n  hello  \nworld"); got != "hello" {
		t.Fatalf("unexpected first line %q", got)
	}
	if FirstLine("   ") != "" {
		t.Fatal("expected empty first line")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("My Scene!"); got != "my_scene" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
