package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"animforge/internal/testsupport"
)

func TestValidateCommandReportsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Validation.MaxAttempts = 2
	writeTestConfig(t, env.configPath, env.cfg)
	script := testsupport.WriteScript(t, env.baseDir, "broken.py", "class Broken(Scene:\n    pass\n")

	out, _, err := runCLI(t, []string{"validate", script}, env.configPath)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	requireContains(t, out, "does not compile")
	requireContains(t, out, "ATTEMPT")
	requireContains(t, out, "Repair oracle:")
	requireContains(t, out, "none")
}

func TestValidateCommandPassesValidScript(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, env.baseDir, "hello.py", validScript)

	out, _, err := runCLI(t, []string{"validate", "--write", script}, env.configPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "compiles")
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if string(data) != validScript {
		t.Fatal("unchanged script must not be rewritten")
	}
}

func TestSceneCommandMarksFirst(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteScript(t, dir, "multi.py", "class Intro(Scene):\n    pass\n\nclass Outro(ThreeDScene):\n    pass\n")

	out, _, err := runCLI(t, []string{"scene", script}, "")
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if out != "* Intro\n  Outro\n" {
		t.Fatalf("unexpected output %q", out)
	}

	empty := testsupport.WriteScript(t, dir, "plain.py", "class Thing(object):\n    pass\n")
	if _, _, err := runCLI(t, []string{"scene", empty}, ""); err == nil {
		t.Fatal("expected error without scene class")
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor", "--skip-oracle"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Manim Community v0.18.1")
	requireContains(t, out, "Output directory")
	requireContains(t, out, "History database")
}

func TestDoctorCommandFlagsMissingEngine(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Render.Binary = "animforge-missing-engine"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor", "--skip-oracle"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to report a problem")
	}
	requireContains(t, out, "[ERROR]")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "repairs will pass code through unchanged")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.History.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when history is disabled")
	}
	requireContains(t, err.Error(), "disabled")
}

func TestDoctorSendsTestNotification(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = server.URL
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"doctor", "--skip-oracle", "--test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "test message sent")
	if hits.Load() != 1 {
		t.Fatalf("expected one ntfy request, got %d", hits.Load())
	}
}

func TestLogsCommandFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "animforge.log")
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "INFO pipeline: started run_id=aaa111\nINFO pipeline: started run_id=bbb222\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--run", "bbb"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "INFO pipeline: started run_id=bbb222\n" {
		t.Fatalf("unexpected output %q", out)
	}
}
