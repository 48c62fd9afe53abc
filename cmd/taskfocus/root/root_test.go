package root

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nhle/task-focus/internal/auth"
	"github.com/nhle/task-focus/internal/model"
	"github.com/nhle/task-focus/internal/priority"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := run(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if _, err := run(t, "config", "init", "--config", path); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := run(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.WeekSpanDays != 5 {
		t.Errorf("WeekSpanDays = %d, want 5", cfg.Engine.WeekSpanDays)
	}
}

func TestTokenIssue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := model.DefaultAppConfig()
	cfg.Server.AuthToken = "s3cret"
	if err := model.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	out, err := run(t, "token", "issue", "--config", path, "--user", "u1", "--email", "u1@example.com")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	claims, err := auth.Verify(strings.TrimSpace(out), "s3cret", time.Now())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := run(t, "token", "issue", "--config", path); err == nil {
		t.Error("issue without --user should fail")
	}
}

func TestServeRequiresSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := model.SaveConfig(path, model.DefaultAppConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	t.Setenv("TASKFOCUS_SERVER_AUTH_TOKEN", "")
	if _, err := run(t, "serve", "--config", path); err == nil || !strings.Contains(err.Error(), "auth_token") {
		t.Errorf("serve = %v, want missing secret error", err)
	}
}

func TestPrintBoard(t *testing.T) {
	due := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	var b priority.Board
	for i, q := range priority.Quadrants {
		b[i].Quadrant = q
	}
	b[1].Tasks = []priority.Annotated{{
		Task:       model.Task{ID: "0123456789", Title: "File taxes", Priority: model.PriorityHigh, DueDate: &due},
		Suggestion: priority.SuggestionOverdue,
	}}

	var out bytes.Buffer
	printBoard(&out, b)
	got := out.String()
	for _, want := range []string{"Important & Urgent (1)", "[high] File taxes  01234567", "due 2025-06-09", "(overdueTask)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestWriteStructured(t *testing.T) {
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	sessions := []model.FocusSession{{ID: "s1", StartTime: start, TimeSpent: 42}}

	var out bytes.Buffer
	done, err := writeStructured(&out, false, true, sessions)
	if !done || err != nil {
		t.Fatalf("writeStructured = %v, %v", done, err)
	}
	for _, want := range []string{"id: s1", "timeSpent: 42", "startTime:", "2025-06-10T09:00:00Z"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("yaml missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if done, _ := writeStructured(&out, false, false, sessions); done || out.Len() != 0 {
		t.Errorf("plain output was claimed: done=%v len=%d", done, out.Len())
	}
}
