package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func setHome(t *testing.T) {
	t.Helper()
	t.Setenv("FLOW_HOME", t.TempDir())
}

func runTask(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var buf bytes.Buffer
	code := runTaskCommand(context.Background(), &buf, args)
	return code, buf.String()
}

func TestTaskNewAndSearch(t *testing.T) {
	setHome(t)

	code, out := runTask(t, "new", "cli.demo")
	if code != 0 {
		t.Fatalf("task new exit = %d", code)
	}
	if !strings.Contains(out, `created task "cli.demo"`) {
		t.Fatalf("unexpected output %q", out)
	}

	code, out = runTask(t, "search", "cli")
	if code != 0 {
		t.Fatalf("task search exit = %d", code)
	}
	if !strings.Contains(out, "cli.demo") || !strings.Contains(out, "in progress") {
		t.Fatalf("search output %q", out)
	}
	if !strings.Contains(out, "focused 0s") {
		t.Fatalf("expected zero focused time for fresh task, got %q", out)
	}
}

func TestTaskNew_RejectsBadName(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "new", "noproject"); code != 1 {
		t.Fatalf("exit = %d, want 1 for invalid name", code)
	}
}

func TestTaskNew_RejectsDuplicate(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "new", "dup.name"); code != 0 {
		t.Fatal("first create failed")
	}
	if code, _ := runTask(t, "new", "dup.name"); code != 1 {
		t.Fatalf("exit = %d, want 1 for duplicate", code)
	}
}

func TestTaskTransitions(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "new", "tr.task"); code != 0 {
		t.Fatal("create failed")
	}

	code, out := runTask(t, "done", "-m", "shipped", "tr.task")
	if code != 0 {
		t.Fatalf("done exit = %d", code)
	}
	if !strings.Contains(out, "complete") {
		t.Fatalf("done output %q", out)
	}

	if code, _ = runTask(t, "reopen", "tr.task"); code != 0 {
		t.Fatalf("reopen exit = %d", code)
	}
	if code, _ = runTask(t, "abandon", "tr.task"); code != 0 {
		t.Fatalf("abandon exit = %d", code)
	}

	// open-only search excludes the now-abandoned task.
	code, out = runTask(t, "search", "-open", "tr.task")
	if code != 0 {
		t.Fatalf("search exit = %d", code)
	}
	if !strings.Contains(out, "no matching tasks") {
		t.Fatalf("search output %q", out)
	}
}

func TestTaskTransition_MissingTask(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "done", "absent.task"); code != 1 {
		t.Fatalf("exit = %d, want 1 for missing task", code)
	}
}

func TestTaskNote_ManualTimestamp(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "new", "note.task"); code != 0 {
		t.Fatal("create failed")
	}

	code, out := runTask(t, "note", "-at", "2026-01-05 08:00:00", "note.task", "remembered", "something")
	if code != 0 {
		t.Fatalf("note exit = %d", code)
	}
	if !strings.Contains(out, "2026-01-05 08:00:00") {
		t.Fatalf("note output %q", out)
	}
}

func TestTaskNote_RejectsBadTimestamp(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "new", "badts.task"); code != 0 {
		t.Fatal("create failed")
	}
	if code, _ := runTask(t, "note", "-at", "tomorrow", "badts.task", "text"); code != 2 {
		t.Fatalf("exit = %d, want 2 for bad timestamp", code)
	}
}

func TestReportCommand(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t, "new", "rep.task"); code != 0 {
		t.Fatal("create failed")
	}

	var buf bytes.Buffer
	code := runReportCommand(context.Background(), &buf, []string{"rep.task"})
	if code != 0 {
		t.Fatalf("report exit = %d", code)
	}
	out := buf.String()
	for _, want := range []string{"<h1>rep.task</h1>", "Status: in progress", "Focused time: 0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestReportCommand_MissingTask(t *testing.T) {
	setHome(t)
	var buf bytes.Buffer
	if code := runReportCommand(context.Background(), &buf, []string{"nope.task"}); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
}

func TestUsageErrors(t *testing.T) {
	setHome(t)
	if code, _ := runTask(t); code != 2 {
		t.Fatalf("bare task exit = %d, want 2", code)
	}
	if code, _ := runTask(t, "frobnicate"); code != 2 {
		t.Fatalf("unknown action exit = %d, want 2", code)
	}
	if code, _ := runTask(t, "new"); code != 2 {
		t.Fatalf("missing name exit = %d, want 2", code)
	}
}
