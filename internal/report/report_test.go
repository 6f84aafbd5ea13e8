package report_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okib/flow/internal/persistence"
	"github.com/okib/flow/internal/report"
)

var t0 = time.Date(2026, 2, 3, 14, 0, 0, 0, time.Local)

func openStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "flow.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func render(t *testing.T, store *persistence.Store, taskID int64) string {
	t.Helper()
	var buf bytes.Buffer
	if err := report.NewRenderer(store, nil).Render(context.Background(), taskID, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func seedScenario(t *testing.T, store *persistence.Store) *persistence.Task {
	t.Helper()
	ctx := context.Background()

	task, err := store.CreateTask(ctx, persistence.TaskDraft{
		Name:            "x.y",
		CreatedAt:       t0.Add(-time.Hour),
		FoundingMessage: "first",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	work, err := store.InsertWork(ctx, persistence.WorkDraft{TaskID: task.ID, StartAt: t0})
	if err != nil {
		t.Fatalf("insert work: %v", err)
	}
	if _, err := store.InsertBreak(ctx, task.ID, work.ID, t0.Add(10*time.Second), t0.Add(15*time.Second)); err != nil {
		t.Fatalf("insert break: %v", err)
	}
	if err := store.SaveWork(ctx, work.ID, t0.Add(60*time.Second), 60); err != nil {
		t.Fatalf("save work: %v", err)
	}
	if _, err := store.AppendNote(ctx, persistence.NoteDraft{
		TaskID:   task.ID,
		WorkID:   &work.ID,
		At:       t0.Add(60 * time.Second),
		UserText: "wrapped up",
		FlowText: persistence.TagEndWork,
	}); err != nil {
		t.Fatalf("append note: %v", err)
	}
	return task
}

func TestRender_TotalsAndStructure(t *testing.T) {
	store := openStore(t)
	task := seedScenario(t, store)
	out := render(t, store, task.ID)

	for _, want := range []string{
		"<h1>x.y</h1>",
		"Status: in progress",
		"Total work: 1m 0s",
		"Total breaks: 5s",
		"Focused time: 55s",
		"(new-task,open-task)",
		"(end-work)",
		"wrapped up",
		"net 55s",
		"break at " + "2026-02-03 14:00:10" + " for 5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// Notes precede the session listing.
	if strings.Index(out, "<h2>Notes</h2>") > strings.Index(out, "<h2>Sessions</h2>") {
		t.Error("notes section should come before sessions")
	}
}

func TestRender_EmptyTaskReportsZeros(t *testing.T) {
	store := openStore(t)
	task, err := store.CreateTask(context.Background(), persistence.TaskDraft{
		Name:            "empty.task",
		CreatedAt:       t0,
		FoundingMessage: "nothing yet",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	out := render(t, store, task.ID)
	for _, want := range []string{
		"Total work: 0s",
		"Total breaks: 0s",
		"Focused time: 0s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("empty task report missing %q", want)
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	store := openStore(t)
	task := seedScenario(t, store)

	first := render(t, store, task.ID)
	second := render(t, store, task.ID)
	if first != second {
		t.Fatal("re-rendering without writes changed the output")
	}
}

func TestRender_NoteOrderFollowsTimestamps(t *testing.T) {
	store := openStore(t)
	task := seedScenario(t, store)
	ctx := context.Background()

	// Backdated note must surface first in the timeline.
	if _, err := store.AppendNote(ctx, persistence.NoteDraft{
		TaskID:   task.ID,
		At:       t0.Add(-2 * time.Hour),
		UserText: "before everything",
		FlowText: persistence.TagWorkNote,
	}); err != nil {
		t.Fatalf("append note: %v", err)
	}

	out := render(t, store, task.ID)
	if strings.Index(out, "before everything") > strings.Index(out, "wrapped up") {
		t.Error("backdated note should render before later notes")
	}
}

func TestRender_EscapesUserText(t *testing.T) {
	store := openStore(t)
	task, err := store.CreateTask(context.Background(), persistence.TaskDraft{
		Name:            "esc.task",
		CreatedAt:       t0,
		FoundingMessage: "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	out := render(t, store, task.ID)
	if strings.Contains(out, "<script>") {
		t.Fatal("user text rendered unescaped")
	}
}

func TestRender_MissingTask(t *testing.T) {
	store := openStore(t)
	var buf bytes.Buffer
	err := report.NewRenderer(store, nil).Render(context.Background(), 404, &buf)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
