package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/okib/flow/internal/persistence"
)

func TestAppendNote_ManualTimestampAllowed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	task := mustCreateTask(t, store, "n.manual")

	// Backdated before the founding note: append-only means no
	// monotonicity is enforced, and listing re-orders by timestamp.
	backdated := task.CreatedAt.Add(-time.Hour)
	note, err := store.AppendNote(ctx, persistence.NoteDraft{
		TaskID:   task.ID,
		At:       backdated,
		UserText: "remembered from yesterday",
		FlowText: persistence.TagWorkNote,
	})
	if err != nil {
		t.Fatalf("append note: %v", err)
	}
	if !note.CreatedAt.Equal(backdated) {
		t.Fatalf("note timestamp = %v, want %v", note.CreatedAt, backdated)
	}

	notes := mustListNotes(t, store, task.ID)
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].ID != note.ID {
		t.Fatalf("backdated note should list first, got id %d", notes[0].ID)
	}
}

func TestAppendNote_SessionBinding(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	task := mustCreateTask(t, store, "n.bind")
	work := mustInsertWork(t, store, task.ID)

	note, err := store.AppendNote(ctx, persistence.NoteDraft{
		TaskID:   task.ID,
		WorkID:   &work.ID,
		At:       sessionStart.Add(time.Minute),
		UserText: "mid-session thought",
		FlowText: persistence.TagWorkNote,
	})
	if err != nil {
		t.Fatalf("append note: %v", err)
	}
	if note.WorkID == nil || *note.WorkID != work.ID {
		t.Fatalf("note not bound to session: %+v", note)
	}

	notes := mustListNotes(t, store, task.ID)
	last := notes[len(notes)-1]
	if last.WorkID == nil || *last.WorkID != work.ID {
		t.Fatalf("listed note lost its session binding: %+v", last)
	}
}

func TestAppendNote_ZeroTimestampMeansNow(t *testing.T) {
	store := openTestStore(t)
	task := mustCreateTask(t, store, "n.now")

	before := time.Now().Add(-time.Second)
	note, err := store.AppendNote(context.Background(), persistence.NoteDraft{
		TaskID:   task.ID,
		UserText: "quick note",
		FlowText: persistence.TagWorkNote,
	})
	if err != nil {
		t.Fatalf("append note: %v", err)
	}
	after := time.Now().Add(time.Second)
	if note.CreatedAt.Before(before) || note.CreatedAt.After(after) {
		t.Fatalf("note timestamp %v outside [%v, %v]", note.CreatedAt, before, after)
	}
}
