package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/okib/flow/internal/timeutil"
)

// Flow tags: the machine-readable vocabulary stamped on every note.
// Together with the note timestamps they form the task's audit trail.
const (
	TagNewTask      = "new-task"
	TagOpenTask     = "open-task"
	TagCompleteTask = "complete-task"
	TagAbandonTask  = "abandon-task"
	TagCloseTask    = "close-task"
	TagWorkNote     = "work-note"
	TagEndWork      = "end-work"
)

// Note is an immutable timestamped log entry on a task, optionally
// tied to one work session. Notes are only ever appended.
type Note struct {
	ID        int64
	CreatedAt time.Time
	TaskID    int64
	WorkID    *int64
	UserText  string
	FlowText  string
}

// NoteDraft is a note before insertion. A zero At means "now"; manual
// (including backdated) timestamps are allowed, and no ordering is
// enforced on them.
type NoteDraft struct {
	TaskID   int64
	WorkID   *int64
	At       time.Time
	UserText string
	FlowText string
}

// AppendNote inserts one note row. Pure insert: no uniqueness, no
// mutation path, no delete path.
func (s *Store) AppendNote(ctx context.Context, draft NoteDraft) (*Note, error) {
	at := draft.At
	if at.IsZero() {
		at = time.Now()
	}

	var workID sql.NullInt64
	if draft.WorkID != nil {
		workID = sql.NullInt64{Int64: *draft.WorkID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO note (timestamp, task_id, opt_work_id, user_text, flow_text)
		VALUES (?, ?, ?, ?, ?);
	`, timeutil.Format(at), draft.TaskID, workID, draft.UserText, draft.FlowText)
	if err != nil {
		return nil, persistErr("insert note", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("insert note: last id", err)
	}
	return &Note{
		ID:        id,
		CreatedAt: at.Truncate(time.Second),
		TaskID:    draft.TaskID,
		WorkID:    draft.WorkID,
		UserText:  draft.UserText,
		FlowText:  draft.FlowText,
	}, nil
}

// ListNotes returns every note on a task ascending by timestamp. Each
// call runs a fresh query.
func (s *Store) ListNotes(ctx context.Context, taskID int64) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, task_id, opt_work_id, user_text, flow_text
		FROM note
		WHERE task_id = ?
		ORDER BY timestamp ASC, id ASC;
	`, taskID)
	if err != nil {
		return nil, persistErr("list notes", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var (
			note      Note
			timestamp string
			workID    sql.NullInt64
		)
		if err := rows.Scan(&note.ID, &timestamp, &note.TaskID, &workID, &note.UserText, &note.FlowText); err != nil {
			return nil, persistErr("scan note row", err)
		}
		if note.CreatedAt, err = timeutil.Parse(timestamp); err != nil {
			return nil, persistErr("scan note row", err)
		}
		if workID.Valid {
			id := workID.Int64
			note.WorkID = &id
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list note rows", err)
	}
	return out, nil
}
