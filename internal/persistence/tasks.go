package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/okib/flow/internal/timeutil"
)

// Status is a task's lifecycle state. The integer values are the
// on-disk status codes and must never be renumbered.
type Status int

const (
	StatusInProgress Status = 0
	StatusComplete   Status = 1
	StatusAbandoned  Status = 2
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusComplete, StatusAbandoned:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in progress"
	case StatusComplete:
		return "complete"
	case StatusAbandoned:
		return "abandoned"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// transitionTag is the flow tag appended to the audit note for a move
// into this status.
func (s Status) transitionTag() string {
	switch s {
	case StatusComplete:
		return TagCompleteTask + "," + TagCloseTask
	case StatusAbandoned:
		return TagAbandonTask + "," + TagCloseTask
	default:
		return TagOpenTask
	}
}

type Task struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	Status    Status
}

// TaskDraft is a task before it has an identity. Only the store's
// insert path turns a draft into a Task, so no Task value with an
// unset ID ever escapes.
type TaskDraft struct {
	Name            string
	CreatedAt       time.Time
	FoundingMessage string
}

// Task names are dotted identifiers: two or more [A-Za-z0-9_-]+
// segments joined by dots, e.g. "flow.examples.eg-1".
var taskNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)+$`)

func ValidTaskName(name string) bool {
	return taskNameRe.MatchString(name)
}

// CreateTask validates the draft, inserts the task row with status
// in-progress, and appends the founding note. The duplicate-name
// check, insert, and note share one transaction: either the task
// exists with its audit trail or nothing happened.
func (s *Store) CreateTask(ctx context.Context, draft TaskDraft) (*Task, error) {
	if !ValidTaskName(draft.Name) {
		return nil, validationf("task name %q: want dotted identifier with at least two segments", draft.Name)
	}
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("create task: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int64
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM task WHERE name = ?;`, draft.Name,
	).Scan(&count); err != nil {
		return nil, persistErr("create task: duplicate check", err)
	}
	if count > 0 {
		return nil, validationf("task name %q already exists", draft.Name)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO task (name, create_dt, status_code)
		VALUES (?, ?, ?);
	`, draft.Name, timeutil.Format(createdAt), int(StatusInProgress))
	if err != nil {
		return nil, persistErr("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("insert task: last id", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO note (timestamp, task_id, opt_work_id, user_text, flow_text)
		VALUES (?, ?, NULL, ?, ?);
	`, timeutil.Format(createdAt), id, draft.FoundingMessage, TagNewTask+","+TagOpenTask); err != nil {
		return nil, persistErr("insert founding note", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("create task: commit", err)
	}
	return &Task{
		ID:        id,
		Name:      draft.Name,
		CreatedAt: createdAt.Truncate(time.Second),
		Status:    StatusInProgress,
	}, nil
}

// GetTask looks a task up by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	return s.scanTask(s.db.QueryRowContext(ctx, `
		SELECT id, name, create_dt, status_code FROM task WHERE id = ?;
	`, id))
}

// GetTaskByName looks a task up by its exact name.
func (s *Store) GetTaskByName(ctx context.Context, name string) (*Task, error) {
	return s.scanTask(s.db.QueryRowContext(ctx, `
		SELECT id, name, create_dt, status_code FROM task WHERE name = ?;
	`, name))
}

func (s *Store) scanTask(row *sql.Row) (*Task, error) {
	var (
		task     Task
		createDt string
		code     int
	)
	if err := row.Scan(&task.ID, &task.Name, &createDt, &code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, persistErr("scan task", err)
	}
	createdAt, err := timeutil.Parse(createDt)
	if err != nil {
		return nil, persistErr("scan task", err)
	}
	task.CreatedAt = createdAt
	task.Status = Status(code)
	return &task, nil
}

// SearchTasks returns tasks whose name contains fragment
// (case-sensitive), ordered by creation time. With openOnly set, only
// in-progress tasks match.
func (s *Store) SearchTasks(ctx context.Context, fragment string, openOnly bool) ([]Task, error) {
	query := `
		SELECT id, name, create_dt, status_code
		FROM task
		WHERE instr(name, ?) > 0`
	args := []any{fragment}
	if openOnly {
		query += ` AND status_code = ?`
		args = append(args, int(StatusInProgress))
	}
	query += `
		ORDER BY create_dt ASC, id ASC;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("search tasks", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			task     Task
			createDt string
			code     int
		)
		if err := rows.Scan(&task.ID, &task.Name, &createDt, &code); err != nil {
			return nil, persistErr("scan task row", err)
		}
		createdAt, err := timeutil.Parse(createDt)
		if err != nil {
			return nil, persistErr("scan task row", err)
		}
		task.CreatedAt = createdAt
		task.Status = Status(code)
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("search task rows", err)
	}
	return out, nil
}

// TransitionTask moves a task to next and appends the matching audit
// note, both in one transaction. Every status is reachable from every
// other one: completed and abandoned tasks may be reopened.
func (s *Store) TransitionTask(ctx context.Context, taskID int64, next Status, message string, at time.Time) error {
	if !next.Valid() {
		return &InvalidTransitionError{Status: next}
	}
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("transition task: begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int64
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM task WHERE id = ?;`, taskID,
	).Scan(&exists); err != nil {
		return persistErr("transition task: lookup", err)
	}
	if exists == 0 {
		return fmt.Errorf("transition task %d: %w", taskID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO note (timestamp, task_id, opt_work_id, user_text, flow_text)
		VALUES (?, ?, NULL, ?, ?);
	`, timeutil.Format(at), taskID, message, next.transitionTag()); err != nil {
		return persistErr("insert transition note", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE task SET status_code = ? WHERE id = ?;
	`, int(next), taskID); err != nil {
		return persistErr("update task status", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("transition task: commit", err)
	}
	return nil
}
