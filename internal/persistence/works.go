package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/okib/flow/internal/timeutil"
)

// Work is one bounded period of effort on a task. While the session is
// open, end/duration advance through checkpoint saves; after the final
// save the row is never touched again.
type Work struct {
	ID          int64
	TaskID      int64
	BeginAt     time.Time
	EndAt       time.Time
	DurationSec int64
}

// WorkDraft is a session before the store has assigned it an identity.
type WorkDraft struct {
	TaskID  int64
	StartAt time.Time
}

// InsertWork opens a session: begin and end both equal the start time
// and the duration is zero until the first checkpoint.
func (s *Store) InsertWork(ctx context.Context, draft WorkDraft) (*Work, error) {
	startAt := draft.StartAt
	if startAt.IsZero() {
		startAt = time.Now()
	}
	startText := timeutil.Format(startAt)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO work (task_id, beg_dt, end_dt, duration_sec)
		VALUES (?, ?, ?, 0);
	`, draft.TaskID, startText, startText)
	if err != nil {
		return nil, persistErr("insert work", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("insert work: last id", err)
	}
	return &Work{
		ID:      id,
		TaskID:  draft.TaskID,
		BeginAt: startAt.Truncate(time.Second),
		EndAt:   startAt.Truncate(time.Second),
	}, nil
}

// SaveWork persists a checkpoint or final save: the new end time and
// the duration recomputed from the original begin. One statement, so a
// failed save leaves the previous checkpoint intact.
func (s *Store) SaveWork(ctx context.Context, workID int64, endAt time.Time, durationSec int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work SET end_dt = ?, duration_sec = ? WHERE id = ?;
	`, timeutil.Format(endAt), durationSec, workID)
	if err != nil {
		return persistErr("save work", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("save work", err)
	}
	if affected == 0 {
		return fmt.Errorf("save work %d: %w", workID, ErrNotFound)
	}
	return nil
}

// GetWork looks a session up by id.
func (s *Store) GetWork(ctx context.Context, workID int64) (*Work, error) {
	var (
		work  Work
		begDt string
		endDt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, beg_dt, end_dt, duration_sec FROM work WHERE id = ?;
	`, workID).Scan(&work.ID, &work.TaskID, &begDt, &endDt, &work.DurationSec)
	if err != nil {
		return nil, scanMiss("get work", err)
	}
	if work.BeginAt, err = timeutil.Parse(begDt); err != nil {
		return nil, persistErr("get work", err)
	}
	if work.EndAt, err = timeutil.Parse(endDt); err != nil {
		return nil, persistErr("get work", err)
	}
	return &work, nil
}

// ListWork returns all sessions for a task ordered by begin time.
func (s *Store) ListWork(ctx context.Context, taskID int64) ([]Work, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, beg_dt, end_dt, duration_sec
		FROM work
		WHERE task_id = ?
		ORDER BY beg_dt ASC, id ASC;
	`, taskID)
	if err != nil {
		return nil, persistErr("list work", err)
	}
	defer rows.Close()

	var out []Work
	for rows.Next() {
		var (
			work  Work
			begDt string
			endDt string
		)
		if err := rows.Scan(&work.ID, &work.TaskID, &begDt, &endDt, &work.DurationSec); err != nil {
			return nil, persistErr("scan work row", err)
		}
		if work.BeginAt, err = timeutil.Parse(begDt); err != nil {
			return nil, persistErr("scan work row", err)
		}
		if work.EndAt, err = timeutil.Parse(endDt); err != nil {
			return nil, persistErr("scan work row", err)
		}
		out = append(out, work)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list work rows", err)
	}
	return out, nil
}

// SumWorkSeconds totals the cached durations of every session under a
// task. No sessions means zero, never NULL.
func (s *Store) SumWorkSeconds(ctx context.Context, taskID int64) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_sec), 0) FROM work WHERE task_id = ?;
	`, taskID).Scan(&total); err != nil {
		return 0, persistErr("sum work seconds", err)
	}
	return total, nil
}
