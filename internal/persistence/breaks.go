package persistence

import (
	"context"
	"time"

	"github.com/okib/flow/internal/timeutil"
)

// Break is a recorded interruption inside a work session. Breaks are
// written retroactively, once both ends of the interval are known, so
// there is no open-break state to manage.
type Break struct {
	ID          int64
	TaskID      int64
	WorkID      int64
	BeginAt     time.Time
	EndAt       time.Time
	DurationSec int64
}

// InsertBreak records an already-elapsed break interval under a
// session. The work row itself is not touched; break time is
// subtracted at display and report time.
func (s *Store) InsertBreak(ctx context.Context, taskID, workID int64, beginAt, endAt time.Time) (*Break, error) {
	if endAt.Before(beginAt) {
		return nil, validationf("break interval ends before it begins (%s > %s)",
			timeutil.Format(beginAt), timeutil.Format(endAt))
	}
	duration := timeutil.RoundSeconds(endAt.Sub(beginAt))

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO break (task_id, work_id, beg_dt, end_dt, duration_sec)
		VALUES (?, ?, ?, ?, ?);
	`, taskID, workID, timeutil.Format(beginAt), timeutil.Format(endAt), duration)
	if err != nil {
		return nil, persistErr("insert break", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("insert break: last id", err)
	}
	return &Break{
		ID:          id,
		TaskID:      taskID,
		WorkID:      workID,
		BeginAt:     beginAt.Truncate(time.Second),
		EndAt:       endAt.Truncate(time.Second),
		DurationSec: duration,
	}, nil
}

// ListBreaks returns the breaks recorded within one session, ordered
// by begin time.
func (s *Store) ListBreaks(ctx context.Context, workID int64) ([]Break, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, work_id, beg_dt, end_dt, duration_sec
		FROM break
		WHERE work_id = ?
		ORDER BY beg_dt ASC, id ASC;
	`, workID)
	if err != nil {
		return nil, persistErr("list breaks", err)
	}
	defer rows.Close()

	var out []Break
	for rows.Next() {
		var (
			brk   Break
			begDt string
			endDt string
		)
		if err := rows.Scan(&brk.ID, &brk.TaskID, &brk.WorkID, &begDt, &endDt, &brk.DurationSec); err != nil {
			return nil, persistErr("scan break row", err)
		}
		if brk.BeginAt, err = timeutil.Parse(begDt); err != nil {
			return nil, persistErr("scan break row", err)
		}
		if brk.EndAt, err = timeutil.Parse(endDt); err != nil {
			return nil, persistErr("scan break row", err)
		}
		out = append(out, brk)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list break rows", err)
	}
	return out, nil
}

// SumBreakSeconds totals break time across every session of a task.
// No breaks means zero, never NULL.
func (s *Store) SumBreakSeconds(ctx context.Context, taskID int64) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_sec), 0) FROM break WHERE task_id = ?;
	`, taskID).Scan(&total); err != nil {
		return 0, persistErr("sum break seconds", err)
	}
	return total, nil
}
