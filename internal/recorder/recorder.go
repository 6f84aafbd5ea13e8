// Package recorder runs one work session at a time: open the work
// row, checkpoint it on a fixed cadence while the user works, bracket
// interruptions as retroactive breaks, and finalize on close-out.
//
// The session's begin time is the sole source of truth for elapsed
// time. Every save recomputes end and duration absolutely from it, so
// checkpoints are idempotent and a crash between saves loses at most
// one checkpoint interval.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/okib/flow/internal/persistence"
	"github.com/okib/flow/internal/timeutil"
)

// DefaultCheckpointInterval is how much wall-clock time may pass
// between durable saves of an open session.
const DefaultCheckpointInterval = 30 * time.Second

// ErrSessionOpen reports an attempt to start a session while another
// one is still open.
var ErrSessionOpen = errors.New("a work session is already open")

// ErrSessionClosed reports a save attempt against a finalized session.
var ErrSessionClosed = errors.New("work session already closed")

// Tracker hands out sessions and enforces the single-open-session
// invariant inside the process.
type Tracker struct {
	store           *persistence.Store
	logger          *slog.Logger
	tracer          trace.Tracer
	checkpointEvery time.Duration

	active *Session
}

type Options struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	// CheckpointEvery overrides DefaultCheckpointInterval when > 0.
	CheckpointEvery time.Duration
}

func NewTracker(store *persistence.Store, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("flow")
	}
	every := opts.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointInterval
	}
	return &Tracker{
		store:           store,
		logger:          logger,
		tracer:          tracer,
		checkpointEvery: every,
	}
}

// Start opens a session on the task: a work row with begin = end =
// startAt and zero duration. Fails fast with ErrSessionOpen while a
// previous session has not been closed.
func (t *Tracker) Start(ctx context.Context, task *persistence.Task, startAt time.Time) (*Session, error) {
	if t.active != nil && !t.active.Closed() {
		return nil, ErrSessionOpen
	}
	if startAt.IsZero() {
		startAt = time.Now()
	}

	ctx, span := t.tracer.Start(ctx, "session.start",
		trace.WithAttributes(attribute.Int64("flow.task.id", task.ID)))
	defer span.End()

	work, err := t.store.InsertWork(ctx, persistence.WorkDraft{
		TaskID:  task.ID,
		StartAt: startAt,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	traceID := uuid.NewString()
	logger := t.logger.With("trace_id", traceID, "task", task.Name, "work_id", work.ID)
	logger.Info("work session started", "begin_at", timeutil.Format(work.BeginAt))

	session := &Session{
		store:            t.store,
		logger:           logger,
		tracer:           t.tracer,
		task:             *task,
		work:             work,
		checkpointEvery:  t.checkpointEvery,
		lastCheckpointAt: work.BeginAt,
	}
	t.active = session
	return session, nil
}

// Active returns the open session, or nil.
func (t *Tracker) Active() *Session {
	if t.active != nil && t.active.Closed() {
		t.active = nil
	}
	return t.active
}

// Session is one open work period. Once closed, every further save is
// rejected outright.
type Session struct {
	store            *persistence.Store
	logger           *slog.Logger
	tracer           trace.Tracer
	task             persistence.Task
	work             *persistence.Work
	checkpointEvery  time.Duration
	lastCheckpointAt time.Time
	breakSec         int64
	closed           bool
}

func (s *Session) Task() persistence.Task { return s.task }

func (s *Session) Work() persistence.Work { return *s.work }

func (s *Session) Closed() bool { return s.closed }

func (s *Session) BreakSeconds() int64 { return s.breakSec }

// ElapsedSeconds is gross wall-clock time since the session began.
func (s *Session) ElapsedSeconds(now time.Time) int64 {
	return timeutil.RoundSeconds(now.Sub(s.work.BeginAt))
}

// FocusedSeconds is elapsed time minus the breaks recorded so far.
// Display-layer arithmetic: nothing stores this value.
func (s *Session) FocusedSeconds(now time.Time) int64 {
	return s.ElapsedSeconds(now) - s.breakSec
}

// Checkpoint durably saves the session's current extent. End and
// duration are recomputed from the original begin, never incremented.
func (s *Session) Checkpoint(ctx context.Context, now time.Time) error {
	return s.save(ctx, now, "session.checkpoint")
}

// TickCheckpoint checkpoints only once the configured interval has
// passed since the last save. Meant to be called from the 1s display
// tick; returns whether a save happened.
func (s *Session) TickCheckpoint(ctx context.Context, now time.Time) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	if now.Sub(s.lastCheckpointAt) < s.checkpointEvery {
		return false, nil
	}
	if err := s.Checkpoint(ctx, now); err != nil {
		return false, err
	}
	return true, nil
}

// RecordBreak stores an already-elapsed interruption. The interval
// must lie inside the session; the work row is untouched.
func (s *Session) RecordBreak(ctx context.Context, beginAt, endAt time.Time) (*persistence.Break, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if beginAt.Before(s.work.BeginAt) {
		return nil, &persistence.ValidationError{
			Msg: "break begins before the session",
		}
	}
	brk, err := s.store.InsertBreak(ctx, s.task.ID, s.work.ID, beginAt, endAt)
	if err != nil {
		return nil, err
	}
	s.breakSec += brk.DurationSec
	s.logger.Info("break recorded",
		"begin_at", timeutil.Format(brk.BeginAt),
		"duration_sec", brk.DurationSec)
	return brk, nil
}

// AddNote appends a work-note bound to this session.
func (s *Session) AddNote(ctx context.Context, at time.Time, text string) (*persistence.Note, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.store.AppendNote(ctx, persistence.NoteDraft{
		TaskID:   s.task.ID,
		WorkID:   &s.work.ID,
		At:       at,
		UserText: text,
		FlowText: persistence.TagWorkNote,
	})
}

// Close finalizes the session: one last absolute save, then an
// end-work note carrying the user's close-out message. The session
// flips to closed and rejects any further save.
func (s *Session) Close(ctx context.Context, endAt time.Time, message string) error {
	if err := s.save(ctx, endAt, "session.close"); err != nil {
		return err
	}
	if message != "" {
		if _, err := s.store.AppendNote(ctx, persistence.NoteDraft{
			TaskID:   s.task.ID,
			WorkID:   &s.work.ID,
			At:       endAt,
			UserText: message,
			FlowText: persistence.TagEndWork,
		}); err != nil {
			return err
		}
	}
	s.closed = true
	s.logger.Info("work session closed",
		"end_at", timeutil.Format(s.work.EndAt),
		"duration_sec", s.work.DurationSec,
		"break_sec", s.breakSec)
	return nil
}

func (s *Session) save(ctx context.Context, now time.Time, spanName string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if now.Before(s.work.BeginAt) {
		now = s.work.BeginAt
	}

	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.Int64("flow.task.id", s.task.ID),
			attribute.Int64("flow.work.id", s.work.ID),
		))
	defer span.End()

	duration := timeutil.RoundSeconds(now.Sub(s.work.BeginAt))
	if err := s.store.SaveWork(ctx, s.work.ID, now, duration); err != nil {
		span.RecordError(err)
		return err
	}
	s.work.EndAt = now.Truncate(time.Second)
	s.work.DurationSec = duration
	s.lastCheckpointAt = now
	return nil
}
