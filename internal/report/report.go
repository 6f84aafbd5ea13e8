// Package report reconstructs a task's full history from the store
// and renders it as an HTML document. Rendering is pure read-side
// work: for a fixed set of rows the output bytes are identical on
// every run.
package report

import (
	"context"
	"fmt"
	"html/template"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/okib/flow/internal/persistence"
	"github.com/okib/flow/internal/timeutil"
)

type Renderer struct {
	store  *persistence.Store
	tracer trace.Tracer
}

func NewRenderer(store *persistence.Store, tracer trace.Tracer) *Renderer {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("flow")
	}
	return &Renderer{store: store, tracer: tracer}
}

type noteView struct {
	ID        int64
	Timestamp string
	UserText  string
	FlowText  string
	WorkID    *int64
}

type breakView struct {
	BeginAt  string
	Duration string
}

type sessionView struct {
	ID      int64
	BeginAt string
	Net     string
	Breaks  []breakView
}

type reportData struct {
	Name       string
	Status     string
	NetWork    string
	BreakTotal string
	Focused    string
	Notes      []noteView
	Sessions   []sessionView
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>flow report: {{.Name}}</title></head>
<body>
<h1>{{.Name}}</h1>
<p class="status">Status: {{.Status}}</p>
<ul class="totals">
<li>Total work: {{.NetWork}}</li>
<li>Total breaks: {{.BreakTotal}}</li>
<li>Focused time: {{.Focused}}</li>
</ul>
<h2>Notes</h2>
<ol class="notes">
{{range .Notes}}<li>[{{.Timestamp}}] {{.UserText}} ({{.FlowText}}) [note {{.ID}}{{if .WorkID}}, session {{.WorkID}}{{end}}]</li>
{{end}}</ol>
<h2>Sessions</h2>
<ul class="sessions">
{{range .Sessions}}<li>session {{.ID}}: began {{.BeginAt}}, net {{.Net}}{{if .Breaks}}
<ul>
{{range .Breaks}}<li>break at {{.BeginAt}} for {{.Duration}}</li>
{{end}}</ul>
{{end}}</li>
{{end}}</ul>
</body>
</html>
`))

// Render writes the task's report to w. Totals come from the stored
// aggregates; tasks with no work or break rows report zero.
func (r *Renderer) Render(ctx context.Context, taskID int64, w io.Writer) error {
	ctx, span := r.tracer.Start(ctx, "report.render",
		trace.WithAttributes(attribute.Int64("flow.task.id", taskID)))
	defer span.End()

	task, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("report task %d: %w", taskID, err)
	}

	netWork, err := r.store.SumWorkSeconds(ctx, taskID)
	if err != nil {
		return err
	}
	breakTotal, err := r.store.SumBreakSeconds(ctx, taskID)
	if err != nil {
		return err
	}
	focused := netWork - breakTotal

	notes, err := r.store.ListNotes(ctx, taskID)
	if err != nil {
		return err
	}
	works, err := r.store.ListWork(ctx, taskID)
	if err != nil {
		return err
	}

	data := reportData{
		Name:       task.Name,
		Status:     task.Status.String(),
		NetWork:    timeutil.FormatSeconds(netWork),
		BreakTotal: timeutil.FormatSeconds(breakTotal),
		Focused:    timeutil.FormatSeconds(focused),
	}
	for _, note := range notes {
		data.Notes = append(data.Notes, noteView{
			ID:        note.ID,
			Timestamp: timeutil.Format(note.CreatedAt),
			UserText:  note.UserText,
			FlowText:  note.FlowText,
			WorkID:    note.WorkID,
		})
	}
	for _, work := range works {
		breaks, err := r.store.ListBreaks(ctx, work.ID)
		if err != nil {
			return err
		}
		view := sessionView{
			ID:      work.ID,
			BeginAt: timeutil.Format(work.BeginAt),
		}
		var sessionBreakSec int64
		for _, brk := range breaks {
			sessionBreakSec += brk.DurationSec
			view.Breaks = append(view.Breaks, breakView{
				BeginAt:  timeutil.Format(brk.BeginAt),
				Duration: timeutil.FormatSeconds(brk.DurationSec),
			})
		}
		view.Net = timeutil.FormatSeconds(work.DurationSec - sessionBreakSec)
		data.Sessions = append(data.Sessions, view)
	}

	if err := reportTmpl.Execute(w, data); err != nil {
		span.RecordError(err)
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
