package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"socialgraph/internal/observability"
	"socialgraph/internal/store"
)

// StepFailure records a step that did not apply.
type StepFailure struct {
	Step  Step   `json:"step"`
	Error string `json:"error"`
}

// Report is the outcome of applying a plan.
type Report struct {
	Operation string `json:"operation"`
	// Deleted reports whether the primary delete removed a document. It is
	// false when the target was already gone and only the sweep ran.
	Deleted bool          `json:"deleted"`
	Planned int           `json:"planned"`
	Applied int           `json:"applied"`
	Failed  []StepFailure `json:"failed,omitempty"`
}

// OK reports whether every planned step applied.
func (r *Report) OK() bool { return len(r.Failed) == 0 && r.Applied == r.Planned }

// Executor applies plans one awaited step at a time, in plan order.
type Executor struct {
	// StopOnError aborts at the first failed step and returns it as an
	// error. Transactional callers set it so the transaction rolls back.
	StopOnError bool
	Logger      *slog.Logger
}

// Apply runs every step of p against b. Without StopOnError a failed step is
// logged, counted and recorded in the report, and execution continues; once
// ctx is done the remaining steps are recorded as failed and Apply returns
// the report without an error.
func (e Executor) Apply(ctx context.Context, b store.Backend, p Plan) (*Report, error) {
	logger := e.Logger
	if logger == nil {
		logger = observability.Logger
	}
	report := &Report{Operation: p.Operation, Planned: len(p.Steps)}
	observability.CascadePlanSize.WithLabelValues(p.Operation).Observe(float64(len(p.Steps)))

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			if e.StopOnError {
				return report, err
			}
			// The primary write already committed; what is left becomes
			// replayable report entries.
			for _, rest := range p.Steps[i:] {
				observability.CompensationStepsTotal.WithLabelValues(string(rest.Collection), string(rest.Op), "failed").Inc()
				report.Failed = append(report.Failed, StepFailure{Step: rest, Error: err.Error()})
			}
			logger.WarnContext(context.WithoutCancel(ctx), "cascade interrupted",
				slog.String("operation", p.Operation),
				slog.Int("remaining", len(p.Steps)-i),
				slog.String("error", err.Error()),
			)
			break
		}
		err := applyStep(ctx, b, step)
		if err == nil {
			report.Applied++
			observability.CompensationStepsTotal.WithLabelValues(string(step.Collection), string(step.Op), "applied").Inc()
			continue
		}
		observability.CompensationStepsTotal.WithLabelValues(string(step.Collection), string(step.Op), "failed").Inc()
		report.Failed = append(report.Failed, StepFailure{Step: step, Error: err.Error()})
		if e.StopOnError {
			return report, fmt.Errorf("cascade step %q: %w", step.String(), err)
		}
		logger.WarnContext(ctx, "cascade step failed",
			slog.String("step", step.String()),
			slog.String("collection", string(step.Collection)),
			slog.String("target", step.Target),
			slog.String("error", err.Error()),
		)
	}
	return report, nil
}

func applyStep(ctx context.Context, b store.Backend, s Step) error {
	w, err := store.WriterFor(b, s.Collection)
	if err != nil {
		return err
	}
	switch s.Op {
	case OpDelete:
		_, err = w.DeleteOne(ctx, store.ByID(s.Target))
	case OpPull:
		_, err = w.UpdateOne(ctx, store.ByID(s.Target), store.Pull(s.Field, s.Value))
	case OpPush:
		_, err = w.UpdateOne(ctx, store.ByID(s.Target), store.Push(s.Field, s.Value))
	default:
		err = fmt.Errorf("unknown cascade op %q", s.Op)
	}
	return err
}
