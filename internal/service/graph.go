// Package service implements the graph mutations and queries on top of a
// store.Backend. Every mutation runs in three phases: plan the cascade,
// perform the primary write, apply the cascade. With a transactional
// backend and transactions enabled all three share one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"

	"socialgraph/internal/cache"
	"socialgraph/internal/cascade"
	"socialgraph/internal/models"
	"socialgraph/internal/notifications"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// Options tune how mutations execute.
type Options struct {
	// Transactions runs each mutation in one store transaction when the
	// backend supports it.
	Transactions bool
	// Parallel caps concurrent reads while gathering a cascade snapshot
	// outside a transaction.
	Parallel int
}

// Graph bundles the services sharing one backend.
type Graph struct {
	Users    *UserService
	Posts    *PostService
	Comments *CommentService
	Queries  *QueryService
	Replay   *ReplayService
}

// NewGraph wires every service to backend. cache and notifier may be nil.
func NewGraph(backend store.Backend, opts Options, c *cache.Cache, n *notifications.Notifier) *Graph {
	e := &engine{
		backend:  backend,
		opts:     opts,
		cache:    c,
		notifier: n,
		logger:   observability.Logger,
	}
	return &Graph{
		Users:    &UserService{e: e},
		Posts:    &PostService{e: e},
		Comments: &CommentService{e: e},
		Queries:  &QueryService{e: e},
		Replay:   &ReplayService{e: e},
	}
}

// Transactional reports whether mutations commit atomically.
func (g *Graph) Transactional() bool { return g.Users.e.transactional() != nil }

type engine struct {
	backend  store.Backend
	opts     Options
	cache    *cache.Cache
	notifier *notifications.Notifier
	logger   *slog.Logger
}

func (e *engine) transactional() store.Transactional {
	if !e.opts.Transactions {
		return nil
	}
	tx, ok := e.backend.(store.Transactional)
	if !ok {
		return nil
	}
	return tx
}

// mutation describes one graph operation.
type mutation struct {
	name string
	kind store.Kind
	id   string
	// plan reads what the cascade needs and validates preconditions. It
	// runs before the primary write.
	plan func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error)
	// primary performs the requested write. It may change id, e.g. once an
	// insert has assigned one.
	primary func(ctx context.Context, b store.Backend) error
	// removes marks delete operations; their events carry the report.
	removes bool
	// deleted is set by a delete primary that removed a document.
	deleted bool
}

// errCascade marks a cascade step failure inside a transaction.
type errCascade struct{ err error }

func (e errCascade) Error() string { return e.err.Error() }
func (e errCascade) Unwrap() error { return e.err }

func (e *engine) run(ctx context.Context, m *mutation) (*cascade.Report, error) {
	ctx, span := observability.StartMutation(ctx, m.name,
		attribute.String("graph.kind", string(m.kind)),
		attribute.String("graph.id", m.id),
	)

	var plan cascade.Plan
	var report *cascade.Report
	exec := func(ctx context.Context, b store.Backend, inTx bool) error {
		g := cascade.Gatherer{Backend: b, Parallel: e.opts.Parallel}
		if inTx {
			g.Parallel = 1
		}
		p, err := m.plan(ctx, g)
		if err != nil {
			return err
		}
		plan = p
		if err := m.primary(ctx, b); err != nil {
			return err
		}
		report, err = cascade.Executor{StopOnError: inTx, Logger: e.logger}.Apply(ctx, b, p)
		if err != nil {
			return errCascade{err}
		}
		return nil
	}

	var err error
	if tx := e.transactional(); tx != nil {
		err = tx.WithTransaction(ctx, func(ctx context.Context, b store.Backend) error {
			return exec(ctx, b, true)
		})
	} else {
		err = exec(ctx, e.backend, false)
	}

	err = classify(m.name, err)
	observability.EndSpan(span, err)
	if err != nil {
		observability.MutationsTotal.WithLabelValues(m.name, "error").Inc()
		return nil, err
	}

	report.Deleted = m.deleted
	outcome := "ok"
	if !report.OK() {
		outcome = "partial"
		e.logger.WarnContext(ctx, "cascade incomplete",
			slog.String("kind", string(m.kind)),
			slog.String("id", m.id),
			slog.Int("applied", report.Applied),
			slog.Int("failed", len(report.Failed)),
		)
	}
	observability.MutationsTotal.WithLabelValues(m.name, outcome).Inc()

	// The write is committed even if the caller has gone away.
	detached := context.WithoutCancel(ctx)
	e.invalidate(detached, m.kind, m.id, plan)
	e.publish(detached, m, report)
	return report, nil
}

// classify turns raw store errors escaping a mutation into AppErrors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var stepErr errCascade
	if errors.As(err, &stepErr) {
		return models.NewWriteRejectedError(op+" rolled back: cascade step failed", stepErr.err)
	}
	if errors.Is(err, store.ErrDuplicate) {
		return models.NewConflictError(op + ": duplicate key")
	}
	return models.NewInternalError(err)
}

func (e *engine) invalidate(ctx context.Context, kind store.Kind, id string, plan cascade.Plan) {
	keys := []string{cache.DocKey(kind, id)}
	for _, ref := range plan.Documents() {
		keys = append(keys, cache.DocKey(ref.Kind, ref.ID))
	}
	e.cache.Invalidate(ctx, keys...)
}

func (e *engine) publish(ctx context.Context, m *mutation, report *cascade.Report) {
	ev := notifications.GraphEvent{Operation: m.name, Kind: m.kind, ID: m.id}
	if m.removes {
		ev.Report = report
	}
	if err := e.notifier.Publish(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "failed to publish graph event", slog.String("error", err.Error()))
	}
}

// noPlan is the plan function of mutations without a cascade.
func noPlan(name string) func(context.Context, cascade.Gatherer) (cascade.Plan, error) {
	return func(context.Context, cascade.Gatherer) (cascade.Plan, error) {
		return cascade.Plan{Operation: name}, nil
	}
}

// mustExist loads a document or reports it as not found.
func mustExist[T any](ctx context.Context, c store.Collection[T], resource, id string) (*T, error) {
	doc, err := c.FindOne(ctx, store.ByID(id))
	if errors.Is(err, store.ErrNoDocument) {
		return nil, models.NewNotFoundError(resource, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// primaryError maps the error of a primary write.
func primaryError(op, resource, id string, err error) error {
	switch {
	case errors.Is(err, store.ErrNoDocument):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, store.ErrDuplicate):
		return models.NewConflictError("email already in use")
	default:
		return models.NewWriteRejectedError(op+" write rejected", err)
	}
}
