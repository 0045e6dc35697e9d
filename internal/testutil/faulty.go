package testutil

import (
	"context"
	"errors"
	"sync"

	"socialgraph/internal/models"
	"socialgraph/internal/store"
)

// ErrInjected is returned by writes a FaultyBackend is told to fail.
var ErrInjected = errors.New("injected store failure")

// Fault selects writes to fail. Empty fields match anything.
type Fault struct {
	Kind   store.Kind
	Op     string // "insert", "delete", "update"
	Target string
}

func (f Fault) matches(kind store.Kind, op string, ids []string) bool {
	if f.Kind != "" && f.Kind != kind {
		return false
	}
	if f.Op != "" && f.Op != op {
		return false
	}
	if f.Target == "" {
		return true
	}
	for _, id := range ids {
		if id == f.Target {
			return true
		}
	}
	return false
}

// FaultyBackend wraps a backend and fails writes matching registered
// faults. Reads always pass through.
type FaultyBackend struct {
	inner  store.Backend
	mu     sync.Mutex
	faults []Fault
	hooks  []writeHook
}

type writeHook struct {
	match Fault
	fn    func()
}

// NewFaultyBackend wraps inner.
func NewFaultyBackend(inner store.Backend) *FaultyBackend {
	return &FaultyBackend{inner: inner}
}

// Fail registers a fault.
func (b *FaultyBackend) Fail(f Fault) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = append(b.faults, f)
}

// After registers fn to run once a write matching f has succeeded.
func (b *FaultyBackend) After(f Fault, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, writeHook{match: f, fn: fn})
}

// Reset clears every fault and hook.
func (b *FaultyBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = nil
	b.hooks = nil
}

func (b *FaultyBackend) fire(kind store.Kind, op string, ids []string) {
	b.mu.Lock()
	var fns []func()
	for _, h := range b.hooks {
		if h.match.matches(kind, op, ids) {
			fns = append(fns, h.fn)
		}
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *FaultyBackend) check(kind store.Kind, op string, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.faults {
		if f.matches(kind, op, ids) {
			return ErrInjected
		}
	}
	return nil
}

func (b *FaultyBackend) Users() store.Collection[models.User] {
	return &faultyCollection[models.User]{Collection: b.inner.Users(), kind: store.KindUser, owner: b}
}

func (b *FaultyBackend) Posts() store.Collection[models.Post] {
	return &faultyCollection[models.Post]{Collection: b.inner.Posts(), kind: store.KindPost, owner: b}
}

func (b *FaultyBackend) Comments() store.Collection[models.Comment] {
	return &faultyCollection[models.Comment]{Collection: b.inner.Comments(), kind: store.KindComment, owner: b}
}

func (b *FaultyBackend) Ping(ctx context.Context) error { return b.inner.Ping(ctx) }

// WithTransaction passes through to the wrapped backend, keeping faults
// active inside the transaction.
func (b *FaultyBackend) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Backend) error) error {
	txb, ok := b.inner.(store.Transactional)
	if !ok {
		return errors.New("wrapped backend is not transactional")
	}
	return txb.WithTransaction(ctx, func(ctx context.Context, tx store.Backend) error {
		faults, hooks := b.snapshot()
		return fn(ctx, &FaultyBackend{inner: tx, faults: faults, hooks: hooks})
	})
}

func (b *FaultyBackend) snapshot() ([]Fault, []writeHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Fault(nil), b.faults...), append([]writeHook(nil), b.hooks...)
}

type faultyCollection[T any] struct {
	store.Collection[T]
	kind  store.Kind
	owner *FaultyBackend
}

func (c *faultyCollection[T]) InsertOne(ctx context.Context, doc *T) (string, error) {
	var ids []string
	if d, ok := any(doc).(interface{ GetID() string }); ok {
		ids = []string{d.GetID()}
	}
	if err := c.owner.check(c.kind, "insert", ids); err != nil {
		return "", err
	}
	id, err := c.Collection.InsertOne(ctx, doc)
	if err == nil {
		c.owner.fire(c.kind, "insert", []string{id})
	}
	return id, err
}

func (c *faultyCollection[T]) DeleteOne(ctx context.Context, f store.Filter) (int64, error) {
	if err := c.owner.check(c.kind, "delete", f.IDs); err != nil {
		return 0, err
	}
	n, err := c.Collection.DeleteOne(ctx, f)
	if err == nil {
		c.owner.fire(c.kind, "delete", f.IDs)
	}
	return n, err
}

func (c *faultyCollection[T]) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	if err := c.owner.check(c.kind, "delete", f.IDs); err != nil {
		return 0, err
	}
	return c.Collection.DeleteMany(ctx, f)
}

func (c *faultyCollection[T]) UpdateOne(ctx context.Context, f store.Filter, u store.Update) (int64, error) {
	if err := c.owner.check(c.kind, "update", f.IDs); err != nil {
		return 0, err
	}
	n, err := c.Collection.UpdateOne(ctx, f, u)
	if err == nil {
		c.owner.fire(c.kind, "update", f.IDs)
	}
	return n, err
}

func (c *faultyCollection[T]) UpdateMany(ctx context.Context, f store.Filter, u store.Update) (int64, error) {
	if err := c.owner.check(c.kind, "update", f.IDs); err != nil {
		return 0, err
	}
	return c.Collection.UpdateMany(ctx, f, u)
}

func (c *faultyCollection[T]) FindOneAndUpdate(ctx context.Context, f store.Filter, u store.Update, rd store.ReturnDocument) (*T, error) {
	if err := c.owner.check(c.kind, "update", f.IDs); err != nil {
		return nil, err
	}
	return c.Collection.FindOneAndUpdate(ctx, f, u, rd)
}
