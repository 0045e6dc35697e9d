// Package store defines the document-collection contract the graph services
// are written against. Backends live in sub-packages.
package store

import (
	"context"
	"errors"

	"socialgraph/internal/models"
)

// Kind names one of the three collections.
type Kind string

const (
	KindUser    Kind = "users"
	KindPost    Kind = "posts"
	KindComment Kind = "comments"
)

var (
	// ErrNoDocument is returned by single-document reads that match nothing.
	ErrNoDocument = errors.New("store: no document matched")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrUnknownField is returned when a filter or update names a field the
	// collection does not have.
	ErrUnknownField = errors.New("store: unknown field")
)

// ReturnDocument selects which version FindOneAndUpdate hands back.
type ReturnDocument int

const (
	Before ReturnDocument = iota
	After
)

// Writer is the untyped half of a collection: the operations cascades issue.
type Writer interface {
	DeleteOne(ctx context.Context, f Filter) (int64, error)
	DeleteMany(ctx context.Context, f Filter) (int64, error)
	// UpdateOne applies u to the first document matching f and reports how
	// many documents matched (0 or 1).
	UpdateOne(ctx context.Context, f Filter, u Update) (int64, error)
	UpdateMany(ctx context.Context, f Filter, u Update) (int64, error)
}

// Collection is the per-kind contract. Every single-document write is
// atomic for that document; nothing spans documents unless the backend is
// Transactional and the caller opts in.
type Collection[T any] interface {
	Writer
	// InsertOne stores doc, assigning an id when doc has none, and returns it.
	InsertOne(ctx context.Context, doc *T) (string, error)
	FindOne(ctx context.Context, f Filter) (*T, error)
	Find(ctx context.Context, f Filter) ([]*T, error)
	FindOneAndUpdate(ctx context.Context, f Filter, u Update, rd ReturnDocument) (*T, error)
}

// Backend bundles the three collections. It is constructed explicitly and
// passed to every service; there is no process-wide handle.
type Backend interface {
	Users() Collection[models.User]
	Posts() Collection[models.Post]
	Comments() Collection[models.Comment]
	Ping(ctx context.Context) error
}

// Transactional is implemented by backends that can commit writes to
// several documents atomically. fn receives a Backend bound to the
// transaction and must use it for every read and write.
type Transactional interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error
}

// WriterFor returns the collection of b that holds documents of kind k.
func WriterFor(b Backend, k Kind) (Writer, error) {
	switch k {
	case KindUser:
		return b.Users(), nil
	case KindPost:
		return b.Posts(), nil
	case KindComment:
		return b.Comments(), nil
	default:
		return nil, errors.New("store: unknown collection " + string(k))
	}
}
