package sqlstore

import (
	"context"

	"socialgraph/internal/models"
	"socialgraph/internal/store"

	"gorm.io/gorm"
)

// Store is a store.Backend over a gorm connection. It is also
// store.Transactional: WithTransaction runs fn against a Store bound to one
// database transaction.
type Store struct {
	db       *gorm.DB
	users    *collection[models.User, userRow]
	posts    *collection[models.Post, postRow]
	comments *collection[models.Comment, commentRow]
}

// New returns a Store issuing queries through db.
func New(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		users:    newCollection(db, store.KindUser, userMapper),
		posts:    newCollection(db, store.KindPost, postMapper),
		comments: newCollection(db, store.KindComment, commentMapper),
	}
}

// Migrate creates or updates the tables the store needs.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func (s *Store) Users() store.Collection[models.User]       { return s.users }
func (s *Store) Posts() store.Collection[models.Post]       { return s.posts }
func (s *Store) Comments() store.Collection[models.Comment] { return s.comments }

// Ping checks the underlying database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithTransaction implements store.Transactional.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Backend) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, New(tx))
	})
}
