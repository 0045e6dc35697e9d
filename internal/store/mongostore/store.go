package mongostore

import (
	"context"
	"fmt"

	"socialgraph/internal/models"
	"socialgraph/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Store is a store.Backend over one MongoDB database.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	users    *collection[models.User]
	posts    *collection[models.Post]
	comments *collection[models.Comment]
}

// Connect dials uri and returns a Store for database name.
func Connect(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return New(client, name), nil
}

// New returns a Store using database name on client.
func New(client *mongo.Client, name string) *Store {
	db := client.Database(name)
	return &Store{
		client:   client,
		db:       db,
		users:    newCollection[models.User](db, store.KindUser),
		posts:    newCollection[models.Post](db, store.KindPost),
		comments: newCollection[models.Comment](db, store.KindComment),
	}
}

// EnsureIndexes creates the unique email index and the lookup indexes
// cascades rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: models.FieldEmail, Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}
	lookups := map[*mongo.Collection][]string{
		s.users.coll:    {models.FieldLikedPosts},
		s.posts.coll:    {models.FieldAuthor, models.FieldLikes},
		s.comments.coll: {models.FieldAuthor, models.FieldPost},
	}
	for coll, fields := range lookups {
		for _, field := range fields {
			if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys: bson.D{{Key: field, Value: 1}},
			}); err != nil {
				return fmt.Errorf("%s.%s index: %w", coll.Name(), field, err)
			}
		}
	}
	return nil
}

// Drop removes every collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// Disconnect closes the client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Users() store.Collection[models.User]       { return s.users }
func (s *Store) Posts() store.Collection[models.Post]       { return s.posts }
func (s *Store) Comments() store.Collection[models.Comment] { return s.comments }

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// WithTransaction implements store.Transactional. It needs a replica set or
// sharded cluster; standalone servers reject transactions.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Backend) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		// The session travels in ctx, so the same collection handles join it.
		return nil, fn(ctx, s)
	})
	return err
}
