// Package mongostore implements the document store on MongoDB. Reference
// sets are native arrays maintained with $addToSet and $pull.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type collection[T any] struct {
	coll   *mongo.Collection
	schema store.Schema
}

func newCollection[T any](db *mongo.Database, kind store.Kind) *collection[T] {
	return &collection[T]{coll: db.Collection(string(kind)), schema: store.SchemaOf(kind)}
}

func (c *collection[T]) kind() string { return string(c.schema.Kind) }

// errMatchNothing marks a filter that can select no document.
var errMatchNothing = errors.New("mongostore: empty id list")

func (c *collection[T]) filter(f store.Filter) (bson.M, error) {
	if err := c.schema.CheckFilter(f); err != nil {
		return nil, err
	}
	switch f.Match {
	case store.MatchAll:
		return bson.M{}, nil
	case store.MatchIDs:
		if len(f.IDs) == 0 {
			return nil, errMatchNothing
		}
		if len(f.IDs) == 1 {
			return bson.M{"_id": f.IDs[0]}, nil
		}
		return bson.M{"_id": bson.M{"$in": f.IDs}}, nil
	case store.MatchEquals, store.MatchContains:
		// Equality on an array field matches when any element equals the value.
		return bson.M{f.Field: f.Value}, nil
	default:
		return nil, fmt.Errorf("mongostore: unsupported match %d", f.Match)
	}
}

func (c *collection[T]) update(u store.Update) (bson.M, error) {
	if err := c.schema.CheckUpdate(u); err != nil {
		return nil, err
	}
	doc := bson.M{}
	if len(u.Set) > 0 {
		set := bson.M{}
		for k, v := range u.Set {
			set[k] = v
		}
		doc["$set"] = set
	}
	if len(u.Push) > 0 {
		add := bson.M{}
		for k, v := range u.Push {
			add[k] = v
		}
		doc["$addToSet"] = add
	}
	if len(u.Pull) > 0 {
		pull := bson.M{}
		for k, v := range u.Pull {
			pull[k] = v
		}
		doc["$pull"] = pull
	}
	return doc, nil
}

func ensureSets[T any](doc *T) {
	if e, ok := any(doc).(interface{ EnsureSets() }); ok {
		e.EnsureSets()
	}
}

func (c *collection[T]) InsertOne(ctx context.Context, doc *T) (string, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "insert_one")()
	d, ok := any(doc).(interface {
		GetID() string
	})
	if !ok {
		return "", fmt.Errorf("mongostore: %T has no id", doc)
	}
	if d.GetID() == "" {
		setID(doc, models.NewID())
	}
	ensureSets(doc)
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return "", translate(err)
	}
	return d.GetID(), nil
}

func setID(doc any, id string) {
	switch d := doc.(type) {
	case *models.User:
		d.ID = id
	case *models.Post:
		d.ID = id
	case *models.Comment:
		d.ID = id
	}
}

func (c *collection[T]) FindOne(ctx context.Context, f store.Filter) (*T, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "find_one")()
	q, err := c.filter(f)
	if errors.Is(err, errMatchNothing) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	doc := new(T)
	err = c.coll.FindOne(ctx, q, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	ensureSets(doc)
	return doc, nil
}

func (c *collection[T]) Find(ctx context.Context, f store.Filter) ([]*T, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "find")()
	q, err := c.filter(f)
	if errors.Is(err, errMatchNothing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cursor, err := c.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []*T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		ensureSets(doc)
	}
	return docs, nil
}

func (c *collection[T]) DeleteOne(ctx context.Context, f store.Filter) (int64, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "delete_one")()
	q, err := c.filter(f)
	if errors.Is(err, errMatchNothing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteOne(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *collection[T]) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "delete_many")()
	q, err := c.filter(f)
	if errors.Is(err, errMatchNothing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteMany(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *collection[T]) UpdateOne(ctx context.Context, f store.Filter, u store.Update) (int64, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "update_one")()
	q, upd, err := c.prepare(f, u)
	if errors.Is(err, errMatchNothing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	res, err := c.coll.UpdateOne(ctx, q, upd)
	if err != nil {
		return 0, translate(err)
	}
	return res.MatchedCount, nil
}

func (c *collection[T]) UpdateMany(ctx context.Context, f store.Filter, u store.Update) (int64, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "update_many")()
	q, upd, err := c.prepare(f, u)
	if errors.Is(err, errMatchNothing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	res, err := c.coll.UpdateMany(ctx, q, upd)
	if err != nil {
		return 0, translate(err)
	}
	return res.MatchedCount, nil
}

func (c *collection[T]) FindOneAndUpdate(ctx context.Context, f store.Filter, u store.Update, rd store.ReturnDocument) (*T, error) {
	defer observability.TrackStoreOp("mongo", c.kind(), "find_one_and_update")()
	q, upd, err := c.prepare(f, u)
	if errors.Is(err, errMatchNothing) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	if rd == store.After {
		opts.SetReturnDocument(options.After)
	}
	doc := new(T)
	err = c.coll.FindOneAndUpdate(ctx, q, upd, opts).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, translate(err)
	}
	ensureSets(doc)
	return doc, nil
}

func (c *collection[T]) prepare(f store.Filter, u store.Update) (bson.M, bson.M, error) {
	upd, err := c.update(u)
	if err != nil {
		return nil, nil, err
	}
	q, err := c.filter(f)
	if err != nil {
		return nil, nil, err
	}
	return q, upd, nil
}

func translate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
