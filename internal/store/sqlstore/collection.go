package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mapper converts between a document type T and its row type R.
type mapper[T any, R any] struct {
	toRow    func(*T) *R
	fromRow  func(*R) *T
	sets     func(*T) map[string]*[]string
	docID    func(*T) string
	setDocID func(*T, string)
	rowID    func(*R) string
}

type collection[T any, R any] struct {
	db     *gorm.DB
	schema store.Schema
	m      *mapper[T, R]
}

func newCollection[T any, R any](db *gorm.DB, kind store.Kind, m *mapper[T, R]) *collection[T, R] {
	return &collection[T, R]{db: db, schema: store.SchemaOf(kind), m: m}
}

func (c *collection[T, R]) kind() string { return string(c.schema.Kind) }

// bound returns a copy of c that issues every query through tx.
func (c *collection[T, R]) bound(tx *gorm.DB) *collection[T, R] {
	return &collection[T, R]{db: tx, schema: c.schema, m: c.m}
}

func column(field string) string {
	if field == models.FieldID {
		return "id"
	}
	return field
}

// matchingIDs returns the ids selected by f in id order, at most limit when
// limit is positive.
func (c *collection[T, R]) matchingIDs(ctx context.Context, f store.Filter, limit int) ([]string, error) {
	if err := c.schema.CheckFilter(f); err != nil {
		return nil, err
	}
	q := c.db.WithContext(ctx).Model(new(R))
	switch f.Match {
	case store.MatchAll:
	case store.MatchIDs:
		if len(f.IDs) == 0 {
			return nil, nil
		}
		q = q.Where("id IN ?", f.IDs)
	case store.MatchEquals:
		q = q.Where(column(f.Field)+" = ?", f.Value)
	case store.MatchContains:
		owners := c.db.WithContext(ctx).Model(&refRow{}).
			Select("owner_id").
			Where("kind = ? AND field = ? AND target_id = ?", c.kind(), f.Field, f.Value)
		q = q.Where("id IN (?)", owners)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported match %d", f.Match)
	}
	q = q.Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// load reads the documents with the given ids, reference sets included.
func (c *collection[T, R]) load(ctx context.Context, ids []string) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []R
	if err := c.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	var refs []refRow
	if err := c.db.WithContext(ctx).
		Where("kind = ? AND owner_id IN ?", c.kind(), ids).
		Order("created_at, target_id").
		Find(&refs).Error; err != nil {
		return nil, err
	}
	grouped := make(map[string]map[string][]string, len(rows))
	for _, r := range refs {
		if grouped[r.OwnerID] == nil {
			grouped[r.OwnerID] = make(map[string][]string)
		}
		grouped[r.OwnerID][r.Field] = append(grouped[r.OwnerID][r.Field], r.TargetID)
	}

	docs := make([]*T, 0, len(rows))
	for i := range rows {
		doc := c.m.fromRow(&rows[i])
		owned := grouped[c.m.rowID(&rows[i])]
		for field, dst := range c.m.sets(doc) {
			if members := owned[field]; members != nil {
				*dst = members
			} else {
				*dst = []string{}
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *collection[T, R]) InsertOne(ctx context.Context, doc *T) (string, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "insert_one")()
	if c.m.docID(doc) == "" {
		c.m.setDocID(doc, models.NewID())
	}
	if e, ok := any(doc).(interface{ EnsureSets() }); ok {
		e.EnsureSets()
	}
	id := c.m.docID(doc)

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c.m.toRow(doc)).Error; err != nil {
			return translate(err)
		}
		var refs []refRow
		for field, members := range c.m.sets(doc) {
			for _, target := range *members {
				refs = append(refs, refRow{Kind: c.kind(), OwnerID: id, Field: field, TargetID: target})
			}
		}
		if len(refs) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&refs).Error
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *collection[T, R]) FindOne(ctx context.Context, f store.Filter) (*T, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "find_one")()
	ids, err := c.matchingIDs(ctx, f, 1)
	if err != nil {
		return nil, err
	}
	docs, err := c.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.ErrNoDocument
	}
	return docs[0], nil
}

func (c *collection[T, R]) Find(ctx context.Context, f store.Filter) ([]*T, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "find")()
	ids, err := c.matchingIDs(ctx, f, 0)
	if err != nil {
		return nil, err
	}
	return c.load(ctx, ids)
}

func (c *collection[T, R]) DeleteOne(ctx context.Context, f store.Filter) (int64, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "delete_one")()
	return c.delete(ctx, f, 1)
}

func (c *collection[T, R]) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "delete_many")()
	return c.delete(ctx, f, 0)
}

func (c *collection[T, R]) delete(ctx context.Context, f store.Filter, limit int) (int64, error) {
	var deleted int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := c.bound(tx).matchingIDs(ctx, f, limit)
		if err != nil || len(ids) == 0 {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(new(R))
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		// A document's own reference sets go with it.
		return tx.Where("kind = ? AND owner_id IN ?", c.kind(), ids).Delete(&refRow{}).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (c *collection[T, R]) UpdateOne(ctx context.Context, f store.Filter, u store.Update) (int64, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "update_one")()
	return c.update(ctx, f, u, 1)
}

func (c *collection[T, R]) UpdateMany(ctx context.Context, f store.Filter, u store.Update) (int64, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "update_many")()
	return c.update(ctx, f, u, 0)
}

func (c *collection[T, R]) update(ctx context.Context, f store.Filter, u store.Update, limit int) (int64, error) {
	if err := c.schema.CheckUpdate(u); err != nil {
		return 0, err
	}
	var matched int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := c.bound(tx).matchingIDs(ctx, f, limit)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := c.apply(ctx, tx, id, u); err != nil {
				return err
			}
		}
		matched = int64(len(ids))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

func (c *collection[T, R]) FindOneAndUpdate(ctx context.Context, f store.Filter, u store.Update, rd store.ReturnDocument) (*T, error) {
	defer observability.TrackStoreOp("sql", c.kind(), "find_one_and_update")()
	if err := c.schema.CheckUpdate(u); err != nil {
		return nil, err
	}
	var result *T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := c.bound(tx)
		ids, err := txc.matchingIDs(ctx, f, 1)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return store.ErrNoDocument
		}
		if rd == store.Before {
			docs, err := txc.load(ctx, ids)
			if err != nil {
				return err
			}
			result = docs[0]
		}
		if err := c.apply(ctx, tx, ids[0], u); err != nil {
			return err
		}
		if rd == store.After {
			docs, err := txc.load(ctx, ids)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return store.ErrNoDocument
			}
			result = docs[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// apply writes u to the document id inside tx.
func (c *collection[T, R]) apply(ctx context.Context, tx *gorm.DB, id string, u store.Update) error {
	tx = tx.WithContext(ctx)
	if len(u.Set) > 0 {
		cols := make(map[string]any, len(u.Set))
		for field, value := range u.Set {
			cols[column(field)] = value
		}
		if err := tx.Model(new(R)).Where("id = ?", id).Updates(cols).Error; err != nil {
			return translate(err)
		}
	}
	for field, target := range u.Push {
		ref := refRow{Kind: c.kind(), OwnerID: id, Field: field, TargetID: target}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error; err != nil {
			return err
		}
	}
	for field, target := range u.Pull {
		if err := tx.
			Where("kind = ? AND owner_id = ? AND field = ? AND target_id = ?", c.kind(), id, field, target).
			Delete(&refRow{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// translate maps driver unique-violation errors onto store.ErrDuplicate.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
