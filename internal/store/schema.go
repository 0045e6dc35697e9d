package store

import (
	"fmt"

	"socialgraph/internal/models"
)

// Schema lists the scalar and reference-set fields of a collection. Backends
// use it to reject unknown field names before building queries.
type Schema struct {
	Kind    Kind
	Scalars []string
	Sets    []string
}

var schemas = map[Kind]Schema{
	KindUser: {
		Kind:    KindUser,
		Scalars: []string{models.FieldName, models.FieldPassword, models.FieldEmail},
		Sets:    []string{models.FieldPosts, models.FieldComments, models.FieldLikedPosts},
	},
	KindPost: {
		Kind:    KindPost,
		Scalars: []string{models.FieldContent, models.FieldAuthor},
		Sets:    []string{models.FieldComments, models.FieldLikes},
	},
	KindComment: {
		Kind:    KindComment,
		Scalars: []string{models.FieldText, models.FieldAuthor, models.FieldPost},
	},
}

// SchemaOf returns the schema of kind k.
func SchemaOf(k Kind) Schema { return schemas[k] }

// IsScalar reports whether field is a scalar field of the collection.
func (s Schema) IsScalar(field string) bool { return contains(s.Scalars, field) }

// IsSet reports whether field is a reference-set field of the collection.
func (s Schema) IsSet(field string) bool { return contains(s.Sets, field) }

// CheckFilter validates the field a filter refers to.
func (s Schema) CheckFilter(f Filter) error {
	switch f.Match {
	case MatchEquals:
		if f.Field != models.FieldID && !s.IsScalar(f.Field) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Kind, f.Field)
		}
	case MatchContains:
		if !s.IsSet(f.Field) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Kind, f.Field)
		}
	}
	return nil
}

// CheckUpdate validates every field an update touches.
func (s Schema) CheckUpdate(u Update) error {
	for field := range u.Set {
		if !s.IsScalar(field) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Kind, field)
		}
	}
	for _, m := range []map[string]string{u.Push, u.Pull} {
		for field := range m {
			if !s.IsSet(field) {
				return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Kind, field)
			}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
