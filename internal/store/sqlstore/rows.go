// Package sqlstore implements the document-collection contract on a
// relational database through gorm. Scalar fields live in one table per
// collection; every reference set lives in the shared reference_sets table,
// one row per (owner, field, target).
package sqlstore

import (
	"time"

	"socialgraph/internal/models"
)

type userRow struct {
	ID       string `gorm:"primaryKey;size:24"`
	Name     string `gorm:"not null"`
	Password string `gorm:"not null"`
	Email    string `gorm:"not null;uniqueIndex"`
}

func (userRow) TableName() string { return "users" }

type postRow struct {
	ID      string `gorm:"primaryKey;size:24"`
	Content string `gorm:"type:text;not null"`
	Author  string `gorm:"size:24;not null;index"`
}

func (postRow) TableName() string { return "posts" }

type commentRow struct {
	ID     string `gorm:"primaryKey;size:24"`
	Text   string `gorm:"type:text;not null"`
	Author string `gorm:"size:24;not null;index"`
	Post   string `gorm:"size:24;not null;index"`
}

func (commentRow) TableName() string { return "comments" }

// refRow is one member of one reference set. The composite key makes a push
// of an existing member a no-op.
type refRow struct {
	Kind      string `gorm:"primaryKey;size:16;index:idx_ref_target,priority:1"`
	OwnerID   string `gorm:"primaryKey;size:24"`
	Field     string `gorm:"primaryKey;size:32;index:idx_ref_target,priority:2"`
	TargetID  string `gorm:"primaryKey;size:24;index:idx_ref_target,priority:3"`
	CreatedAt time.Time
}

func (refRow) TableName() string { return "reference_sets" }

// Models returns the gorm models backing the store, for AutoMigrate.
func Models() []any {
	return []any{&userRow{}, &postRow{}, &commentRow{}, &refRow{}}
}

var userMapper = &mapper[models.User, userRow]{
	toRow: func(u *models.User) *userRow {
		return &userRow{ID: u.ID, Name: u.Name, Password: u.Password, Email: u.Email}
	},
	fromRow: func(r *userRow) *models.User {
		return &models.User{ID: r.ID, Name: r.Name, Password: r.Password, Email: r.Email}
	},
	sets: func(u *models.User) map[string]*[]string {
		return map[string]*[]string{
			models.FieldPosts:      &u.Posts,
			models.FieldComments:   &u.Comments,
			models.FieldLikedPosts: &u.LikedPosts,
		}
	},
	docID:    func(u *models.User) string { return u.ID },
	setDocID: func(u *models.User, id string) { u.ID = id },
	rowID:    func(r *userRow) string { return r.ID },
}

var postMapper = &mapper[models.Post, postRow]{
	toRow: func(p *models.Post) *postRow {
		return &postRow{ID: p.ID, Content: p.Content, Author: p.Author}
	},
	fromRow: func(r *postRow) *models.Post {
		return &models.Post{ID: r.ID, Content: r.Content, Author: r.Author}
	},
	sets: func(p *models.Post) map[string]*[]string {
		return map[string]*[]string{
			models.FieldComments: &p.Comments,
			models.FieldLikes:    &p.Likes,
		}
	},
	docID:    func(p *models.Post) string { return p.ID },
	setDocID: func(p *models.Post, id string) { p.ID = id },
	rowID:    func(r *postRow) string { return r.ID },
}

var commentMapper = &mapper[models.Comment, commentRow]{
	toRow: func(c *models.Comment) *commentRow {
		return &commentRow{ID: c.ID, Text: c.Text, Author: c.Author, Post: c.Post}
	},
	fromRow: func(r *commentRow) *models.Comment {
		return &models.Comment{ID: r.ID, Text: r.Text, Author: r.Author, Post: r.Post}
	},
	sets:     func(*models.Comment) map[string]*[]string { return nil },
	docID:    func(c *models.Comment) string { return c.ID },
	setDocID: func(c *models.Comment, id string) { c.ID = id },
	rowID:    func(r *commentRow) string { return r.ID },
}
