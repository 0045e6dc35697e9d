package models

// Comment belongs to one post and one author, both fixed at creation.
type Comment struct {
	ID     string `json:"id" bson:"_id"`
	Text   string `json:"text" bson:"text"`
	Author string `json:"author" bson:"author"`
	Post   string `json:"post" bson:"post"`
}

// EnsureSets is a no-op; comments hold no reference sets.
func (c *Comment) EnsureSets() {}

// GetID returns the document id.
func (c *Comment) GetID() string { return c.ID }
