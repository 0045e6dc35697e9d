package models

// Post is authored by exactly one user. Author never changes after creation.
type Post struct {
	ID       string   `json:"id" bson:"_id"`
	Content  string   `json:"content" bson:"content"`
	Author   string   `json:"author" bson:"author"`
	Comments []string `json:"comments" bson:"comments"`
	Likes    []string `json:"likes" bson:"likes"`
}

// EnsureSets replaces nil reference sets with empty ones.
func (p *Post) EnsureSets() {
	if p.Comments == nil {
		p.Comments = []string{}
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
}

// GetID returns the document id.
func (p *Post) GetID() string { return p.ID }
