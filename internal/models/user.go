package models

// User is a member of the graph. Posts, Comments and LikedPosts are
// reference sets holding ids of documents in other collections.
type User struct {
	ID         string   `json:"id" bson:"_id"`
	Name       string   `json:"name" bson:"name"`
	Password   string   `json:"password" bson:"password"`
	Email      string   `json:"email" bson:"email"`
	Posts      []string `json:"posts" bson:"posts"`
	Comments   []string `json:"comments" bson:"comments"`
	LikedPosts []string `json:"likedPosts" bson:"likedPosts"`
}

// EnsureSets replaces nil reference sets with empty ones so they encode as
// arrays rather than null.
func (u *User) EnsureSets() {
	if u.Posts == nil {
		u.Posts = []string{}
	}
	if u.Comments == nil {
		u.Comments = []string{}
	}
	if u.LikedPosts == nil {
		u.LikedPosts = []string{}
	}
}

// GetID returns the document id.
func (u *User) GetID() string { return u.ID }
