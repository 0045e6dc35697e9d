package models

// Document field names. They double as the BSON keys of the Mongo backend
// and as the vocabulary of store filters and updates.
const (
	FieldID         = "_id"
	FieldName       = "name"
	FieldPassword   = "password"
	FieldEmail      = "email"
	FieldPosts      = "posts"
	FieldComments   = "comments"
	FieldLikedPosts = "likedPosts"
	FieldContent    = "content"
	FieldAuthor     = "author"
	FieldLikes      = "likes"
	FieldText       = "text"
	FieldPost       = "post"
)
