package cascade

import (
	"socialgraph/internal/models"
	"socialgraph/internal/store"
)

// CommentSnapshot is a comment and every place its id is referenced from.
type CommentSnapshot struct {
	ID      string
	Comment *models.Comment
	// Authors are users whose comments set holds ID, the recorded author
	// included.
	Authors []string
	// Posts are posts whose comments set holds ID, the recorded post
	// included.
	Posts []string
}

// PostSnapshot is a post, the users referencing it and its comments.
type PostSnapshot struct {
	ID   string
	Post *models.Post
	// Holders are users whose posts set holds ID, the author included.
	Holders []string
	// Likers are users whose likedPosts set holds ID, plus the post's own likes.
	Likers   []string
	Comments []CommentSnapshot
}

// UserSnapshot is a user with everything it authored or liked.
type UserSnapshot struct {
	ID         string
	User       *models.User
	Posts      []PostSnapshot
	LikedPosts []string
	Comments   []CommentSnapshot
}

// PlanDeleteComment strips the comment id from its author and post.
func PlanDeleteComment(s CommentSnapshot) Plan {
	b := newBuilder("deleteComment")
	b.root(store.KindComment, s.ID)
	commentRefs(b, s)
	return b.build()
}

// PlanDeletePost removes the post id from users and deletes the post's
// comments along with their references.
func PlanDeletePost(s PostSnapshot) Plan {
	b := newBuilder("deletePost")
	b.root(store.KindPost, s.ID)
	postCascade(b, s)
	return b.build()
}

// PlanDeleteUser deletes the user's posts with their full cascade, strips
// the user's likes, and deletes the user's comments.
func PlanDeleteUser(s UserSnapshot) Plan {
	b := newBuilder("deleteUser")
	b.root(store.KindUser, s.ID)
	for _, p := range s.Posts {
		b.remove(store.KindPost, p.ID)
		postCascade(b, p)
	}
	for _, postID := range s.LikedPosts {
		b.pull(store.KindPost, postID, models.FieldLikes, s.ID)
	}
	for _, c := range s.Comments {
		b.remove(store.KindComment, c.ID)
	}
	for _, c := range s.Comments {
		commentRefs(b, c)
	}
	return b.build()
}

// PlanCreatePost links a new post to its author.
func PlanCreatePost(postID, authorID string) Plan {
	b := newBuilder("createPost")
	b.push(store.KindUser, authorID, models.FieldPosts, postID)
	return b.build()
}

// PlanCreateComment links a new comment to its author and post.
func PlanCreateComment(commentID, authorID, postID string) Plan {
	b := newBuilder("createComment")
	b.push(store.KindUser, authorID, models.FieldComments, commentID)
	b.push(store.KindPost, postID, models.FieldComments, commentID)
	return b.build()
}

// PlanAddLike mirrors a like onto the user's likedPosts.
func PlanAddLike(postID, userID string) Plan {
	b := newBuilder("addLikeToPost")
	b.push(store.KindUser, userID, models.FieldLikedPosts, postID)
	return b.build()
}

// PlanRemoveLike drops the post from the user's likedPosts.
func PlanRemoveLike(postID, userID string) Plan {
	b := newBuilder("removeLikeFromPost")
	b.pull(store.KindUser, userID, models.FieldLikedPosts, postID)
	return b.build()
}

func postCascade(b *builder, s PostSnapshot) {
	for _, uid := range s.Holders {
		b.pull(store.KindUser, uid, models.FieldPosts, s.ID)
	}
	for _, uid := range s.Likers {
		b.pull(store.KindUser, uid, models.FieldLikedPosts, s.ID)
	}
	for _, c := range s.Comments {
		b.remove(store.KindComment, c.ID)
	}
	for _, c := range s.Comments {
		commentRefs(b, c)
	}
}

func commentRefs(b *builder, s CommentSnapshot) {
	for _, uid := range s.Authors {
		b.pull(store.KindUser, uid, models.FieldComments, s.ID)
	}
	for _, pid := range s.Posts {
		b.pull(store.KindPost, pid, models.FieldComments, s.ID)
	}
}
