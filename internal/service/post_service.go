package service

import (
	"context"

	"socialgraph/internal/cascade"
	"socialgraph/internal/models"
	"socialgraph/internal/store"
)

// PostService owns post and like mutations.
type PostService struct {
	e *engine
}

type CreatePostInput struct {
	Content string
	Author  string
}

type UpdatePostInput struct {
	Content *string
}

// CreatePost inserts a post and links it to its author.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Content == "" || in.Author == "" {
		return nil, models.NewValidationError("content and author are required")
	}
	post := &models.Post{ID: models.NewID(), Content: in.Content, Author: in.Author}
	post.EnsureSets()

	m := &mutation{
		name: "createPost",
		kind: store.KindPost,
		id:   post.ID,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			if _, err := mustExist(ctx, g.Backend.Users(), "User", in.Author); err != nil {
				return cascade.Plan{}, err
			}
			return cascade.PlanCreatePost(post.ID, in.Author), nil
		},
		primary: func(ctx context.Context, b store.Backend) error {
			if _, err := b.Posts().InsertOne(ctx, post); err != nil {
				return primaryError("createPost", "Post", post.ID, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost changes the post content when supplied.
func (s *PostService) UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*models.Post, error) {
	var updated *models.Post
	m := &mutation{
		name: "updatePost",
		kind: store.KindPost,
		id:   id,
		plan: noPlan("updatePost"),
		primary: func(ctx context.Context, b store.Backend) error {
			var err error
			if in.Content == nil {
				updated, err = mustExist(ctx, b.Posts(), "Post", id)
				return err
			}
			updated, err = b.Posts().FindOneAndUpdate(ctx, store.ByID(id),
				store.SetFields(map[string]string{models.FieldContent: *in.Content}), store.After)
			if err != nil {
				return primaryError("updatePost", "Post", id, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePost removes the post, its comments and every reference to them.
func (s *PostService) DeletePost(ctx context.Context, id string) (*cascade.Report, error) {
	m := &mutation{
		name:    "deletePost",
		kind:    store.KindPost,
		id:      id,
		removes: true,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			snap, err := g.Post(ctx, id)
			if err != nil {
				return cascade.Plan{}, err
			}
			return cascade.PlanDeletePost(snap), nil
		},
	}
	m.primary = deletePrimary(m, func(b store.Backend) store.Writer { return b.Posts() })
	return s.e.run(ctx, m)
}

// AddLikeToPost records that userID likes postID on both sides. Liking a
// post twice is a conflict.
func (s *PostService) AddLikeToPost(ctx context.Context, postID, userID string) (*models.Post, error) {
	return s.like(ctx, "addLikeToPost", postID, userID, true)
}

// RemoveLikeFromPost drops the like on both sides. Removing a like that
// does not exist succeeds.
func (s *PostService) RemoveLikeFromPost(ctx context.Context, postID, userID string) (*models.Post, error) {
	return s.like(ctx, "removeLikeFromPost", postID, userID, false)
}

func (s *PostService) like(ctx context.Context, name, postID, userID string, add bool) (*models.Post, error) {
	var updated *models.Post
	m := &mutation{
		name: name,
		kind: store.KindPost,
		id:   postID,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			post, err := mustExist(ctx, g.Backend.Posts(), "Post", postID)
			if err != nil {
				return cascade.Plan{}, err
			}
			if _, err := mustExist(ctx, g.Backend.Users(), "User", userID); err != nil {
				return cascade.Plan{}, err
			}
			if !add {
				return cascade.PlanRemoveLike(postID, userID), nil
			}
			if models.Contains(post.Likes, userID) {
				return cascade.Plan{}, models.NewConflictError("user already liked this post")
			}
			return cascade.PlanAddLike(postID, userID), nil
		},
		primary: func(ctx context.Context, b store.Backend) error {
			u := store.Pull(models.FieldLikes, userID)
			if add {
				u = store.Push(models.FieldLikes, userID)
			}
			var err error
			updated, err = b.Posts().FindOneAndUpdate(ctx, store.ByID(postID), u, store.After)
			if err != nil {
				return primaryError(name, "Post", postID, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return updated, nil
}
