package service

import (
	"context"

	"socialgraph/internal/cascade"
	"socialgraph/internal/models"
	"socialgraph/internal/store"
)

// CommentService owns comment mutations.
type CommentService struct {
	e *engine
}

type CreateCommentInput struct {
	Text   string
	Author string
	Post   string
}

type UpdateCommentInput struct {
	Text *string
}

// CreateComment inserts a comment and links it to its author and post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.Text == "" || in.Author == "" || in.Post == "" {
		return nil, models.NewValidationError("text, author and post are required")
	}
	comment := &models.Comment{ID: models.NewID(), Text: in.Text, Author: in.Author, Post: in.Post}

	m := &mutation{
		name: "createComment",
		kind: store.KindComment,
		id:   comment.ID,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			if _, err := mustExist(ctx, g.Backend.Users(), "User", in.Author); err != nil {
				return cascade.Plan{}, err
			}
			if _, err := mustExist(ctx, g.Backend.Posts(), "Post", in.Post); err != nil {
				return cascade.Plan{}, err
			}
			return cascade.PlanCreateComment(comment.ID, in.Author, in.Post), nil
		},
		primary: func(ctx context.Context, b store.Backend) error {
			if _, err := b.Comments().InsertOne(ctx, comment); err != nil {
				return primaryError("createComment", "Comment", comment.ID, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment changes the comment text when supplied.
func (s *CommentService) UpdateComment(ctx context.Context, id string, in UpdateCommentInput) (*models.Comment, error) {
	var updated *models.Comment
	m := &mutation{
		name: "updateComment",
		kind: store.KindComment,
		id:   id,
		plan: noPlan("updateComment"),
		primary: func(ctx context.Context, b store.Backend) error {
			var err error
			if in.Text == nil {
				updated, err = mustExist(ctx, b.Comments(), "Comment", id)
				return err
			}
			updated, err = b.Comments().FindOneAndUpdate(ctx, store.ByID(id),
				store.SetFields(map[string]string{models.FieldText: *in.Text}), store.After)
			if err != nil {
				return primaryError("updateComment", "Comment", id, err)
			}
			return nil
		},
	}
	if _, err := s.e.run(ctx, m); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteComment removes the comment and strips its id from its author and
// post.
func (s *CommentService) DeleteComment(ctx context.Context, id string) (*cascade.Report, error) {
	m := &mutation{
		name:    "deleteComment",
		kind:    store.KindComment,
		id:      id,
		removes: true,
		plan: func(ctx context.Context, g cascade.Gatherer) (cascade.Plan, error) {
			snap, err := g.Comment(ctx, id)
			if err != nil {
				return cascade.Plan{}, err
			}
			return cascade.PlanDeleteComment(snap), nil
		},
	}
	m.primary = deletePrimary(m, func(b store.Backend) store.Writer { return b.Comments() })
	return s.e.run(ctx, m)
}
