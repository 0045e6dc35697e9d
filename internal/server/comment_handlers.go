package server

import (
	"socialgraph/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Text   string `json:"text" validate:"required"`
	Author string `json:"author" validate:"required,objectid"`
	Post   string `json:"post" validate:"required,objectid"`
}

type updateCommentRequest struct {
	Text *string `json:"text" validate:"omitempty,min=1"`
}

// ListComments returns every comment.
func (s *Server) ListComments(c *fiber.Ctx) error {
	comments, err := s.graph.Queries.ListComments(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comments)
}

// GetComment returns one comment, expanded when ?resolve=true.
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if s.wantResolve(c) {
		resolved, err := s.graph.Queries.ResolveComment(c.UserContext(), id)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(resolved)
	}
	comment, err := s.graph.Queries.GetComment(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comment)
}

// CreateComment handles POST /api/comments.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.graph.Comments.CreateComment(c.UserContext(), service.CreateCommentInput{
		Text:   req.Text,
		Author: req.Author,
		Post:   req.Post,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PATCH /api/comments/:id.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateCommentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.graph.Comments.UpdateComment(c.UserContext(), id, service.UpdateCommentInput{Text: req.Text})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment deletes a comment and returns the cascade report.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.graph.Comments.DeleteComment(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(report)
}

// GetCommentAuthor resolves the comment's author. A missing author yields null.
func (s *Server) GetCommentAuthor(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.graph.Queries.GetComment(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	author, err := s.graph.Queries.CommentAuthor(c.UserContext(), comment)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(author)
}

// GetCommentPost resolves the post the comment belongs to.
func (s *Server) GetCommentPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.graph.Queries.GetComment(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	post, err := s.graph.Queries.CommentPost(c.UserContext(), comment)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}
