package server

import (
	"socialgraph/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content string `json:"content" validate:"required"`
	Author  string `json:"author" validate:"required,objectid"`
}

type updatePostRequest struct {
	Content *string `json:"content" validate:"omitempty,min=1"`
}

// ListPosts returns every post.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.graph.Queries.ListPosts(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

// GetPost returns one post, expanded when ?resolve=true.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if s.wantResolve(c) {
		resolved, err := s.graph.Queries.ResolvePost(c.UserContext(), id)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(resolved)
	}
	post, err := s.graph.Queries.GetPost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.graph.Posts.CreatePost(c.UserContext(), service.CreatePostInput{
		Content: req.Content,
		Author:  req.Author,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.graph.Posts.UpdatePost(c.UserContext(), id, service.UpdatePostInput{Content: req.Content})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost deletes a post with its cascade and returns the report.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.graph.Posts.DeletePost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(report)
}

// LikePost handles POST /api/posts/:id/likes/:userId.
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, userID, ok := s.likeParams(c)
	if !ok {
		return nil
	}
	post, err := s.graph.Posts.AddLikeToPost(c.UserContext(), postID, userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// UnlikePost handles DELETE /api/posts/:id/likes/:userId.
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, userID, ok := s.likeParams(c)
	if !ok {
		return nil
	}
	post, err := s.graph.Posts.RemoveLikeFromPost(c.UserContext(), postID, userID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

func (s *Server) likeParams(c *fiber.Ctx) (string, string, bool) {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return "", "", false
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return "", "", false
	}
	return postID, userID, true
}

// GetPostAuthor resolves the post's author. A missing author yields null.
func (s *Server) GetPostAuthor(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.graph.Queries.GetPost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	author, err := s.graph.Queries.PostAuthor(c.UserContext(), post)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(author)
}

// GetPostComments resolves the post's comments.
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.graph.Queries.GetPost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	comments, err := s.graph.Queries.PostComments(c.UserContext(), post)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comments)
}

// GetPostLikes resolves the users who liked the post.
func (s *Server) GetPostLikes(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.graph.Queries.GetPost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	users, err := s.graph.Queries.PostLikes(c.UserContext(), post)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}
