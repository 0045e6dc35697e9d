package server

import (
	"socialgraph/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Password *string `json:"password" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// ListUsers returns every user.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.graph.Queries.ListUsers(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(users)
}

// GetUser returns one user, with its reference sets expanded when
// ?resolve=true.
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if s.wantResolve(c) {
		resolved, err := s.graph.Queries.ResolveUser(c.UserContext(), id)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(resolved)
	}
	user, err := s.graph.Queries.GetUser(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// CreateUser handles POST /api/users.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.graph.Users.CreateUser(c.UserContext(), service.CreateUserInput{
		Name:     req.Name,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser handles PATCH /api/users/:id. Omitted fields are unchanged.
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateUserRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.graph.Users.UpdateUser(c.UserContext(), id, service.UpdateUserInput{
		Name:     req.Name,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// DeleteUser deletes a user with its full cascade and returns the report.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.graph.Users.DeleteUser(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(report)
}

// GetUserPosts resolves the user's authored posts.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.graph.Queries.GetUser(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	posts, err := s.graph.Queries.UserPosts(c.UserContext(), user)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

// GetUserComments resolves the user's authored comments.
func (s *Server) GetUserComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.graph.Queries.GetUser(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	comments, err := s.graph.Queries.UserComments(c.UserContext(), user)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comments)
}

// GetUserLikedPosts resolves the posts the user liked.
func (s *Server) GetUserLikedPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.graph.Queries.GetUser(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	posts, err := s.graph.Queries.UserLikedPosts(c.UserContext(), user)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}
