package server

import (
	"context"
	"encoding/json"
	"sort"

	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/service"

	"github.com/gofiber/fiber/v2"
)

// graphRequest is the envelope of POST /api/graph.
type graphRequest struct {
	Operation string          `json:"operation" validate:"required"`
	Args      json.RawMessage `json:"args"`
}

type graphResponse struct {
	Operation string `json:"operation"`
	Data      any    `json:"data"`
}

type getArgs struct {
	ID      string `json:"id" validate:"required,objectid"`
	Resolve bool   `json:"resolve"`
}

type idArgs struct {
	ID string `json:"id" validate:"required,objectid"`
}

type createUserArgs struct {
	Input createUserRequest `json:"input"`
}

type updateUserArgs struct {
	ID    string            `json:"id" validate:"required,objectid"`
	Input updateUserRequest `json:"input"`
}

type createPostArgs struct {
	Input createPostRequest `json:"input"`
}

type updatePostArgs struct {
	ID    string            `json:"id" validate:"required,objectid"`
	Input updatePostRequest `json:"input"`
}

type likeArgs struct {
	PostID string `json:"postId" validate:"required,objectid"`
	UserID string `json:"userId" validate:"required,objectid"`
}

type createCommentArgs struct {
	Input createCommentRequest `json:"input"`
}

type updateCommentArgs struct {
	ID    string               `json:"id" validate:"required,objectid"`
	Input updateCommentRequest `json:"input"`
}

type noArgs struct{}

// operation runs one named graph operation against decoded arguments.
type operation func(ctx context.Context, g *service.Graph, s *Server, raw json.RawMessage) (any, error)

// withArgs decodes and validates the arguments of type A before calling fn.
func withArgs[A any](fn func(ctx context.Context, g *service.Graph, a *A) (any, error)) operation {
	return func(ctx context.Context, g *service.Graph, s *Server, raw json.RawMessage) (any, error) {
		var a A
		if len(raw) == 0 || string(raw) == "null" {
			raw = json.RawMessage("{}")
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, models.NewValidationError("invalid args: " + err.Error())
		}
		if err := s.validate.Struct(&a); err != nil {
			return nil, models.NewValidationError(validationMessage(err))
		}
		return fn(ctx, g, &a)
	}
}

var operations = map[string]operation{
	"users": withArgs(func(ctx context.Context, g *service.Graph, _ *noArgs) (any, error) {
		return g.Queries.ListUsers(ctx)
	}),
	"user": withArgs(func(ctx context.Context, g *service.Graph, a *getArgs) (any, error) {
		if a.Resolve {
			return g.Queries.ResolveUser(ctx, a.ID)
		}
		return g.Queries.GetUser(ctx, a.ID)
	}),
	"posts": withArgs(func(ctx context.Context, g *service.Graph, _ *noArgs) (any, error) {
		return g.Queries.ListPosts(ctx)
	}),
	"post": withArgs(func(ctx context.Context, g *service.Graph, a *getArgs) (any, error) {
		if a.Resolve {
			return g.Queries.ResolvePost(ctx, a.ID)
		}
		return g.Queries.GetPost(ctx, a.ID)
	}),
	"comments": withArgs(func(ctx context.Context, g *service.Graph, _ *noArgs) (any, error) {
		return g.Queries.ListComments(ctx)
	}),
	"comment": withArgs(func(ctx context.Context, g *service.Graph, a *getArgs) (any, error) {
		if a.Resolve {
			return g.Queries.ResolveComment(ctx, a.ID)
		}
		return g.Queries.GetComment(ctx, a.ID)
	}),

	"createUser": withArgs(func(ctx context.Context, g *service.Graph, a *createUserArgs) (any, error) {
		return g.Users.CreateUser(ctx, service.CreateUserInput{
			Name:     a.Input.Name,
			Password: a.Input.Password,
			Email:    a.Input.Email,
		})
	}),
	"updateUser": withArgs(func(ctx context.Context, g *service.Graph, a *updateUserArgs) (any, error) {
		return g.Users.UpdateUser(ctx, a.ID, service.UpdateUserInput{
			Name:     a.Input.Name,
			Password: a.Input.Password,
			Email:    a.Input.Email,
		})
	}),
	"deleteUser": withArgs(func(ctx context.Context, g *service.Graph, a *idArgs) (any, error) {
		return g.Users.DeleteUser(ctx, a.ID)
	}),

	"createPost": withArgs(func(ctx context.Context, g *service.Graph, a *createPostArgs) (any, error) {
		return g.Posts.CreatePost(ctx, service.CreatePostInput{Content: a.Input.Content, Author: a.Input.Author})
	}),
	"updatePost": withArgs(func(ctx context.Context, g *service.Graph, a *updatePostArgs) (any, error) {
		return g.Posts.UpdatePost(ctx, a.ID, service.UpdatePostInput{Content: a.Input.Content})
	}),
	"deletePost": withArgs(func(ctx context.Context, g *service.Graph, a *idArgs) (any, error) {
		return g.Posts.DeletePost(ctx, a.ID)
	}),
	"addLikeToPost": withArgs(func(ctx context.Context, g *service.Graph, a *likeArgs) (any, error) {
		return g.Posts.AddLikeToPost(ctx, a.PostID, a.UserID)
	}),
	"removeLikeFromPost": withArgs(func(ctx context.Context, g *service.Graph, a *likeArgs) (any, error) {
		return g.Posts.RemoveLikeFromPost(ctx, a.PostID, a.UserID)
	}),

	"createComment": withArgs(func(ctx context.Context, g *service.Graph, a *createCommentArgs) (any, error) {
		return g.Comments.CreateComment(ctx, service.CreateCommentInput{
			Text:   a.Input.Text,
			Author: a.Input.Author,
			Post:   a.Input.Post,
		})
	}),
	"updateComment": withArgs(func(ctx context.Context, g *service.Graph, a *updateCommentArgs) (any, error) {
		return g.Comments.UpdateComment(ctx, a.ID, service.UpdateCommentInput{Text: a.Input.Text})
	}),
	"deleteComment": withArgs(func(ctx context.Context, g *service.Graph, a *idArgs) (any, error) {
		return g.Comments.DeleteComment(ctx, a.ID)
	}),
}

// OperationNames lists every operation POST /api/graph accepts.
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteOperation handles POST /api/graph: one named query or mutation
// with its arguments. Delete operations answer with the cascade report.
func (s *Server) ExecuteOperation(c *fiber.Ctx) error {
	var req graphRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	op, ok := operations[req.Operation]
	if !ok {
		return respond(c, models.NewValidationError("unknown operation "+req.Operation))
	}

	ctx := observability.WithOperation(c.UserContext(), req.Operation)
	data, err := op(ctx, s.graph, s, req.Args)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(graphResponse{Operation: req.Operation, Data: data})
}
