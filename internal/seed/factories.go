// Package seed creates demo data for development and testing. Everything it
// writes goes through the graph services, so seeded data satisfies the same
// reference invariants as API traffic.
package seed

import (
	"context"
	"fmt"

	"socialgraph/internal/models"
	"socialgraph/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds fake entities and persists them through the services.
type Factory struct {
	g     *service.Graph
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(g *service.Graph, seed int64) *Factory {
	return &Factory{g: g, faker: gofakeit.New(seed)}
}

// CreateUser creates a user with generated fields. Overrides may change
// the input before it is submitted.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*service.CreateUserInput)) (*models.User, error) {
	in := service.CreateUserInput{
		Name:     f.faker.Name(),
		Email:    fmt.Sprintf("%s.%d@%s", f.faker.Username(), f.faker.Number(1000, 9999), f.faker.DomainName()),
		Password: f.faker.Password(true, true, true, false, false, 12),
	}
	for _, override := range overrides {
		override(&in)
	}
	return f.g.Users.CreateUser(ctx, in)
}

// CreatePost creates a post by author with generated content.
func (f *Factory) CreatePost(ctx context.Context, author *models.User) (*models.Post, error) {
	return f.g.Posts.CreatePost(ctx, service.CreatePostInput{
		Content: f.faker.Paragraph(1, 3, 12, " "),
		Author:  author.ID,
	})
}

// CreateComment creates a comment by author on post with generated text.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post) (*models.Comment, error) {
	return f.g.Comments.CreateComment(ctx, service.CreateCommentInput{
		Text:   f.faker.Sentence(f.faker.Number(4, 14)),
		Author: author.ID,
		Post:   post.ID,
	})
}

// Like records user liking post.
func (f *Factory) Like(ctx context.Context, user *models.User, post *models.Post) error {
	_, err := f.g.Posts.AddLikeToPost(ctx, post.ID, user.ID)
	return err
}
