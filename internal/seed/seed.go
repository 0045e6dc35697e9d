package seed

import (
	"context"
	"fmt"
	"log/slog"

	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/service"
	"socialgraph/internal/store"
)

// Options configures the random seeder.
type Options struct {
	NumUsers        int
	PostsPerUser    int
	CommentsPerPost int
	// LikeChance is the probability (0..1) that a given user likes a given post.
	LikeChance float64
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
}

// DefaultOptions returns a small but connected demo graph.
func DefaultOptions() Options {
	return Options{
		NumUsers:        10,
		PostsPerUser:    3,
		CommentsPerPost: 2,
		LikeChance:      0.3,
	}
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// Seed populates the graph with random users, posts, comments and likes.
func Seed(ctx context.Context, g *service.Graph, opts Options) (*Summary, error) {
	observability.Logger.InfoContext(ctx, "seeding graph",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts_per_user", opts.PostsPerUser),
	)

	f := NewFactory(g, opts.Seed)
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return sum, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
		sum.Users++
	}
	if len(users) == 0 {
		return sum, nil
	}

	var posts []*models.Post
	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			p, err := f.CreatePost(ctx, u)
			if err != nil {
				return sum, fmt.Errorf("failed to create post: %w", err)
			}
			posts = append(posts, p)
			sum.Posts++
		}
	}

	for _, p := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			author := users[f.faker.Number(0, len(users)-1)]
			if _, err := f.CreateComment(ctx, author, p); err != nil {
				return sum, fmt.Errorf("failed to create comment: %w", err)
			}
			sum.Comments++
		}
		for _, u := range users {
			if f.faker.Float64Range(0, 1) >= opts.LikeChance {
				continue
			}
			if err := f.Like(ctx, u, p); err != nil {
				return sum, fmt.Errorf("failed to like post: %w", err)
			}
			sum.Likes++
		}
	}

	observability.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
	)
	return sum, nil
}

// Clear removes every document of every collection. With all three
// collections emptied no reference can dangle, so no cascade is needed.
func Clear(ctx context.Context, b store.Backend) error {
	for _, k := range []store.Kind{store.KindComment, store.KindPost, store.KindUser} {
		w, err := store.WriterFor(b, k)
		if err != nil {
			return err
		}
		if _, err := w.DeleteMany(ctx, store.All()); err != nil {
			return fmt.Errorf("failed to clear %s: %w", k, err)
		}
	}
	return nil
}
