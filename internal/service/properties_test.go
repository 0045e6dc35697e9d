package service

import (
	"context"
	"testing"

	"socialgraph/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRandomMutationsKeepGraphConsistent drives a seeded random sequence of
// mutations and checks every invariant after each one.
func TestRandomMutationsKeepGraphConsistent(t *testing.T) {
	if testing.Short() {
		t.Skip("long randomized test")
	}
	forEachMode(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		faker := gofakeit.New(7)

		var users, posts, comments []string
		pick := func(ids []string) string {
			// Occasionally aim at an id that does not exist.
			if len(ids) == 0 || faker.Number(0, 9) == 0 {
				return models.NewID()
			}
			return ids[faker.Number(0, len(ids)-1)]
		}
		refresh := func() {
			us, err := env.graph.Queries.ListUsers(ctx)
			require.NoError(t, err)
			ps, err := env.graph.Queries.ListPosts(ctx)
			require.NoError(t, err)
			cs, err := env.graph.Queries.ListComments(ctx)
			require.NoError(t, err)
			users, posts, comments = users[:0], posts[:0], comments[:0]
			for _, u := range us {
				users = append(users, u.ID)
			}
			for _, p := range ps {
				posts = append(posts, p.ID)
			}
			for _, c := range cs {
				comments = append(comments, c.ID)
			}
		}

		for i := 0; i < 120; i++ {
			var err error
			switch faker.Number(0, 9) {
			case 0, 1:
				_, err = env.graph.Users.CreateUser(ctx, CreateUserInput{
					Name: faker.Name(), Password: faker.Word(), Email: faker.Email(),
				})
			case 2:
				_, err = env.graph.Users.UpdateUser(ctx, pick(users), UpdateUserInput{Email: strPtr(faker.Email())})
			case 3:
				_, err = env.graph.Posts.CreatePost(ctx, CreatePostInput{Content: faker.Sentence(5), Author: pick(users)})
			case 4:
				_, err = env.graph.Comments.CreateComment(ctx, CreateCommentInput{
					Text: faker.Sentence(3), Author: pick(users), Post: pick(posts),
				})
			case 5:
				_, err = env.graph.Posts.AddLikeToPost(ctx, pick(posts), pick(users))
			case 6:
				_, err = env.graph.Posts.RemoveLikeFromPost(ctx, pick(posts), pick(users))
			case 7:
				_, err = env.graph.Comments.DeleteComment(ctx, pick(comments))
			case 8:
				_, err = env.graph.Posts.DeletePost(ctx, pick(posts))
			default:
				_, err = env.graph.Users.DeleteUser(ctx, pick(users))
			}
			if err != nil {
				assert.True(t,
					models.HasCode(err, models.CodeNotFound) || models.HasCode(err, models.CodeConflict),
					"step %d: unexpected error %v", i, err)
			}
			refresh()
			assertConsistent(t, env.store)
			if t.Failed() {
				t.Fatalf("invariants broken after step %d", i)
			}
		}
	})
}
