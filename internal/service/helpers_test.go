package service

import (
	"context"
	"testing"

	"socialgraph/internal/models"
	"socialgraph/internal/store"
	"socialgraph/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	graph  *Graph
	store  store.Backend
	faults *testutil.FaultyBackend
}

// forEachMode runs fn once with best-effort cascades and once with
// transactional cascades, each against a fresh database.
func forEachMode(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Helper()
	for _, tc := range []struct {
		name string
		tx   bool
	}{
		{"best-effort", false},
		{"transactional", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fn(t, newTestEnv(t, tc.tx))
		})
	}
}

func newTestEnv(t *testing.T, tx bool) *testEnv {
	t.Helper()
	s := testutil.NewStore(t)
	fb := testutil.NewFaultyBackend(s)
	return &testEnv{
		graph:  NewGraph(fb, Options{Transactions: tx, Parallel: 4}, nil, nil),
		store:  s,
		faults: fb,
	}
}

func (env *testEnv) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := env.graph.Users.CreateUser(context.Background(), CreateUserInput{Name: name, Password: "pw", Email: email})
	require.NoError(t, err)
	return u
}

func (env *testEnv) post(t *testing.T, author, content string) *models.Post {
	t.Helper()
	p, err := env.graph.Posts.CreatePost(context.Background(), CreatePostInput{Content: content, Author: author})
	require.NoError(t, err)
	return p
}

func (env *testEnv) comment(t *testing.T, author, post, text string) *models.Comment {
	t.Helper()
	c, err := env.graph.Comments.CreateComment(context.Background(), CreateCommentInput{Text: text, Author: author, Post: post})
	require.NoError(t, err)
	return c
}

func (env *testEnv) reloadUser(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := env.store.Users().FindOne(context.Background(), store.ByID(id))
	require.NoError(t, err)
	return u
}

func (env *testEnv) reloadPost(t *testing.T, id string) *models.Post {
	t.Helper()
	p, err := env.store.Posts().FindOne(context.Background(), store.ByID(id))
	require.NoError(t, err)
	return p
}

func (env *testEnv) assertGone(t *testing.T, kind store.Kind, id string) {
	t.Helper()
	ctx := context.Background()
	var err error
	switch kind {
	case store.KindUser:
		_, err = env.store.Users().FindOne(ctx, store.ByID(id))
	case store.KindPost:
		_, err = env.store.Posts().FindOne(ctx, store.ByID(id))
	default:
		_, err = env.store.Comments().FindOne(ctx, store.ByID(id))
	}
	assert.ErrorIs(t, err, store.ErrNoDocument, "%s/%s still exists", kind, id)
}

// assertConsistent checks every referential invariant over the whole store.
func assertConsistent(t *testing.T, b store.Backend) {
	t.Helper()
	ctx := context.Background()
	users, err := b.Users().Find(ctx, store.All())
	require.NoError(t, err)
	posts, err := b.Posts().Find(ctx, store.All())
	require.NoError(t, err)
	comments, err := b.Comments().Find(ctx, store.All())
	require.NoError(t, err)

	userByID := map[string]*models.User{}
	emails := map[string]bool{}
	for _, u := range users {
		userByID[u.ID] = u
		assert.False(t, emails[u.Email], "duplicate email %s", u.Email)
		emails[u.Email] = true
	}
	postByID := map[string]*models.Post{}
	for _, p := range posts {
		postByID[p.ID] = p
	}
	commentByID := map[string]*models.Comment{}
	for _, c := range comments {
		commentByID[c.ID] = c
	}

	for _, p := range posts {
		author, ok := userByID[p.Author]
		if assert.True(t, ok, "post %s has missing author", p.ID) {
			assert.Contains(t, author.Posts, p.ID, "author does not list post %s", p.ID)
		}
		for _, uid := range p.Likes {
			u, ok := userByID[uid]
			if assert.True(t, ok, "post %s liked by missing user %s", p.ID, uid) {
				assert.Contains(t, u.LikedPosts, p.ID)
			}
		}
		for _, cid := range p.Comments {
			c, ok := commentByID[cid]
			if assert.True(t, ok, "post %s lists missing comment %s", p.ID, cid) {
				assert.Equal(t, p.ID, c.Post)
			}
		}
	}
	for _, c := range comments {
		author, ok := userByID[c.Author]
		if assert.True(t, ok, "comment %s has missing author", c.ID) {
			assert.Contains(t, author.Comments, c.ID)
		}
		post, ok := postByID[c.Post]
		if assert.True(t, ok, "comment %s has missing post", c.ID) {
			assert.Contains(t, post.Comments, c.ID)
		}
	}
	for _, u := range users {
		for _, pid := range u.Posts {
			p, ok := postByID[pid]
			if assert.True(t, ok, "user %s lists missing post %s", u.ID, pid) {
				assert.Equal(t, u.ID, p.Author)
			}
		}
		for _, pid := range u.LikedPosts {
			p, ok := postByID[pid]
			if assert.True(t, ok, "user %s likes missing post %s", u.ID, pid) {
				assert.Contains(t, p.Likes, u.ID)
			}
		}
		for _, cid := range u.Comments {
			c, ok := commentByID[cid]
			if assert.True(t, ok, "user %s lists missing comment %s", u.ID, cid) {
				assert.Equal(t, u.ID, c.Author)
			}
		}
	}
}
