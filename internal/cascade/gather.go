package cascade

import (
	"context"
	"errors"
	"sort"

	"socialgraph/internal/models"
	"socialgraph/internal/store"

	"golang.org/x/sync/errgroup"
)

// Gatherer reads the snapshots planners work from. Besides following the
// ids a document holds, it sweeps the other collections for reverse
// references, so a snapshot also finds references a half-applied cascade
// left behind.
type Gatherer struct {
	Backend store.Backend
	// Parallel caps concurrent reads. Values below 1 mean 1, which
	// transactions need because they run on a single connection.
	Parallel int
}

func (g Gatherer) group(ctx context.Context) (*errgroup.Group, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	limit := g.Parallel
	if limit < 1 {
		limit = 1
	}
	eg.SetLimit(limit)
	return eg, ctx
}

// Comment gathers the comment and the users and posts referencing it.
func (g Gatherer) Comment(ctx context.Context, id string) (CommentSnapshot, error) {
	snap := CommentSnapshot{ID: id}
	var authors []*models.User
	var holderPosts []*models.Post

	eg, gctx := g.group(ctx)
	eg.Go(func() error {
		c, err := findOptional(gctx, g.Backend.Comments(), id)
		snap.Comment = c
		return err
	})
	eg.Go(func() error {
		var err error
		authors, err = g.Backend.Users().Find(gctx, store.Holding(models.FieldComments, id))
		return err
	})
	eg.Go(func() error {
		var err error
		holderPosts, err = g.Backend.Posts().Find(gctx, store.Holding(models.FieldComments, id))
		return err
	})
	if err := eg.Wait(); err != nil {
		return CommentSnapshot{}, err
	}

	var ownAuthor, ownPost []string
	if snap.Comment != nil {
		ownAuthor = []string{snap.Comment.Author}
		ownPost = []string{snap.Comment.Post}
	}
	snap.Authors = union(ownAuthor, idsOf(authors))
	snap.Posts = union(ownPost, idsOf(holderPosts))
	return snap, nil
}

// Post gathers the post, the users holding it in posts or likedPosts and
// every comment that belongs to it.
func (g Gatherer) Post(ctx context.Context, id string) (PostSnapshot, error) {
	snap := PostSnapshot{ID: id}
	var holders, likers []*models.User
	var comments []*models.Comment

	eg, gctx := g.group(ctx)
	eg.Go(func() error {
		p, err := findOptional(gctx, g.Backend.Posts(), id)
		snap.Post = p
		return err
	})
	eg.Go(func() error {
		var err error
		holders, err = g.Backend.Users().Find(gctx, store.Holding(models.FieldPosts, id))
		return err
	})
	eg.Go(func() error {
		var err error
		likers, err = g.Backend.Users().Find(gctx, store.Holding(models.FieldLikedPosts, id))
		return err
	})
	eg.Go(func() error {
		var err error
		comments, err = g.Backend.Comments().Find(gctx, store.Where(models.FieldPost, id))
		return err
	})
	if err := eg.Wait(); err != nil {
		return PostSnapshot{}, err
	}

	var ownAuthor, ownLikes, ownComments []string
	if snap.Post != nil {
		ownAuthor = []string{snap.Post.Author}
		ownLikes = snap.Post.Likes
		ownComments = snap.Post.Comments
	}
	snap.Holders = union(ownAuthor, idsOf(holders))
	snap.Likers = union(ownLikes, idsOf(likers))

	var err error
	snap.Comments, err = g.comments(ctx, union(ownComments, idsOf(comments)))
	if err != nil {
		return PostSnapshot{}, err
	}
	return snap, nil
}

// User gathers the user with the posts it authored (each with its own
// snapshot), the posts it likes and the comments it wrote.
func (g Gatherer) User(ctx context.Context, id string) (UserSnapshot, error) {
	snap := UserSnapshot{ID: id}
	var authored, liked []*models.Post
	var written []*models.Comment

	eg, gctx := g.group(ctx)
	eg.Go(func() error {
		u, err := findOptional(gctx, g.Backend.Users(), id)
		snap.User = u
		return err
	})
	eg.Go(func() error {
		var err error
		authored, err = g.Backend.Posts().Find(gctx, store.Where(models.FieldAuthor, id))
		return err
	})
	eg.Go(func() error {
		var err error
		liked, err = g.Backend.Posts().Find(gctx, store.Holding(models.FieldLikes, id))
		return err
	})
	eg.Go(func() error {
		var err error
		written, err = g.Backend.Comments().Find(gctx, store.Where(models.FieldAuthor, id))
		return err
	})
	if err := eg.Wait(); err != nil {
		return UserSnapshot{}, err
	}

	var ownPosts, ownLiked, ownComments []string
	if snap.User != nil {
		ownPosts = snap.User.Posts
		ownLiked = snap.User.LikedPosts
		ownComments = snap.User.Comments
	}
	snap.LikedPosts = union(ownLiked, idsOf(liked))

	postIDs := union(ownPosts, idsOf(authored))
	snap.Posts = make([]PostSnapshot, len(postIDs))
	eg, gctx = g.group(ctx)
	for i, pid := range postIDs {
		eg.Go(func() error {
			ps, err := g.Post(gctx, pid)
			snap.Posts[i] = ps
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return UserSnapshot{}, err
	}

	var err error
	snap.Comments, err = g.comments(ctx, union(ownComments, idsOf(written)))
	if err != nil {
		return UserSnapshot{}, err
	}
	return snap, nil
}

func (g Gatherer) comments(ctx context.Context, ids []string) ([]CommentSnapshot, error) {
	out := make([]CommentSnapshot, len(ids))
	eg, gctx := g.group(ctx)
	for i, cid := range ids {
		eg.Go(func() error {
			cs, err := g.Comment(gctx, cid)
			out[i] = cs
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func findOptional[T any](ctx context.Context, c store.Collection[T], id string) (*T, error) {
	doc, err := c.FindOne(ctx, store.ByID(id))
	if errors.Is(err, store.ErrNoDocument) {
		return nil, nil
	}
	return doc, err
}

type identified interface{ GetID() string }

func idsOf[T identified](docs []T) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.GetID())
	}
	sort.Strings(ids)
	return ids
}

// union returns the distinct non-empty ids of a followed by those of b, in
// first-seen order.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
