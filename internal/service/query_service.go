package service

import (
	"context"
	"errors"

	"socialgraph/internal/cache"
	"socialgraph/internal/models"
	"socialgraph/internal/store"

	"golang.org/x/sync/errgroup"
)

// QueryService serves reads. Single-document reads go through the cache;
// reference resolution silently omits ids whose document is gone.
type QueryService struct {
	e *engine
}

// ResolvedUser is a user with its reference sets expanded.
type ResolvedUser struct {
	*models.User
	PostDocs      []*models.Post    `json:"postDocs"`
	CommentDocs   []*models.Comment `json:"commentDocs"`
	LikedPostDocs []*models.Post    `json:"likedPostDocs"`
}

// ResolvedPost is a post with its author and reference sets expanded.
type ResolvedPost struct {
	*models.Post
	AuthorDoc   *models.User      `json:"authorDoc"`
	CommentDocs []*models.Comment `json:"commentDocs"`
	LikeDocs    []*models.User    `json:"likeDocs"`
}

// ResolvedComment is a comment with its author and post expanded.
type ResolvedComment struct {
	*models.Comment
	AuthorDoc *models.User `json:"authorDoc"`
	PostDoc   *models.Post `json:"postDoc"`
}

func (s *QueryService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listAll(ctx, s.e.backend.Users())
}

func (s *QueryService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return listAll(ctx, s.e.backend.Posts())
}

func (s *QueryService) ListComments(ctx context.Context) ([]*models.Comment, error) {
	return listAll(ctx, s.e.backend.Comments())
}

func (s *QueryService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getCached(ctx, s.e, s.e.backend.Users(), store.KindUser, "User", id)
}

func (s *QueryService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return getCached(ctx, s.e, s.e.backend.Posts(), store.KindPost, "Post", id)
}

func (s *QueryService) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	return getCached(ctx, s.e, s.e.backend.Comments(), store.KindComment, "Comment", id)
}

// UserPosts resolves User.posts.
func (s *QueryService) UserPosts(ctx context.Context, u *models.User) ([]*models.Post, error) {
	return resolveMany(ctx, s.e.backend.Posts(), u.Posts)
}

// UserComments resolves User.comments.
func (s *QueryService) UserComments(ctx context.Context, u *models.User) ([]*models.Comment, error) {
	return resolveMany(ctx, s.e.backend.Comments(), u.Comments)
}

// UserLikedPosts resolves User.likedPosts.
func (s *QueryService) UserLikedPosts(ctx context.Context, u *models.User) ([]*models.Post, error) {
	return resolveMany(ctx, s.e.backend.Posts(), u.LikedPosts)
}

// PostAuthor resolves Post.author; nil when the author is gone.
func (s *QueryService) PostAuthor(ctx context.Context, p *models.Post) (*models.User, error) {
	return resolveOne(ctx, s.e.backend.Users(), p.Author)
}

// PostComments resolves Post.comments.
func (s *QueryService) PostComments(ctx context.Context, p *models.Post) ([]*models.Comment, error) {
	return resolveMany(ctx, s.e.backend.Comments(), p.Comments)
}

// PostLikes resolves Post.likes.
func (s *QueryService) PostLikes(ctx context.Context, p *models.Post) ([]*models.User, error) {
	return resolveMany(ctx, s.e.backend.Users(), p.Likes)
}

// CommentAuthor resolves Comment.author; nil when the author is gone.
func (s *QueryService) CommentAuthor(ctx context.Context, c *models.Comment) (*models.User, error) {
	return resolveOne(ctx, s.e.backend.Users(), c.Author)
}

// CommentPost resolves Comment.post; nil when the post is gone.
func (s *QueryService) CommentPost(ctx context.Context, c *models.Comment) (*models.Post, error) {
	return resolveOne(ctx, s.e.backend.Posts(), c.Post)
}

// ResolveUser loads the user and every document it references.
func (s *QueryService) ResolveUser(ctx context.Context, id string) (*ResolvedUser, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ResolvedUser{User: u}
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) { out.PostDocs, err = s.UserPosts(gctx, u); return })
	eg.Go(func() (err error) { out.CommentDocs, err = s.UserComments(gctx, u); return })
	eg.Go(func() (err error) { out.LikedPostDocs, err = s.UserLikedPosts(gctx, u); return })
	if err := eg.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// ResolvePost loads the post and every document it references.
func (s *QueryService) ResolvePost(ctx context.Context, id string) (*ResolvedPost, error) {
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ResolvedPost{Post: p}
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) { out.AuthorDoc, err = s.PostAuthor(gctx, p); return })
	eg.Go(func() (err error) { out.CommentDocs, err = s.PostComments(gctx, p); return })
	eg.Go(func() (err error) { out.LikeDocs, err = s.PostLikes(gctx, p); return })
	if err := eg.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// ResolveComment loads the comment with its author and post.
func (s *QueryService) ResolveComment(ctx context.Context, id string) (*ResolvedComment, error) {
	c, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ResolvedComment{Comment: c}
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) { out.AuthorDoc, err = s.CommentAuthor(gctx, c); return })
	eg.Go(func() (err error) { out.PostDoc, err = s.CommentPost(gctx, c); return })
	if err := eg.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func listAll[T any](ctx context.Context, c store.Collection[T]) ([]*T, error) {
	docs, err := c.Find(ctx, store.All())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if docs == nil {
		docs = []*T{}
	}
	return docs, nil
}

func getCached[T any](ctx context.Context, e *engine, c store.Collection[T], kind store.Kind, resource, id string) (*T, error) {
	doc, err := cache.Aside(ctx, e.cache, cache.DocKey(kind, id), func(ctx context.Context) (*T, error) {
		return c.FindOne(ctx, store.ByID(id))
	})
	if errors.Is(err, store.ErrNoDocument) {
		return nil, models.NewNotFoundError(resource, id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return doc, nil
}

// resolveMany returns the documents listed in ids, in ids order, skipping
// ids with no document.
func resolveMany[T any](ctx context.Context, c store.Collection[T], ids []string) ([]*T, error) {
	out := []*T{}
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := c.Find(ctx, store.ByIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*T, len(docs))
	for _, d := range docs {
		if idd, ok := any(d).(interface{ GetID() string }); ok {
			byID[idd.GetID()] = d
		}
	}
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func resolveOne[T any](ctx context.Context, c store.Collection[T], id string) (*T, error) {
	if id == "" {
		return nil, nil
	}
	doc, err := c.FindOne(ctx, store.ByID(id))
	if errors.Is(err, store.ErrNoDocument) {
		return nil, nil
	}
	return doc, err
}
