package server

import (
	"net/http"
	"testing"

	"socialgraph/internal/cascade"
	"socialgraph/internal/config"
	"socialgraph/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, app *fiber.App, name, email string) models.User {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/users", fiber.Map{
		"name": name, "email": email, "password": "secret",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[models.User](t, body)
}

func createPost(t *testing.T, app *fiber.App, author, content string) models.Post {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/posts", fiber.Map{
		"content": content, "author": author,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[models.Post](t, body)
}

func createComment(t *testing.T, app *fiber.App, author, post, text string) models.Comment {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/comments", fiber.Map{
		"text": text, "author": author, "post": post,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[models.Comment](t, body)
}

func getUser(t *testing.T, app *fiber.App, id string) models.User {
	t.Helper()
	status, body := call(t, app, http.MethodGet, "/api/users/"+id, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[models.User](t, body)
}

func TestUserHandlers(t *testing.T) {
	_, app := newTestApp(t)

	u := createUser(t, app, "Ada", "ada@x.io")
	assert.True(t, models.IsValidID(u.ID))
	assert.Equal(t, models.EncodePassword("secret"), u.Password)
	assert.Empty(t, u.Posts)

	other := createUser(t, app, "Bob", "bob@x.io")

	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		expectedStatus int
	}{
		{"list", http.MethodGet, "/api/users", nil, http.StatusOK},
		{"get", http.MethodGet, "/api/users/" + u.ID, nil, http.StatusOK},
		{"invalid id", http.MethodGet, "/api/users/abc", nil, http.StatusBadRequest},
		{"missing", http.MethodGet, "/api/users/" + models.NewID(), nil, http.StatusNotFound},
		{"bad email", http.MethodPost, "/api/users", fiber.Map{"name": "x", "email": "nope", "password": "p"}, http.StatusBadRequest},
		{"missing fields", http.MethodPost, "/api/users", fiber.Map{"name": "x"}, http.StatusBadRequest},
		{"duplicate email", http.MethodPost, "/api/users", fiber.Map{"name": "x", "email": "ada@x.io", "password": "p"}, http.StatusConflict},
		{"update to own email", http.MethodPatch, "/api/users/" + u.ID, fiber.Map{"email": "ada@x.io"}, http.StatusOK},
		{"update to taken email", http.MethodPatch, "/api/users/" + u.ID, fiber.Map{"email": "bob@x.io"}, http.StatusConflict},
		{"update missing user", http.MethodPatch, "/api/users/" + models.NewID(), fiber.Map{"name": "z"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, status, string(body))
		})
	}

	assert.Equal(t, "ada@x.io", getUser(t, app, u.ID).Email)
	assert.Equal(t, "bob@x.io", getUser(t, app, other.ID).Email)

	status, body := call(t, app, http.MethodPatch, "/api/users/"+u.ID, fiber.Map{"name": "Ada L", "password": "n3w"})
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decode[models.User](t, body)
	assert.Equal(t, "Ada L", updated.Name)
	assert.Equal(t, models.EncodePassword("n3w"), updated.Password)
	assert.Equal(t, "ada@x.io", updated.Email)
}

func TestErrorBodyCarriesCode(t *testing.T) {
	_, app := newTestApp(t)
	status, body := call(t, app, http.MethodGet, "/api/posts/"+models.NewID(), nil)
	require.Equal(t, http.StatusNotFound, status)

	got := decode[models.ErrorResponse](t, body)
	assert.Equal(t, models.CodeNotFound, got.Code)
	assert.Contains(t, got.Error, "Post")
}

func TestPostHandlers_LikesRoundTrip(t *testing.T) {
	_, app := newTestApp(t)
	author := createUser(t, app, "A", "a@x.io")
	fan := createUser(t, app, "F", "f@x.io")
	p := createPost(t, app, author.ID, "hello")

	assert.Equal(t, []string{p.ID}, getUser(t, app, author.ID).Posts)

	likePath := "/api/posts/" + p.ID + "/likes/" + fan.ID
	status, body := call(t, app, http.MethodPost, likePath, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, []string{fan.ID}, decode[models.Post](t, body).Likes)
	assert.Equal(t, []string{p.ID}, getUser(t, app, fan.ID).LikedPosts)

	status, _ = call(t, app, http.MethodPost, likePath, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodGet, "/api/posts/"+p.ID+"/likes", nil)
	require.Equal(t, http.StatusOK, status)
	likers := decode[[]models.User](t, body)
	require.Len(t, likers, 1)
	assert.Equal(t, fan.ID, likers[0].ID)

	status, body = call(t, app, http.MethodDelete, likePath, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Empty(t, decode[models.Post](t, body).Likes)
	assert.Empty(t, getUser(t, app, fan.ID).LikedPosts)

	status, _ = call(t, app, http.MethodDelete, likePath, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/posts/"+p.ID+"/likes/"+models.NewID(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, app, http.MethodPost, "/api/posts/"+p.ID+"/likes/nope", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPostHandlers_CreateValidation(t *testing.T) {
	_, app := newTestApp(t)

	status, _ := call(t, app, http.MethodPost, "/api/posts", fiber.Map{"content": "x", "author": "not-an-id"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/api/posts", fiber.Map{"content": "x", "author": models.NewID()})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPatch, "/api/posts/"+models.NewID(), fiber.Map{"content": "y"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCommentHandlers(t *testing.T) {
	_, app := newTestApp(t)
	a := createUser(t, app, "A", "a@x.io")
	p := createPost(t, app, a.ID, "post")
	c := createComment(t, app, a.ID, p.ID, "first")

	status, body := call(t, app, http.MethodGet, "/api/comments/"+c.ID+"/post", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, p.ID, decode[models.Post](t, body).ID)

	status, body = call(t, app, http.MethodGet, "/api/comments/"+c.ID+"/author", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, a.ID, decode[models.User](t, body).ID)

	status, body = call(t, app, http.MethodPatch, "/api/comments/"+c.ID, fiber.Map{"text": "edited"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "edited", decode[models.Comment](t, body).Text)

	status, body = call(t, app, http.MethodGet, "/api/posts/"+p.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Comment](t, body), 1)

	status, body = call(t, app, http.MethodDelete, "/api/comments/"+c.ID, nil)
	require.Equal(t, http.StatusOK, status)
	report := decode[cascade.Report](t, body)
	assert.True(t, report.Deleted)
	assert.True(t, report.OK())

	assert.Empty(t, getUser(t, app, a.ID).Comments)
	status, body = call(t, app, http.MethodGet, "/api/posts/"+p.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[models.Post](t, body).Comments)

	status, _ = call(t, app, http.MethodPost, "/api/comments", fiber.Map{"text": "x", "author": a.ID, "post": models.NewID()})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteUserCascadeOverHTTP(t *testing.T) {
	_, app := newTestApp(t)
	a := createUser(t, app, "A", "a@x")
	b := createUser(t, app, "B", "b@x")
	p := createPost(t, app, a.ID, "P")
	c := createComment(t, app, b.ID, p.ID, "C")
	status, _ := call(t, app, http.MethodPost, "/api/posts/"+p.ID+"/likes/"+b.ID, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodDelete, "/api/users/"+a.ID, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	report := decode[cascade.Report](t, body)
	assert.True(t, report.Deleted)
	assert.True(t, report.OK())
	assert.Positive(t, report.Applied)

	for _, path := range []string{"/api/users/" + a.ID, "/api/posts/" + p.ID, "/api/comments/" + c.ID} {
		status, _ := call(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
	}

	reloaded := getUser(t, app, b.ID)
	assert.Empty(t, reloaded.Comments)
	assert.Empty(t, reloaded.LikedPosts)

	// Deleting again is tolerated and reports nothing removed.
	status, body = call(t, app, http.MethodDelete, "/api/users/"+a.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[cascade.Report](t, body).Deleted)
}

func TestResolveExpansion(t *testing.T) {
	_, app := newTestApp(t)
	a := createUser(t, app, "A", "a@x.io")
	p := createPost(t, app, a.ID, "post")

	status, body := call(t, app, http.MethodGet, "/api/users/"+a.ID+"?resolve=true", nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[map[string]any](t, body)
	require.Contains(t, got, "postDocs")
	docs := got["postDocs"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, p.ID, docs[0].(map[string]any)["id"])

	status, body = call(t, app, http.MethodGet, "/api/posts/"+p.ID+"?resolve=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, decode[map[string]any](t, body), "authorDoc")

	_, gated := newTestApp(t, func(c *config.Config) { c.FeatureFlags = "resolve_expansion=off" })
	a2 := createUser(t, gated, "A", "a@x.io")
	status, body = call(t, gated, http.MethodGet, "/api/users/"+a2.ID+"?resolve=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, decode[map[string]any](t, body), "postDocs")
}

func TestReplayDeleteHandler(t *testing.T) {
	_, app := newTestApp(t)
	a := createUser(t, app, "A", "a@x.io")

	status, _ := call(t, app, http.MethodPost, "/api/admin/replay/users/"+a.ID, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodPost, "/api/admin/replay/widgets/"+a.ID, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodDelete, "/api/users/"+a.ID, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodPost, "/api/admin/replay/users/"+a.ID, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	report := decode[cascade.Report](t, body)
	assert.Equal(t, "deleteUser", report.Operation)
	assert.False(t, report.Deleted)
	assert.True(t, report.OK())
}
