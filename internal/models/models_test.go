package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordEncoding(t *testing.T) {
	encoded := EncodePassword("hunter2")
	assert.NotEqual(t, "hunter2", encoded)
	assert.Equal(t, "aHVudGVyMg==", encoded)

	plain, err := DecodePassword(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)

	_, err = DecodePassword("not base64!")
	assert.Error(t, err)
}

func TestIDs(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, IsValidID(id))
	assert.NotEqual(t, id, NewID())

	for _, bad := range []string{"", "abc", "zzzzzzzzzzzzzzzzzzzzzzzz", id + "0"} {
		assert.False(t, IsValidID(bad), bad)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
}

func TestEnsureSets(t *testing.T) {
	u := &User{}
	u.EnsureSets()
	assert.NotNil(t, u.Posts)
	assert.NotNil(t, u.Comments)
	assert.NotNil(t, u.LikedPosts)

	p := &Post{Likes: []string{"x"}}
	p.EnsureSets()
	assert.Equal(t, []string{"x"}, p.Likes)
	assert.NotNil(t, p.Comments)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("User", "1"), http.StatusNotFound},
		{"conflict", NewConflictError("taken"), http.StatusConflict},
		{"validation", NewValidationError("bad"), http.StatusBadRequest},
		{"write rejected", NewWriteRejectedError("insert failed", errors.New("boom")), http.StatusBadGateway},
		{"internal", NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NewNotFoundError("Post", "2")), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewWriteRejectedError("insert failed", cause)
	assert.Equal(t, "insert failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeWriteRejected))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(cause, CodeWriteRejected))

	assert.Equal(t, "User with ID 42 not found", NewNotFoundError("User", 42).Error())
}
