package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-while/go-pugblog/internal/database"
	"github.com/go-while/go-pugblog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListShowDelete(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	var out bytes.Buffer

	require.NoError(t, listPosts(ctx, store, &out))
	assert.Contains(t, out.String(), "No posts found")

	out.Reset()
	require.NoError(t, createPost(ctx, store, "  From the shell  ", "body text", &out))
	assert.Contains(t, out.String(), "Post 'From the shell' created")

	posts, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := posts[0].ID

	out.Reset()
	require.NoError(t, listPosts(ctx, store, &out))
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "Total: 1 posts")

	out.Reset()
	require.NoError(t, showPost(ctx, store, id, &out))
	assert.Contains(t, out.String(), "Title:   From the shell")
	assert.Contains(t, out.String(), "body text")

	out.Reset()
	require.NoError(t, deletePost(ctx, store, id, func(*models.Post) bool { return false }, &out))
	assert.Contains(t, out.String(), "cancelled")
	_, err = store.FindByID(ctx, id)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, deletePost(ctx, store, id, func(*models.Post) bool { return true }, &out))
	assert.Contains(t, out.String(), "deleted")
	_, err = store.FindByID(ctx, id)
	assert.True(t, errors.Is(err, database.ErrPostNotFound))
}

func TestCreateUsesFormValidation(t *testing.T) {
	store := database.NewMemoryStore()
	err := createPost(context.Background(), store, "", "", &bytes.Buffer{})

	var verrs models.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, models.ValidationErrors{models.MsgTitleRequired, models.MsgBodyRequired}, verrs)

	err = createPost(context.Background(), store, strings.Repeat("x", 201), "body", &bytes.Buffer{})
	assert.ErrorContains(t, err, models.MsgTitleTooLong)
}

func TestMissingPost(t *testing.T) {
	store := database.NewMemoryStore()
	assert.ErrorContains(t, showPost(context.Background(), store, "nope", &bytes.Buffer{}), "not found")
	assert.ErrorContains(t, deletePost(context.Background(), store, "nope", func(*models.Post) bool { return true }, &bytes.Buffer{}), "not found")
}

func TestAskConfirm(t *testing.T) {
	p := &models.Post{ID: "1", Title: "T"}
	for answer, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		var out bytes.Buffer
		assert.Equal(t, want, askConfirm(strings.NewReader(answer), &out, p), "answer %q", answer)
		assert.Contains(t, out.String(), "[y/N]")
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := rootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show", "create", "delete", "hash-password"}, names)
}
