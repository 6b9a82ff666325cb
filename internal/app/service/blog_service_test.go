package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"
	"blog_api/internal/domain/repository"
	"blog_api/internal/platform/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBlogService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.signup(t, "a@x.io")

	blog, err := env.blogs.Create(ctx, author, CreateBlogRequest{Title: "Hello World!", Content: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, blog.ID)
	assert.Equal(t, author.ID, blog.AuthorID)
	assert.Equal(t, "hello-world", blog.Slug)

	author = env.reload(t, author)
	assert.Equal(t, []string{blog.ID}, author.Blogs)

	second, err := env.blogs.Create(ctx, author, CreateBlogRequest{Title: "Two", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{blog.ID, second.ID}, env.reload(t, author).Blogs)
}

func TestBlogService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	author := env.signup(t, "a@x.io")

	_, err := env.blogs.Create(context.Background(), author, CreateBlogRequest{Title: "  ", Content: "c"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
	_, err = env.blogs.Create(context.Background(), author, CreateBlogRequest{Title: "t"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
	_, err = env.blogs.Create(context.Background(), author, CreateBlogRequest{Title: "t", Content: "  \n"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.Empty(t, env.reload(t, author).Blogs)
}

func TestBlogService_CreateWithinTransaction(t *testing.T) {
	env := newTestEnv(t)
	tx := &memoryTx{store: env.store}
	store := &repository.Store{Users: env.store.Users, Blogs: env.store.Blogs, Tx: tx}
	svc := NewBlogService(store, env.queue, logging.Discard())
	author := env.signup(t, "a@x.io")

	blog, err := svc.Create(context.Background(), author, CreateBlogRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, []string{blog.ID}, env.reload(t, author).Blogs)
}

func TestBlogService_CreateCompensatesFailedLink(t *testing.T) {
	env := newTestEnv(t)
	author := env.signup(t, "a@x.io")
	store := &repository.Store{Users: failingPushUsers{env.store.Users}, Blogs: env.store.Blogs}
	svc := NewBlogService(store, env.queue, logging.Discard())

	_, err := svc.Create(context.Background(), author, CreateBlogRequest{Title: "t", Content: "c"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, statusOf(err))

	left, err := env.store.Blogs.ListByAuthor(context.Background(), author.ID)
	require.NoError(t, err)
	assert.Empty(t, left, "unlinked post must be removed")
	assert.Empty(t, env.queue.jobs)
}

func TestBlogService_CreateQueuesOrphanWhenCompensationFails(t *testing.T) {
	env := newTestEnv(t)
	author := env.signup(t, "a@x.io")
	store := &repository.Store{
		Users: failingPushUsers{env.store.Users},
		Blogs: failingDeleteBlogs{env.store.Blogs},
	}
	svc := NewBlogService(store, env.queue, logging.Discard())

	_, err := svc.Create(context.Background(), author, CreateBlogRequest{Title: "t", Content: "c"})
	require.Error(t, err)

	require.Len(t, env.queue.jobs, 1)
	job := env.queue.jobs[0]
	assert.Equal(t, model.JobBlogOrphan, job.Type)
	assert.Equal(t, author.ID, job.UserID)
	assert.NotEmpty(t, job.BlogID)
}

func TestBlogService_Get(t *testing.T) {
	env := newTestEnv(t)
	author := env.signup(t, "a@x.io")
	blog, err := env.blogs.Create(context.Background(), author, CreateBlogRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	got, err := env.blogs.Get(context.Background(), blog.ID)
	require.NoError(t, err)
	assert.Equal(t, blog.Title, got.Title)

	_, err = env.blogs.Get(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "Blog not found", err.Error())
}

func TestBlogService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "a@x.io")
	other := env.signup(t, "b@x.io")
	blog, err := env.blogs.Create(ctx, owner, CreateBlogRequest{Title: "Old", Content: "c"})
	require.NoError(t, err)

	t.Run("owner", func(t *testing.T) {
		updated, err := env.blogs.Update(ctx, owner, blog.ID, UpdateBlogRequest{Title: strPtr("New Title")})
		require.NoError(t, err)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, "new-title", updated.Slug)
		assert.Equal(t, "c", updated.Content)
		assert.False(t, updated.UpdatedAt.Before(blog.UpdatedAt))
	})

	t.Run("non-owner", func(t *testing.T) {
		_, err := env.blogs.Update(ctx, other, blog.ID, UpdateBlogRequest{Content: strPtr("hijack")})
		require.ErrorIs(t, err, common.ErrForbidden)
		assert.Equal(t, http.StatusForbidden, statusOf(err))

		got, err := env.blogs.Get(ctx, blog.ID)
		require.NoError(t, err)
		assert.Equal(t, "c", got.Content)
	})

	t.Run("missing before forbidden", func(t *testing.T) {
		_, err := env.blogs.Update(ctx, other, "missing", UpdateBlogRequest{Content: strPtr("x")})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("blank title", func(t *testing.T) {
		_, err := env.blogs.Update(ctx, owner, blog.ID, UpdateBlogRequest{Title: strPtr(" ")})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("blank content", func(t *testing.T) {
		_, err := env.blogs.Update(ctx, owner, blog.ID, UpdateBlogRequest{Content: strPtr("\t")})
		require.ErrorIs(t, err, common.ErrBadRequest)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})

	t.Run("no fields", func(t *testing.T) {
		before, err := env.blogs.Get(ctx, blog.ID)
		require.NoError(t, err)

		updated, err := env.blogs.Update(ctx, owner, blog.ID, UpdateBlogRequest{})
		require.NoError(t, err)
		assert.Equal(t, before.Title, updated.Title)
		assert.Equal(t, before.Content, updated.Content)
		assert.False(t, updated.UpdatedAt.Before(before.UpdatedAt))
	})
}

func TestBlogService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "a@x.io")
	other := env.signup(t, "b@x.io")
	keep, err := env.blogs.Create(ctx, owner, CreateBlogRequest{Title: "keep", Content: "c"})
	require.NoError(t, err)
	drop, err := env.blogs.Create(ctx, owner, CreateBlogRequest{Title: "drop", Content: "c"})
	require.NoError(t, err)

	err = env.blogs.Delete(ctx, other, drop.ID)
	require.ErrorIs(t, err, common.ErrForbidden)
	assert.Equal(t, "You are not authorized to delete this blog", err.Error())

	require.NoError(t, env.blogs.Delete(ctx, owner, drop.ID))
	assert.Equal(t, []string{keep.ID}, env.reload(t, owner).Blogs)

	_, err = env.blogs.Get(ctx, drop.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = env.blogs.Delete(ctx, owner, drop.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBlogService_DeleteWithinTransaction(t *testing.T) {
	env := newTestEnv(t)
	tx := &memoryTx{store: env.store}
	store := &repository.Store{Users: env.store.Users, Blogs: env.store.Blogs, Tx: tx}
	svc := NewBlogService(store, nil, logging.Discard())
	owner := env.signup(t, "a@x.io")

	blog, err := svc.Create(context.Background(), owner, CreateBlogRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), owner, blog.ID))
	assert.Equal(t, 2, tx.calls)
	assert.Empty(t, env.reload(t, owner).Blogs)
}

func TestBlogService_DeleteStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	owner := env.signup(t, "a@x.io")
	blog, err := env.blogs.Create(context.Background(), owner, CreateBlogRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	store := &repository.Store{Users: env.store.Users, Blogs: failingDeleteBlogs{env.store.Blogs}}
	svc := NewBlogService(store, nil, logging.Discard())

	err = svc.Delete(context.Background(), owner, blog.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusOf(err))
}
