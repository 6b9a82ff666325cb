package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"

	"github.com/google/uuid"
)

// memoryDB backs the in-memory repositories used for local runs and tests.
// Every method copies values in and out so callers never share state.
type memoryDB struct {
	mu    sync.RWMutex
	users map[string]*model.User
	blogs map[string]*model.Blog
}

func newMemoryDB() *memoryDB {
	return &memoryDB{users: map[string]*model.User{}, blogs: map[string]*model.Blog{}}
}

func copyUser(u *model.User) *model.User {
	out := *u
	out.Blogs = append([]string{}, u.Blogs...)
	return &out
}

func copyBlog(b *model.Blog) *model.Blog {
	out := *b
	return &out
}

type memoryUserRepository struct{ db *memoryDB }

type memoryBlogRepository struct{ db *memoryDB }

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return errDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Blogs == nil {
		user.Blogs = []string{}
	}
	r.db.users[user.ID] = copyUser(user)
	return nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	users := make([]model.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		users = append(users, *copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *memoryUserRepository) Update(_ context.Context, id string, patch model.UserPatch, updatedAt time.Time) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Address != nil {
		u.Address = *patch.Address
	}
	u.UpdatedAt = updatedAt
	return copyUser(u), nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

func (r *memoryUserRepository) PushBlog(_ context.Context, userID, blogID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.Blogs = append(u.Blogs, blogID)
	return nil
}

func (r *memoryUserRepository) PullBlog(_ context.Context, userID, blogID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	kept := u.Blogs[:0]
	for _, id := range u.Blogs {
		if id != blogID {
			kept = append(kept, id)
		}
	}
	u.Blogs = kept
	return nil
}

func (r *memoryBlogRepository) Create(_ context.Context, blog *model.Blog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	r.db.blogs[blog.ID] = copyBlog(blog)
	return nil
}

func (r *memoryBlogRepository) FindByID(_ context.Context, id string) (*model.Blog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.blogs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyBlog(b), nil
}

func (r *memoryBlogRepository) FindByIDs(_ context.Context, ids []string) ([]model.Blog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	blogs := make([]model.Blog, 0, len(ids))
	for _, id := range ids {
		if b, ok := r.db.blogs[id]; ok {
			blogs = append(blogs, *copyBlog(b))
		}
	}
	return blogs, nil
}

func (r *memoryBlogRepository) ListByAuthor(_ context.Context, authorID string) ([]model.Blog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	blogs := []model.Blog{}
	for _, b := range r.db.blogs {
		if b.AuthorID == authorID {
			blogs = append(blogs, *copyBlog(b))
		}
	}
	sort.Slice(blogs, func(i, j int) bool { return blogs[i].CreatedAt.Before(blogs[j].CreatedAt) })
	return blogs, nil
}

func (r *memoryBlogRepository) Update(_ context.Context, id string, patch model.BlogPatch, updatedAt time.Time) (*model.Blog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.blogs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Slug != nil {
		b.Slug = *patch.Slug
	}
	if patch.Content != nil {
		b.Content = *patch.Content
	}
	b.UpdatedAt = updatedAt
	return copyBlog(b), nil
}

func (r *memoryBlogRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.blogs[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.db.blogs, id)
	return nil
}

func (r *memoryBlogRepository) DeleteByAuthor(_ context.Context, authorID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, b := range r.db.blogs {
		if b.AuthorID == authorID {
			delete(r.db.blogs, id)
			n++
		}
	}
	return n, nil
}
