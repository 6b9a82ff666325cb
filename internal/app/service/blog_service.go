package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"
	"blog_api/internal/domain/repository"
	"blog_api/internal/platform/logging"

	"github.com/gosimple/slug"
)

const msgBlogNotFound = "Blog not found"

type BlogService struct {
	blogRepo repository.BlogRepository
	userRepo repository.UserRepository
	tx       repository.Transactor // nil when the store has no transactions
	cleanup  CleanupEnqueuer       // optional
	logger   logging.Logger
	now      func() time.Time
}

func NewBlogService(store *repository.Store, cleanup CleanupEnqueuer, logger logging.Logger) *BlogService {
	return &BlogService{
		blogRepo: store.Blogs,
		userRepo: store.Users,
		tx:       store.Tx,
		cleanup:  cleanup,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBlogRequest carries no author: the author is always the caller.
type CreateBlogRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type UpdateBlogRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Create stores a post authored by actor and appends its id to actor's list.
func (s *BlogService) Create(ctx context.Context, actor *model.User, req CreateBlogRequest) (*model.Blog, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Content) == "" {
		return nil, common.E(common.ErrBadRequest, "Title and content are required")
	}

	now := s.now().UTC()
	blog := &model.Blog{
		Title:     title,
		Slug:      slug.Make(title),
		Content:   req.Content,
		AuthorID:  actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.tx != nil {
		err := s.tx.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository, blogs repository.BlogRepository) error {
			if err := blogs.Create(ctx, blog); err != nil {
				return err
			}
			return users.PushBlog(ctx, actor.ID, blog.ID)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create blog: %w", err)
		}
		return blog, nil
	}

	if err := s.blogRepo.Create(ctx, blog); err != nil {
		return nil, fmt.Errorf("failed to create blog: %w", err)
	}
	if err := s.userRepo.PushBlog(ctx, actor.ID, blog.ID); err != nil {
		s.discardOrphan(ctx, blog)
		return nil, fmt.Errorf("failed to link blog %s to user %s: %w", blog.ID, actor.ID, err)
	}
	return blog, nil
}

// discardOrphan removes a post that could not be linked to its author. When
// even that fails the post is handed to the cleanup worker.
func (s *BlogService) discardOrphan(ctx context.Context, blog *model.Blog) {
	ctx = context.WithoutCancel(ctx)
	err := s.blogRepo.Delete(ctx, blog.ID)
	if err == nil || errors.Is(err, common.ErrNotFound) {
		return
	}
	s.logger.Warn(ctx, "failed to remove unlinked blog", "blog_id", blog.ID, "error", err)

	if s.cleanup == nil {
		s.logger.Error(ctx, "orphaned blog left behind, no cleanup queue", "blog_id", blog.ID, "author_id", blog.AuthorID)
		return
	}
	job := model.CleanupJob{Type: model.JobBlogOrphan, BlogID: blog.ID, UserID: blog.AuthorID}
	if err := s.cleanup.Enqueue(ctx, job); err != nil {
		s.logger.Error(ctx, "failed to enqueue orphaned blog", "blog_id", blog.ID, "error", err)
	}
}

func (s *BlogService) Get(ctx context.Context, blogID string) (*model.Blog, error) {
	blog, err := s.blogRepo.FindByID(ctx, blogID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, msgBlogNotFound)
		}
		return nil, fmt.Errorf("failed to get blog %s: %w", blogID, err)
	}
	return blog, nil
}

// Update applies req to the post if actor owns it. A missing post is
// reported before ownership is checked.
func (s *BlogService) Update(ctx context.Context, actor *model.User, blogID string, req UpdateBlogRequest) (*model.Blog, error) {
	blog, err := s.Get(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOwned(blog, actor); err != nil {
		return nil, common.Wrap(common.ErrForbidden, "You are not authorized to update this blog", err)
	}

	patch := model.BlogPatch{Title: req.Title, Content: req.Content}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, common.E(common.ErrBadRequest, "Title cannot be empty")
		}
		titleSlug := slug.Make(title)
		patch.Title, patch.Slug = &title, &titleSlug
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return nil, common.E(common.ErrBadRequest, "Content cannot be empty")
	}

	updated, err := s.blogRepo.Update(ctx, blogID, patch, s.now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, msgBlogNotFound)
		}
		return nil, fmt.Errorf("failed to update blog %s: %w", blogID, err)
	}
	return updated, nil
}

// Delete removes the post if actor owns it and drops it from actor's list.
func (s *BlogService) Delete(ctx context.Context, actor *model.User, blogID string) error {
	blog, err := s.Get(ctx, blogID)
	if err != nil {
		return err
	}
	if err := AuthorizeOwned(blog, actor); err != nil {
		return common.Wrap(common.ErrForbidden, "You are not authorized to delete this blog", err)
	}

	remove := func(ctx context.Context, users repository.UserRepository, blogs repository.BlogRepository) error {
		if err := blogs.Delete(ctx, blogID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.E(common.ErrNotFound, msgBlogNotFound)
			}
			return err
		}
		if err := users.PullBlog(ctx, blog.AuthorID, blogID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		return nil
	}

	if s.tx != nil {
		err = s.tx.WithinTx(ctx, remove)
	} else {
		err = remove(ctx, s.userRepo, s.blogRepo)
	}
	if err != nil {
		var appErr *common.Error
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("failed to delete blog %s: %w", blogID, err)
	}
	return nil
}
