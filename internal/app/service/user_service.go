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
)

type UserService struct {
	userRepo repository.UserRepository
	blogRepo repository.BlogRepository
	cleanup  CleanupEnqueuer // optional
	logger   logging.Logger
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, blogRepo repository.BlogRepository, cleanup CleanupEnqueuer, logger logging.Logger) *UserService {
	return &UserService{userRepo: userRepo, blogRepo: blogRepo, cleanup: cleanup, logger: logger, now: time.Now}
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Address   *string `json:"address"`
}

// List returns every user with credentials stripped.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*model.User, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func (s *UserService) Update(ctx context.Context, userID string, req UpdateUserRequest) (*model.User, error) {
	patch := model.UserPatch{
		FirstName: trimmed(req.FirstName),
		LastName:  trimmed(req.LastName),
		Address:   trimmed(req.Address),
	}
	user, err := s.userRepo.Update(ctx, userID, patch, s.now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	return user.Public(), nil
}

// Delete removes the user. Their posts are purged by the cleanup worker, or
// inline when no queue is configured.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.ErrNotFound, "User not found")
		}
		return fmt.Errorf("failed to delete user %s: %w", userID, err)
	}

	if s.cleanup != nil {
		job := model.CleanupJob{Type: model.JobUserPurge, UserID: userID}
		err := s.cleanup.Enqueue(ctx, job)
		if err == nil {
			return nil
		}
		s.logger.Warn(ctx, "failed to enqueue user purge, purging inline", "user_id", userID, "error", err)
	}

	n, err := s.blogRepo.DeleteByAuthor(ctx, userID)
	if err != nil {
		// The user is gone either way; orphaned posts cannot be mutated by anyone.
		s.logger.Error(ctx, "failed to purge posts of deleted user", "user_id", userID, "error", err)
		return nil
	}
	s.logger.Info(ctx, "purged posts of deleted user", "user_id", userID, "count", n)
	return nil
}

// Blogs returns the posts listed on user, in list order. Ids whose post no
// longer exists are skipped.
func (s *UserService) Blogs(ctx context.Context, user *model.User) ([]model.Blog, error) {
	if len(user.Blogs) == 0 {
		return []model.Blog{}, nil
	}
	blogs, err := s.blogRepo.FindByIDs(ctx, user.Blogs)
	if err != nil {
		return nil, fmt.Errorf("failed to load blogs of user %s: %w", user.ID, err)
	}
	return blogs, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
