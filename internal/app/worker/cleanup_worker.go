package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"
	"blog_api/internal/domain/repository"
	"blog_api/internal/platform/logging"
	"blog_api/internal/platform/queue"
)

const (
	defaultPollTimeout = 5 * time.Second
	defaultMaxAttempts = 5
	retryDelay         = 5 * time.Second
	lockKeyPrefix      = "cleanup_lock:"
)

var errUnknownJob = errors.New("unknown cleanup job type")

// JobQueue is the part of queue.RedisJobQueue the worker uses.
type JobQueue interface {
	Enqueue(ctx context.Context, job model.CleanupJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (*model.CleanupJob, error)
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error)
	Len(ctx context.Context) (int64, error)
}

// CleanupWorker repairs cross-document state the request path could not
// finish: posts left off their author's list and posts of deleted users.
type CleanupWorker struct {
	queue       JobQueue
	userRepo    repository.UserRepository
	blogRepo    repository.BlogRepository
	lockTTL     time.Duration
	pollTimeout time.Duration
	maxAttempts int
	logger      logging.Logger
}

func NewCleanupWorker(q JobQueue, userRepo repository.UserRepository, blogRepo repository.BlogRepository, lockTTL time.Duration, logger logging.Logger) *CleanupWorker {
	return &CleanupWorker{
		queue:       q,
		userRepo:    userRepo,
		blogRepo:    blogRepo,
		lockTTL:     lockTTL,
		pollTimeout: defaultPollTimeout,
		maxAttempts: defaultMaxAttempts,
		logger:      logger.With("component", "cleanup_worker"),
	}
}

// Start consumes jobs until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	if n, err := w.queue.Len(ctx); err != nil {
		w.logger.Warn(ctx, "failed to read cleanup backlog", "error", err)
	} else {
		w.logger.Info(ctx, "cleanup worker started", "pending", n)
	}
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(context.WithoutCancel(ctx), "cleanup worker stopping")
			return
		default:
		}

		if err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error(ctx, "failed to dequeue cleanup job", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
		}
	}
}

// RunOnce waits for one job and processes it. An empty poll is not an error.
func (w *CleanupWorker) RunOnce(ctx context.Context) error {
	job, err := w.queue.Dequeue(ctx, w.pollTimeout)
	if err != nil {
		if errors.Is(err, queue.ErrEmpty) {
			return nil
		}
		return err
	}
	w.processWithLock(ctx, job)
	return nil
}

func (w *CleanupWorker) processWithLock(ctx context.Context, job *model.CleanupJob) {
	release, ok, err := w.queue.Lock(ctx, lockKeyPrefix+job.ID, w.lockTTL)
	if err != nil {
		w.logger.Error(ctx, "failed to acquire cleanup lock", "job_id", job.ID, "error", err)
		w.retry(ctx, job, err)
		return
	}
	if !ok {
		// Another worker holds this job. Hand it back without spending an attempt.
		w.logger.Info(ctx, "cleanup job locked elsewhere, requeueing", "job_id", job.ID)
		if err := w.requeue(ctx, job); err != nil {
			w.logger.Error(ctx, "failed to requeue locked cleanup job", "job_id", job.ID, "error", err)
		}
		return
	}

	err = w.Handle(ctx, *job)
	// The lock must be gone before a retry is visible to other workers.
	if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
		w.logger.Warn(ctx, "failed to release cleanup lock", "job_id", job.ID, "error", relErr)
	}

	switch {
	case err == nil:
		w.logger.Info(ctx, "cleanup job done", "job_id", job.ID, "type", job.Type)
	case errors.Is(err, errUnknownJob):
		w.logger.Error(ctx, "dropping cleanup job", "job_id", job.ID, "type", job.Type, "error", err)
	default:
		w.retry(ctx, job, err)
	}
}

func (w *CleanupWorker) retry(ctx context.Context, job *model.CleanupJob, cause error) {
	job.Attempts++
	if job.Attempts >= w.maxAttempts {
		w.logger.Error(ctx, "cleanup job exhausted its attempts", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "error", cause)
		return
	}
	if err := w.requeue(ctx, job); err != nil {
		w.logger.Error(ctx, "failed to requeue cleanup job", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Warn(ctx, "cleanup job requeued", "job_id", job.ID, "attempts", job.Attempts, "error", cause)
}

func (w *CleanupWorker) requeue(ctx context.Context, job *model.CleanupJob) error {
	return w.queue.Enqueue(context.WithoutCancel(ctx), *job)
}

// Handle applies one job. Jobs are idempotent: work already done is a no-op.
func (w *CleanupWorker) Handle(ctx context.Context, job model.CleanupJob) error {
	switch job.Type {
	case model.JobBlogOrphan:
		return w.removeOrphan(ctx, job.BlogID)
	case model.JobUserPurge:
		return w.purgeUser(ctx, job.UserID)
	default:
		return fmt.Errorf("%w: %q", errUnknownJob, job.Type)
	}
}

// removeOrphan deletes the post unless its author exists and lists it.
func (w *CleanupWorker) removeOrphan(ctx context.Context, blogID string) error {
	blog, err := w.blogRepo.FindByID(ctx, blogID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	owner, err := w.userRepo.FindByID(ctx, blog.AuthorID)
	switch {
	case err == nil && owner.OwnsBlog(blog.ID):
		w.logger.Info(ctx, "blog is linked to its author, keeping", "blog_id", blogID)
		return nil
	case err != nil && !errors.Is(err, common.ErrNotFound):
		return err
	}

	if err := w.blogRepo.Delete(ctx, blogID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// purgeUser deletes every post by userID once the user is gone.
func (w *CleanupWorker) purgeUser(ctx context.Context, userID string) error {
	if _, err := w.userRepo.FindByID(ctx, userID); err == nil {
		w.logger.Warn(ctx, "user still exists, not purging", "user_id", userID)
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	blogs, err := w.blogRepo.ListByAuthor(ctx, userID)
	if err != nil {
		return err
	}
	if len(blogs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(blogs))
	for i := range blogs {
		ids = append(ids, blogs[i].ID)
	}

	n, err := w.blogRepo.DeleteByAuthor(ctx, userID)
	if err != nil {
		return err
	}
	w.logger.Info(ctx, "purged posts of deleted user", "user_id", userID, "count", n, "blog_ids", ids)
	return nil
}
