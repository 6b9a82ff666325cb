package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/common/security"
	"blog_api/internal/domain/model"
	"blog_api/internal/domain/repository"
	"blog_api/internal/platform/logging"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []model.CleanupJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job model.CleanupJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// memoryTx runs fn directly against the memory repositories.
type memoryTx struct {
	store *repository.Store
	calls int
}

func (t *memoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context, users repository.UserRepository, blogs repository.BlogRepository) error) error {
	t.calls++
	return fn(ctx, t.store.Users, t.store.Blogs)
}

type failingPushUsers struct {
	repository.UserRepository
}

func (failingPushUsers) PushBlog(context.Context, string, string) error {
	return errors.New("push failed")
}

type failingDeleteBlogs struct {
	repository.BlogRepository
}

func (failingDeleteBlogs) Delete(context.Context, string) error {
	return errors.New("delete failed")
}

type testEnv struct {
	store  *repository.Store
	auth   *AuthService
	users  *UserService
	blogs  *BlogService
	queue  *recordingQueue
	tokens *security.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := security.NewTokenService([]byte("test-secret"), 30*time.Minute)
	queue := &recordingQueue{}
	logger := logging.Discard()
	return &testEnv{
		store:  store,
		auth:   NewAuthService(store.Users, security.NewPasswordHasher(bcrypt.MinCost), tokens),
		users:  NewUserService(store.Users, store.Blogs, queue, logger),
		blogs:  NewBlogService(store, queue, logger),
		queue:  queue,
		tokens: tokens,
	}
}

// signup registers email and returns the stored user.
func (e *testEnv) signup(t *testing.T, email string) *model.User {
	t.Helper()
	id, err := e.auth.Signup(context.Background(), SignupRequest{Email: email, Password: "pw-" + email})
	require.NoError(t, err)
	user, err := e.store.Users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

// reload refreshes u from the store.
func (e *testEnv) reload(t *testing.T, u *model.User) *model.User {
	t.Helper()
	fresh, err := e.store.Users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

func statusOf(err error) int {
	return common.HTTPStatusFromError(err)
}
