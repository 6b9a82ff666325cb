package service

import (
	"context"
	"time"

	"blog_api/internal/domain/model"
)

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// TokenIssuer issues and verifies bearer tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
	TTL() time.Duration
}

// CleanupEnqueuer schedules background repair work.
type CleanupEnqueuer interface {
	Enqueue(ctx context.Context, job model.CleanupJob) error
}
