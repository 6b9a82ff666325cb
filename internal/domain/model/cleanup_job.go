package model

import "time"

type CleanupJobType string

const (
	// JobBlogOrphan removes a post that never made it onto its author's list.
	JobBlogOrphan CleanupJobType = "blog.orphan"
	// JobUserPurge removes every post authored by a deleted user.
	JobUserPurge CleanupJobType = "user.purge"
)

// CleanupJob is queued as JSON on the cleanup list and consumed by the
// cleanup worker.
type CleanupJob struct {
	ID         string         `json:"id"`
	Type       CleanupJobType `json:"type"`
	UserID     string         `json:"user_id,omitempty"`
	BlogID     string         `json:"blog_id,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	Attempts   int            `json:"attempts"`
}
