package model

import "time"

type Blog struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID satisfies service.Owned.
func (b *Blog) OwnerID() string {
	return b.AuthorID
}

// BlogPatch holds the client-supplied fields of a partial update.
type BlogPatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Slug    *string `json:"-"`
}
