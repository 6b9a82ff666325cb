package model

import (
	"time"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Address        string    `json:"address"`
	Blogs          []string  `json:"blogs"` // Owned blog ids, in creation order
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Public returns a copy safe to hand to API clients.
func (u *User) Public() *User {
	out := *u
	out.HashedPassword = ""
	if out.Blogs == nil {
		out.Blogs = []string{}
	}
	return &out
}

// OwnsBlog reports whether blogID is in the user's owned list.
func (u *User) OwnsBlog(blogID string) bool {
	for _, id := range u.Blogs {
		if id == blogID {
			return true
		}
	}
	return false
}

// UserPatch carries the profile fields a client may change. Nil fields are
// left untouched.
type UserPatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Address   *string `json:"address,omitempty"`
}
