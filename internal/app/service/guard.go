package service

import (
	"strings"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"
)

// Owned is implemented by every resource that records its creator.
type Owned interface {
	OwnerID() string
}

// AuthorizeMutation allows the change only when actorID is the recorded
// owner. Identifiers are compared as trimmed strings.
func AuthorizeMutation(ownerID, actorID string) error {
	owner := strings.TrimSpace(ownerID)
	actor := strings.TrimSpace(actorID)
	if owner == "" || actor == "" || owner != actor {
		return common.ErrForbidden
	}
	return nil
}

// AuthorizeOwned applies AuthorizeMutation to resource on behalf of actor.
func AuthorizeOwned(resource Owned, actor *model.User) error {
	if resource == nil || actor == nil {
		return common.ErrForbidden
	}
	return AuthorizeMutation(resource.OwnerID(), actor.ID)
}
