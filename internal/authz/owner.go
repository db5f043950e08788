// Package authz holds the ownership rule shared by books and reviews.
package authz

import (
	"fmt"

	"github.com/5w1tchy/book-reviews/internal/models"
)

// RequireOwner returns a models.ErrForbidden error unless ownerOf(entity) is actorID.
// kind names the entity in the error message.
func RequireOwner[T any](kind string, entity T, ownerOf func(T) string, actorID string) error {
	if actorID == "" || ownerOf(entity) != actorID {
		return fmt.Errorf("%w: not authorized to modify this %s", models.ErrForbidden, kind)
	}
	return nil
}

// BookOwner and ReviewOwner are the owner accessors for RequireOwner.
func BookOwner(b models.Book) string { return b.OwnerID }

func ReviewOwner(r models.Review) string { return r.UserID }
