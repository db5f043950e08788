// Package store defines the entity store contract shared by the postgres and
// in-memory backends.
package store

import (
	"context"

	"github.com/5w1tchy/book-reviews/internal/models"
)

// Books persists Book rows.
type Books interface {
	CreateBook(ctx context.Context, b *models.Book) error
	GetBook(ctx context.Context, id string) (models.BookWithOwner, error)
	// LockBook loads a book and holds it for the rest of the transaction so
	// concurrent review writers on the same book are serialized.
	LockBook(ctx context.Context, id string) (models.Book, error)
	UpdateBook(ctx context.Context, b *models.Book) error
	DeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context, q models.BookQuery) ([]models.BookWithOwner, int, error)
	ListBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error)
	SetBookAggregate(ctx context.Context, bookID string, agg models.Aggregate) error
}

// Reviews persists Review rows. CreateReview must fail with
// models.ErrConflict when (BookID, UserID) already exists, atomically.
type Reviews interface {
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id string) (models.Review, error)
	UpdateReview(ctx context.Context, r *models.Review) error
	DeleteReview(ctx context.Context, id string) error
	DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error)
	RatingsForBook(ctx context.Context, bookID string) ([]int, error)
	ListReviewsByBook(ctx context.Context, bookID string) ([]models.ReviewWithAuthor, error)
	ListReviewsByUser(ctx context.Context, userID string) ([]models.ReviewWithBook, error)
}

// Users persists accounts. CreateUser fails with models.ErrConflict on a taken email.
type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUserPasswordHash(ctx context.Context, userID, hash string) error
	BumpTokenVersion(ctx context.Context, userID string) (int, error)
	TokenVersion(ctx context.Context, userID string) (int, error)
}

// Repos is everything reachable inside or outside a transaction.
type Repos interface {
	Books
	Reviews
	Users
}

// Store adds transactions. fn's repos are bound to the transaction; a non-nil
// return rolls every write in fn back.
type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(tx Repos) error) error
	Close() error
}
