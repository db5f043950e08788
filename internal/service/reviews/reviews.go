// Package reviews owns the review lifecycle: one review per user per book,
// owner-only mutation, and an aggregate recompute on every write.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/5w1tchy/book-reviews/internal/authz"
	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/rating"
	"github.com/5w1tchy/book-reviews/internal/store"
	"github.com/5w1tchy/book-reviews/internal/validate"
)

type Service struct {
	store store.Store
	v     *validate.Validator
}

func New(s store.Store, v *validate.Validator) *Service {
	return &Service{store: s, v: v}
}

// withAuthor joins r with its author inside the same transaction.
func withAuthor(ctx context.Context, tx store.Repos, r models.Review) (models.ReviewWithAuthor, error) {
	u, err := tx.GetUser(ctx, r.UserID)
	if err != nil {
		return models.ReviewWithAuthor{}, fmt.Errorf("load author: %w", err)
	}
	return models.ReviewWithAuthor{Review: r, User: u.Summary()}, nil
}

// Create posts actorID's review of bookID.
func (s *Service) Create(ctx context.Context, actorID, bookID string, in models.ReviewInput) (models.ReviewWithAuthor, error) {
	if !store.ValidID(bookID) {
		return models.ReviewWithAuthor{}, models.NotFound("book")
	}

	var out models.ReviewWithAuthor
	err := s.store.WithinTx(ctx, func(tx store.Repos) error {
		if _, err := tx.LockBook(ctx, bookID); err != nil {
			return err
		}
		if err := s.v.Review(&in); err != nil {
			return err
		}
		r := models.Review{
			BookID:     bookID,
			UserID:     actorID,
			Rating:     in.Rating,
			ReviewText: in.ReviewText,
			Images:     in.Images,
		}
		if err := tx.CreateReview(ctx, &r); err != nil {
			if errors.Is(err, models.ErrConflict) {
				return fmt.Errorf("you have already reviewed this book: %w", models.ErrConflict)
			}
			return err
		}
		if _, err := rating.Recompute(ctx, tx, bookID); err != nil {
			return err
		}
		var err error
		out, err = withAuthor(ctx, tx, r)
		return err
	})
	if err != nil {
		return models.ReviewWithAuthor{}, err
	}
	log.Printf("[reviews] created review=%s book=%s user=%s", out.ID, bookID, actorID)
	return out, nil
}

// Update merges patch over the actor's own review and recomputes its book.
func (s *Service) Update(ctx context.Context, actorID, reviewID string, patch models.ReviewPatch) (models.ReviewWithAuthor, error) {
	if !store.ValidID(reviewID) {
		return models.ReviewWithAuthor{}, models.NotFound("review")
	}

	var out models.ReviewWithAuthor
	err := s.store.WithinTx(ctx, func(tx store.Repos) error {
		r, err := s.loadOwned(ctx, tx, actorID, reviewID)
		if err != nil {
			return err
		}
		in := patch.Apply(r.Input())
		if err := s.v.Review(&in); err != nil {
			return err
		}
		r.Rating, r.ReviewText, r.Images = in.Rating, in.ReviewText, in.Images
		if err := tx.UpdateReview(ctx, &r); err != nil {
			return err
		}
		if _, err := rating.Recompute(ctx, tx, r.BookID); err != nil {
			return err
		}
		out, err = withAuthor(ctx, tx, r)
		return err
	})
	if err != nil {
		return models.ReviewWithAuthor{}, err
	}
	return out, nil
}

// Delete removes the actor's own review and recomputes the book it was on.
func (s *Service) Delete(ctx context.Context, actorID, reviewID string) error {
	if !store.ValidID(reviewID) {
		return models.NotFound("review")
	}
	err := s.store.WithinTx(ctx, func(tx store.Repos) error {
		r, err := s.loadOwned(ctx, tx, actorID, reviewID)
		if err != nil {
			return err
		}
		bookID := r.BookID
		if err := tx.DeleteReview(ctx, r.ID); err != nil {
			return err
		}
		_, err = rating.Recompute(ctx, tx, bookID)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("[reviews] deleted review=%s user=%s", reviewID, actorID)
	return nil
}

// loadOwned reads the review, checks ownership, then locks its book so the
// recompute that follows is serialized with other writers on that book.
func (s *Service) loadOwned(ctx context.Context, tx store.Repos, actorID, reviewID string) (models.Review, error) {
	r, err := tx.GetReview(ctx, reviewID)
	if err != nil {
		return models.Review{}, err
	}
	if err := authz.RequireOwner("review", r, authz.ReviewOwner, actorID); err != nil {
		return models.Review{}, err
	}
	if _, err := tx.LockBook(ctx, r.BookID); err != nil {
		return models.Review{}, err
	}
	// re-read under the lock; a concurrent delete may have won the race
	return tx.GetReview(ctx, reviewID)
}

func (s *Service) ListByBook(ctx context.Context, bookID string) ([]models.ReviewWithAuthor, error) {
	if !store.ValidID(bookID) {
		return []models.ReviewWithAuthor{}, nil
	}
	return s.store.ListReviewsByBook(ctx, bookID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.ReviewWithBook, error) {
	return s.store.ListReviewsByUser(ctx, userID)
}
