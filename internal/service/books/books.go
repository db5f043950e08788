// Package books owns the book lifecycle: owner-only mutation and cascading
// delete of a book's reviews.
package books

import (
	"context"
	"log"

	"github.com/5w1tchy/book-reviews/internal/authz"
	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store"
	"github.com/5w1tchy/book-reviews/internal/validate"
)

// Detail is a book with its reviews, newest first.
type Detail struct {
	Book    models.BookWithOwner      `json:"book"`
	Reviews []models.ReviewWithAuthor `json:"reviews"`
}

type Service struct {
	store store.Store
	v     *validate.Validator
}

func New(s store.Store, v *validate.Validator) *Service {
	return &Service{store: s, v: v}
}

// Create stores a new book owned by actorID with an empty aggregate.
func (s *Service) Create(ctx context.Context, actorID string, in models.BookInput) (models.Book, error) {
	if err := s.v.Book(&in); err != nil {
		return models.Book{}, err
	}
	b := models.Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Genre:       in.Genre,
		Year:        in.Year,
		ImageURL:    in.ImageURL,
		OwnerID:     actorID,
	}
	if err := s.store.CreateBook(ctx, &b); err != nil {
		return models.Book{}, err
	}
	log.Printf("[books] created book=%s owner=%s", b.ID, actorID)
	return b, nil
}

// Update applies patch to the actor's own book. Only client-settable fields
// can change; the aggregate is carried over.
func (s *Service) Update(ctx context.Context, actorID, bookID string, patch models.BookPatch) (models.Book, error) {
	if !store.ValidID(bookID) {
		return models.Book{}, models.NotFound("book")
	}
	var out models.Book
	err := s.store.WithinTx(ctx, func(tx store.Repos) error {
		b, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if err := authz.RequireOwner("book", b, authz.BookOwner, actorID); err != nil {
			return err
		}
		in := patch.Apply(b.Input())
		if err := s.v.Book(&in); err != nil {
			return err
		}
		b.Title, b.Author, b.Description = in.Title, in.Author, in.Description
		b.Genre, b.Year, b.ImageURL = in.Genre, in.Year, in.ImageURL
		if err := tx.UpdateBook(ctx, &b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// Delete removes the actor's own book and every review of it in one
// transaction. The aggregate is not recomputed since the book is gone.
func (s *Service) Delete(ctx context.Context, actorID, bookID string) error {
	if !store.ValidID(bookID) {
		return models.NotFound("book")
	}
	var removed int64
	err := s.store.WithinTx(ctx, func(tx store.Repos) error {
		b, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if err := authz.RequireOwner("book", b, authz.BookOwner, actorID); err != nil {
			return err
		}
		if removed, err = tx.DeleteReviewsByBook(ctx, bookID); err != nil {
			return err
		}
		return tx.DeleteBook(ctx, bookID)
	})
	if err != nil {
		return err
	}
	log.Printf("[books] deleted book=%s owner=%s reviews=%d", bookID, actorID, removed)
	return nil
}

// Get returns the book joined with its owner plus its reviews.
func (s *Service) Get(ctx context.Context, bookID string) (Detail, error) {
	if !store.ValidID(bookID) {
		return Detail{}, models.NotFound("book")
	}
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return Detail{}, err
	}
	reviews, err := s.store.ListReviewsByBook(ctx, bookID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Book: b, Reviews: reviews}, nil
}

// List runs a search/filter/sort/page query over all books.
func (s *Service) List(ctx context.Context, q models.BookQuery) (models.BookPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	items, total, err := s.store.ListBooks(ctx, q)
	if err != nil {
		return models.BookPage{}, err
	}
	return models.BookPage{
		Items: items,
		Total: total,
		Page:  q.Page,
		Pages: models.PageCount(total, q.PageSize),
	}, nil
}

// ListMine returns the books actorID owns, newest first.
func (s *Service) ListMine(ctx context.Context, actorID string) ([]models.Book, error) {
	return s.store.ListBooksByOwner(ctx, actorID)
}
