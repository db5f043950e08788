package memstore

import (
	"context"

	"github.com/5w1tchy/book-reviews/internal/models"
)

// Outside WithinTx every call takes the lock for its own duration.

func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().CreateBook(ctx, b)
}

func (s *Store) GetBook(ctx context.Context, id string) (models.BookWithOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetBook(ctx, id)
}

func (s *Store) LockBook(ctx context.Context, id string) (models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().LockBook(ctx, id)
}

func (s *Store) UpdateBook(ctx context.Context, b *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().UpdateBook(ctx, b)
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().DeleteBook(ctx, id)
}

func (s *Store) ListBooks(ctx context.Context, q models.BookQuery) ([]models.BookWithOwner, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListBooks(ctx, q)
}

func (s *Store) ListBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListBooksByOwner(ctx, ownerID)
}

func (s *Store) SetBookAggregate(ctx context.Context, bookID string, agg models.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().SetBookAggregate(ctx, bookID, agg)
}

func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().CreateReview(ctx, r)
}

func (s *Store) GetReview(ctx context.Context, id string) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetReview(ctx, id)
}

func (s *Store) UpdateReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().UpdateReview(ctx, r)
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().DeleteReview(ctx, id)
}

func (s *Store) DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().DeleteReviewsByBook(ctx, bookID)
}

func (s *Store) RatingsForBook(ctx context.Context, bookID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().RatingsForBook(ctx, bookID)
}

func (s *Store) ListReviewsByBook(ctx context.Context, bookID string) ([]models.ReviewWithAuthor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListReviewsByBook(ctx, bookID)
}

func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]models.ReviewWithBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListReviewsByUser(ctx, userID)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().CreateUser(ctx, u)
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetUser(ctx, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().FindUserByEmail(ctx, email)
}

func (s *Store) UpdateUserPasswordHash(ctx context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().UpdateUserPasswordHash(ctx, userID, hash)
}

func (s *Store) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().BumpTokenVersion(ctx, userID)
}

func (s *Store) TokenVersion(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().TokenVersion(ctx, userID)
}
