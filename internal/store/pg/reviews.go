package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store/dbx"
)

const reviewCols = `r.id, r.book_id, r.user_id, r.rating, r.review_text, r.images, r.created_at, r.updated_at`

func scanReview(sc rowScanner, r *models.Review, extra ...any) error {
	var imagesJSON []byte
	dest := []any{&r.ID, &r.BookID, &r.UserID, &r.Rating, &r.ReviewText, &imagesJSON, &r.CreatedAt, &r.UpdatedAt}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	r.Images = []string{}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &r.Images); err != nil {
			return fmt.Errorf("decode images: %w", err)
		}
	}
	return nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	return string(b), err
}

// CreateReview relies on reviews_book_id_user_id_key for the one-review-per-user-per-book rule.
func (s *Store) CreateReview(ctx context.Context, r *models.Review) error {
	if r.ID == "" {
		r.ID = s.newID()
	}
	images, err := encodeImages(r.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	err = s.q.QueryRowContext(ctx, `
        INSERT INTO reviews (id, book_id, user_id, rating, review_text, images)
        VALUES ($1, $2, $3, $4, $5, $6::jsonb)
        RETURNING created_at, updated_at
    `, r.ID, r.BookID, r.UserID, r.Rating, r.ReviewText, images).Scan(&r.CreatedAt, &r.UpdatedAt)
	return dbx.MapPGError(err, "create review")
}

func (s *Store) GetReview(ctx context.Context, id string) (models.Review, error) {
	var r models.Review
	row := s.q.QueryRowContext(ctx, `SELECT `+reviewCols+`
FROM reviews r
WHERE r.id = $1`, id)
	if err := scanReview(row, &r); err != nil {
		return models.Review{}, noRows(err, "review")
	}
	return r, nil
}

func (s *Store) UpdateReview(ctx context.Context, r *models.Review) error {
	images, err := encodeImages(r.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	err = s.q.QueryRowContext(ctx, `
        UPDATE reviews
        SET rating = $1, review_text = $2, images = $3::jsonb, updated_at = now()
        WHERE id = $4
        RETURNING updated_at
    `, r.Rating, r.ReviewText, images, r.ID).Scan(&r.UpdatedAt)
	if err != nil {
		return noRows(err, "review")
	}
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return dbx.MapPGError(err, "delete review")
	}
	return expectOne(res, "review")
}

func (s *Store) DeleteReviewsByBook(ctx context.Context, bookID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return 0, dbx.MapPGError(err, "delete reviews by book")
	}
	n, err := res.RowsAffected()
	return n, dbx.MapPGError(err, "delete reviews by book")
}

func (s *Store) RatingsForBook(ctx context.Context, bookID string) ([]int, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT rating FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return nil, dbx.MapPGError(err, "ratings for book")
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, dbx.MapPGError(err, "scan rating")
		}
		out = append(out, n)
	}
	return out, dbx.MapPGError(rows.Err(), "ratings for book")
}

func (s *Store) ListReviewsByBook(ctx context.Context, bookID string) ([]models.ReviewWithAuthor, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+reviewCols+`, u.id, u.name, u.email
FROM reviews r
JOIN users u ON u.id = r.user_id
WHERE r.book_id = $1
ORDER BY r.created_at DESC, r.id DESC`, bookID)
	if err != nil {
		return nil, dbx.MapPGError(err, "list reviews by book")
	}
	defer rows.Close()

	out := []models.ReviewWithAuthor{}
	for rows.Next() {
		var ra models.ReviewWithAuthor
		if err := scanReview(rows, &ra.Review, &ra.User.ID, &ra.User.Name, &ra.User.Email); err != nil {
			return nil, dbx.MapPGError(err, "scan review")
		}
		out = append(out, ra)
	}
	return out, dbx.MapPGError(rows.Err(), "list reviews by book")
}

func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]models.ReviewWithBook, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+reviewCols+`, b.id, b.title, b.author, b.image_url
FROM reviews r
JOIN books b ON b.id = r.book_id
WHERE r.user_id = $1
ORDER BY r.created_at DESC, r.id DESC`, userID)
	if err != nil {
		return nil, dbx.MapPGError(err, "list reviews by user")
	}
	defer rows.Close()

	out := []models.ReviewWithBook{}
	for rows.Next() {
		var rb models.ReviewWithBook
		if err := scanReview(rows, &rb.Review, &rb.Book.ID, &rb.Book.Title, &rb.Book.Author, &rb.Book.ImageURL); err != nil {
			return nil, dbx.MapPGError(err, "scan review")
		}
		out = append(out, rb)
	}
	return out, dbx.MapPGError(rows.Err(), "list reviews by user")
}
