package pg_test

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/rating"
	"github.com/5w1tchy/book-reviews/internal/store"
	"github.com/5w1tchy/book-reviews/internal/store/pg"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*pg.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return pg.New(db), mock
}

var (
	bookColumns   = []string{"id", "title", "author", "description", "genre", "year", "image_url", "owner_id", "average_rating", "total_reviews", "created_at", "updated_at"}
	reviewColumns = []string{"id", "book_id", "user_id", "rating", "review_text", "images", "created_at", "updated_at"}
	stamp         = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func TestCreateReview_DuplicatePairIsConflict(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reviews (id, book_id, user_id, rating, review_text, images)`)).
		WithArgs(sqlmock.AnyArg(), "b1", "u1", 4, "good", "[]").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_book_id_user_id_key"})

	err := s.CreateReview(t.Context(), &models.Review{BookID: "b1", UserID: "u1", Rating: 4, ReviewText: "good"})
	require.ErrorIs(t, err, models.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReview_MissingBookIsNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reviews`)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "reviews_book_id_fkey"})

	err := s.CreateReview(t.Context(), &models.Review{BookID: "gone", UserID: "u1", Rating: 4, ReviewText: "x"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateReview_EncodesImages(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reviews`)).
		WithArgs(sqlmock.AnyArg(), "b1", "u1", 5, "nice", `["https://img/a.png"]`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))

	r := &models.Review{BookID: "b1", UserID: "u1", Rating: 5, ReviewText: "nice", Images: []string{"https://img/a.png"}}
	require.NoError(t, s.CreateReview(t.Context(), r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, stamp, r.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReview_DecodesImages(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reviews r`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow("r1", "b1", "u1", 3, "ok", []byte(`["https://img/a.png","https://img/b.png"]`), stamp, stamp))

	r, err := s.GetReview(t.Context(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/a.png", "https://img/b.png"}, r.Images)
	assert.Equal(t, 3, r.Rating)
}

func TestGetReview_NotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reviews r`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetReview(t.Context(), "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "review")
}

func TestDeleteReview_ZeroRowsIsNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reviews WHERE id = $1`)).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, s.DeleteReview(t.Context(), "r1"), models.ErrNotFound)
}

func TestDeleteReviewsByBook(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reviews WHERE book_id = $1`)).
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeleteReviewsByBook(t.Context(), "b1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestListReviewsByBook_NewestFirst(t *testing.T) {
	s, mock := newMock(t)

	cols := append(append([]string{}, reviewColumns...), "uid", "name", "email")
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY r.created_at DESC, r.id DESC`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r2", "b1", "u2", 5, "newer", []byte(`[]`), stamp.Add(time.Hour), stamp, "u2", "Bea", "bea@example.com").
			AddRow("r1", "b1", "u1", 4, "older", []byte(`[]`), stamp, stamp, "u1", "Al", "al@example.com"))

	got, err := s.ListReviewsByBook(t.Context(), "b1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, "Bea", got[0].User.Name)
	assert.Equal(t, []string{}, got[1].Images)
}

func TestListBooks_BuildsFilteredPagedQuery(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs(`50\%`, "Fiction").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	cols := append(append([]string{}, bookColumns...), "uid", "name", "email")
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY lower(b.title) ASC, b.created_at DESC, b.id DESC
LIMIT $3 OFFSET $4`)).
		WithArgs(`50\%`, "Fiction", 5, 5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b6", "50% Off", "Ann", "d", "Fiction", 2001, "", "u1", 4.5, 2, stamp, stamp, "u1", "Ann", "ann@example.com"))

	items, total, err := s.ListBooks(t.Context(), models.BookQuery{
		Search: " 50% ", Genre: "Fiction", Sort: models.SortTitle, Page: 2, PageSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, items, 1)
	assert.Equal(t, 4.5, items[0].AverageRating)
	assert.Equal(t, "ann@example.com", items[0].Owner.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBooks_UnknownSortFallsBackToNewest(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY b.created_at DESC, b.id DESC
LIMIT $1 OFFSET $2`)).
		WithArgs(5, 0).
		WillReturnRows(sqlmock.NewRows(bookColumns))

	items, total, err := s.ListBooks(t.Context(), models.BookQuery{Sort: "bogus", Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A review write, its recompute and the book lock share one transaction.
func TestWithinTx_ReviewMutationLocksAndRecomputes(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookColumns).
			AddRow("b1", "T", "A", "D", "Fiction", 2000, "", "owner", 0.0, 0, stamp, stamp))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reviews`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT rating FROM reviews WHERE book_id = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(4).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE books SET average_rating = $1, total_reviews = $2 WHERE id = $3`)).
		WithArgs(4.5, 2, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithinTx(t.Context(), func(tx store.Repos) error {
		if _, err := tx.LockBook(t.Context(), "b1"); err != nil {
			return err
		}
		if err := tx.CreateReview(t.Context(), &models.Review{BookID: "b1", UserID: "u1", Rating: 5, ReviewText: "x"}); err != nil {
			return err
		}
		_, err := rating.Recompute(t.Context(), tx, "b1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_AggregateFailureRollsBack(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT rating FROM reviews`)).
		WillReturnRows(sqlmock.NewRows([]string{"rating"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE books SET average_rating`)).
		WillReturnError(boom)
	mock.ExpectRollback()

	err := s.WithinTx(t.Context(), func(tx store.Repos) error {
		_, err := rating.Recompute(t.Context(), tx, "b1")
		return err
	})
	require.ErrorIs(t, err, models.ErrStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_TakenEmailIsConflict(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, name, email, password_hash)`)).
		WithArgs(sqlmock.AnyArg(), "Al", "al@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := s.CreateUser(t.Context(), &models.User{Name: "Al", Email: " AL@example.com ", PasswordHash: "hash"})
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestBumpTokenVersion(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SET token_version = token_version + 1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(3))

	v, err := s.BumpTokenVersion(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM books b`)).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	_, err := s.GetBook(t.Context(), "not-a-uuid")
	require.ErrorIs(t, err, models.ErrNotFound)
}
