package reviews_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/service/reviews"
	"github.com/5w1tchy/book-reviews/internal/store/memstore"
	"github.com/5w1tchy/book-reviews/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *memstore.Store
	svc   *reviews.Service
	book  models.Book
	owner models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{store: st, svc: reviews.New(st, validate.New(nil))}
	f.owner = f.user(t, "owner")
	f.book = models.Book{Title: "B", Author: "A", Description: "d", Genre: "Fiction", Year: 2001, OwnerID: f.owner.ID}
	require.NoError(t, st.CreateBook(t.Context(), &f.book))
	return f
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.store.CreateUser(t.Context(), &u))
	return u
}

func (f *fixture) aggregate(t *testing.T) (float64, int) {
	t.Helper()
	b, err := f.store.GetBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	return b.AverageRating, b.TotalReviews
}

func review(rating int) models.ReviewInput {
	return models.ReviewInput{Rating: rating, ReviewText: "thoughts"}
}

func TestScenarioA_AggregateFollowsReviewSet(t *testing.T) {
	f := setup(t)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")

	avg, n := f.aggregate(t)
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, n)

	r1, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, review(4))
	require.NoError(t, err)
	avg, n = f.aggregate(t)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 1, n)

	_, err = f.svc.Create(t.Context(), u2.ID, f.book.ID, review(5))
	require.NoError(t, err)
	avg, n = f.aggregate(t)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 2, n)

	require.NoError(t, f.svc.Delete(t.Context(), u1.ID, r1.ID))
	avg, n = f.aggregate(t)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, n)
}

func TestScenarioB_SecondReviewIsConflict(t *testing.T) {
	f := setup(t)
	u1 := f.user(t, "u1")

	first, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, review(3))
	require.NoError(t, err)

	_, err = f.svc.Create(t.Context(), u1.ID, f.book.ID, review(5))
	require.ErrorIs(t, err, models.ErrConflict)
	assert.Contains(t, err.Error(), "already reviewed")

	avg, n := f.aggregate(t)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3.0, avg)

	got, err := f.store.GetReview(t.Context(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rating)
}

func TestCreate_ReturnsAuthor(t *testing.T) {
	f := setup(t)
	u1 := f.user(t, "u1")

	r, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, models.ReviewInput{
		Rating: 5, ReviewText: "  great  ", Images: []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "great", r.ReviewText)
	assert.Equal(t, models.UserSummary{ID: u1.ID, Name: "u1", Email: "u1@example.com"}, r.User)
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, r.Images)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t)
	u1 := f.user(t, "u1")

	cases := map[string]models.ReviewInput{
		"rating low":   {Rating: 0, ReviewText: "x"},
		"rating high":  {Rating: 6, ReviewText: "x"},
		"empty text":   {Rating: 3, ReviewText: "   "},
		"long text":    {Rating: 3, ReviewText: strings.Repeat("x", models.MaxReviewText+1)},
		"too many":     {Rating: 3, ReviewText: "x", Images: []string{"https://a/1", "https://a/2", "https://a/3", "https://a/4", "https://a/5", "https://a/6"}},
		"not a url":    {Rating: 3, ReviewText: "x", Images: []string{"nope"}},
		"wrong scheme": {Rating: 3, ReviewText: "x", Images: []string{"ftp://a/1.png"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, in)
			require.ErrorIs(t, err, models.ErrValidation)
		})
	}
	_, n := f.aggregate(t)
	assert.Zero(t, n)
}

func TestCreate_MissingBookIsNotFound(t *testing.T) {
	f := setup(t)
	u1 := f.user(t, "u1")

	_, err := f.svc.Create(t.Context(), u1.ID, "0190f000-0000-7000-8000-000000000000", review(3))
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Create(t.Context(), u1.ID, "garbage", review(3))
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdate_RecomputesAndMerges(t *testing.T) {
	f := setup(t)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	r1, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, review(2))
	require.NoError(t, err)
	_, err = f.svc.Create(t.Context(), u2.ID, f.book.ID, review(5))
	require.NoError(t, err)

	rating := 4
	got, err := f.svc.Update(t.Context(), u1.ID, r1.ID, models.ReviewPatch{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "thoughts", got.ReviewText, "unpatched fields are kept")

	avg, n := f.aggregate(t)
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 2, n)
}

func TestUpdate_InvalidPatchLeavesReview(t *testing.T) {
	f := setup(t)
	u1 := f.user(t, "u1")
	r1, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, review(2))
	require.NoError(t, err)

	bad := 9
	_, err = f.svc.Update(t.Context(), u1.ID, r1.ID, models.ReviewPatch{Rating: &bad})
	require.ErrorIs(t, err, models.ErrValidation)

	got, err := f.store.GetReview(t.Context(), r1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating)
}

func TestOwnership_NonOwnerIsForbidden(t *testing.T) {
	f := setup(t)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	r1, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, review(4))
	require.NoError(t, err)

	text := "hijacked"
	_, err = f.svc.Update(t.Context(), u2.ID, r1.ID, models.ReviewPatch{ReviewText: &text})
	require.ErrorIs(t, err, models.ErrForbidden)
	require.ErrorIs(t, f.svc.Delete(t.Context(), u2.ID, r1.ID), models.ErrForbidden)

	got, err := f.store.GetReview(t.Context(), r1.ID)
	require.NoError(t, err)
	assert.Equal(t, "thoughts", got.ReviewText)
	_, n := f.aggregate(t)
	assert.Equal(t, 1, n)
}

func TestDelete_MissingIsNotFound(t *testing.T) {
	f := setup(t)
	err := f.svc.Delete(t.Context(), f.owner.ID, "0190f000-0000-7000-8000-000000000000")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestListByUser_JoinsBook(t *testing.T) {
	f := setup(t)
	u1 := f.user(t, "u1")
	_, err := f.svc.Create(t.Context(), u1.ID, f.book.ID, review(4))
	require.NoError(t, err)

	mine, err := f.svc.ListByUser(t.Context(), u1.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.BookSummary{ID: f.book.ID, Title: "B", Author: "A"}, mine[0].Book)
}

// Concurrent writers on one book must leave the aggregate matching the final review set.
func TestConcurrentCreates_AggregateIsExact(t *testing.T) {
	f := setup(t)
	const writers = 20

	users := make([]models.User, writers)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("w%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(t.Context(), u.ID, f.book.ID, review(i%5+1))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	avg, n := f.aggregate(t)
	assert.Equal(t, writers, n)
	assert.Equal(t, 3.0, avg)
}

func TestListByBook_NewestFirst(t *testing.T) {
	f := setup(t)
	var ids []string
	for i := range 3 {
		u := f.user(t, fmt.Sprintf("r%d", i))
		r, err := f.svc.Create(t.Context(), u.ID, f.book.ID, review(3))
		require.NoError(t, err)
		ids = append(ids, r.ID)
		time.Sleep(time.Millisecond)
	}

	got, err := f.svc.ListByBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[0], got[2].ID)
}
