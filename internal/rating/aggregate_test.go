package rating_test

import (
	"context"
	"errors"
	"testing"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name    string
		ratings []int
		avg     float64
		total   int
	}{
		{"empty", nil, 0, 0},
		{"single", []int{4}, 4, 1},
		{"two even", []int{4, 4}, 4, 2},
		{"half rounds up", []int{4, 5}, 4.5, 2},
		{"thirds", []int{5, 4, 4}, 4.3, 3},
		{"two thirds", []int{5, 5, 4}, 4.7, 3},
		{"quarter half-up", []int{5, 4, 4, 4}, 4.3, 4},
		{"one and two", []int{1, 2}, 1.5, 2},
		{"all ones", []int{1, 1, 1}, 1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rating.Compute(tc.ratings)
			assert.Equal(t, tc.avg, got.AverageRating)
			assert.Equal(t, tc.total, got.TotalReviews)
		})
	}
}

type fakeStore struct {
	ratings []int
	loadErr error
	setErr  error
	set     []models.Aggregate
}

func (f *fakeStore) RatingsForBook(context.Context, string) ([]int, error) {
	return f.ratings, f.loadErr
}

func (f *fakeStore) SetBookAggregate(_ context.Context, _ string, agg models.Aggregate) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.set = append(f.set, agg)
	return nil
}

func TestRecompute_IsIdempotent(t *testing.T) {
	s := &fakeStore{ratings: []int{3, 4, 5}}

	first, err := rating.Recompute(t.Context(), s, "b1")
	require.NoError(t, err)
	second, err := rating.Recompute(t.Context(), s, "b1")
	require.NoError(t, err)

	assert.Equal(t, models.Aggregate{AverageRating: 4, TotalReviews: 3}, first)
	assert.Equal(t, first, second)
	assert.Len(t, s.set, 2)
}

func TestRecompute_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := rating.Recompute(t.Context(), &fakeStore{loadErr: boom}, "b1")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load ratings")

	_, err = rating.Recompute(t.Context(), &fakeStore{ratings: []int{5}, setErr: boom}, "b1")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "store aggregate")
}
