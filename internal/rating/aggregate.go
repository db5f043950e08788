// Package rating keeps a book's derived averageRating/totalReviews in step
// with its review set by full recomputation.
package rating

import (
	"context"
	"fmt"

	"github.com/5w1tchy/book-reviews/internal/models"
)

// Store is the slice of the entity store the aggregator needs. Callers pass
// the transaction-scoped repos so the recompute commits with the review write.
type Store interface {
	RatingsForBook(ctx context.Context, bookID string) ([]int, error)
	SetBookAggregate(ctx context.Context, bookID string, agg models.Aggregate) error
}

// Compute derives the aggregate of ratings. The mean is rounded half-up to
// one decimal using integer arithmetic, so 4.25 becomes 4.3 exactly.
func Compute(ratings []int) models.Aggregate {
	n := len(ratings)
	if n == 0 {
		return models.Aggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	// tenths = round(sum*10/n), half-up for non-negative sums
	tenths := (sum*20 + n) / (2 * n)
	return models.Aggregate{
		AverageRating: float64(tenths) / 10,
		TotalReviews:  n,
	}
}

// Recompute reads every rating for bookID and writes the aggregate back.
// Any error must fail the review mutation that triggered it.
func Recompute(ctx context.Context, s Store, bookID string) (models.Aggregate, error) {
	ratings, err := s.RatingsForBook(ctx, bookID)
	if err != nil {
		return models.Aggregate{}, fmt.Errorf("load ratings: %w", err)
	}
	agg := Compute(ratings)
	if err := s.SetBookAggregate(ctx, bookID, agg); err != nil {
		return models.Aggregate{}, fmt.Errorf("store aggregate: %w", err)
	}
	return agg, nil
}
