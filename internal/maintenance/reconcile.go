// Package maintenance runs background upkeep jobs.
package maintenance

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/rating"
	"github.com/5w1tchy/book-reviews/internal/store"
)

const pageSize = 100

// StartAggregateReconcile runs ReconcileAggregates daily at localTime
// ("HH:MM") in tzName until ctx is done.
// Call once at startup: maintenance.StartAggregateReconcile(ctx, st, "03:00", "UTC")
func StartAggregateReconcile(ctx context.Context, st store.Store, localTime, tzName string) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
	}
	h, m := parseClock(localTime)

	go func() {
		for {
			now := time.Now().In(loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, loc)
			if !next.After(now) {
				next = next.Add(24 * time.Hour)
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				checked, fixed, err := ReconcileAggregates(ctx, st)
				if err != nil {
					log.Printf("[reconcile] stopped after %d books: %v", checked, err)
					continue
				}
				log.Printf("[reconcile] checked %d books, repaired %d aggregates", checked, fixed)
			}
		}
	}()
}

// ReconcileAggregates recomputes every book's rating aggregate from its
// reviews, each under the same book lock review writes take. It returns how
// many books were checked and how many stored aggregates had drifted.
func ReconcileAggregates(ctx context.Context, st store.Store) (checked, fixed int, err error) {
	for page := 1; ; page++ {
		items, total, err := st.ListBooks(ctx, models.BookQuery{Sort: models.SortNewest, Page: page, PageSize: pageSize})
		if err != nil {
			return checked, fixed, err
		}
		for _, b := range items {
			if err := ctx.Err(); err != nil {
				return checked, fixed, err
			}
			err := st.WithinTx(ctx, func(tx store.Repos) error {
				cur, err := tx.LockBook(ctx, b.ID)
				if err != nil {
					return err
				}
				agg, err := rating.Recompute(ctx, tx, b.ID)
				if err != nil {
					return err
				}
				if agg.AverageRating != cur.AverageRating || agg.TotalReviews != cur.TotalReviews {
					fixed++
				}
				return nil
			})
			switch {
			case err == nil:
				checked++
			case errors.Is(err, models.ErrNotFound):
				// deleted since the page was read
			default:
				return checked, fixed, err
			}
		}
		if page*pageSize >= total || len(items) == 0 {
			return checked, fixed, nil
		}
	}
}

func parseClock(s string) (int, int) {
	h, m := 3, 0
	if parts := strings.Split(s, ":"); len(parts) == 2 {
		if v, err := strconv.Atoi(parts[0]); err == nil && v >= 0 && v < 24 {
			h = v
		}
		if v, err := strconv.Atoi(parts[1]); err == nil && v >= 0 && v < 60 {
			m = v
		}
	}
	return h, m
}
