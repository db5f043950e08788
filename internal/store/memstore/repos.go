package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/5w1tchy/book-reviews/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// repos operates on a state without locking. The caller holds Store.mu.
type repos struct {
	st    *state
	now   func() time.Time
	newID func() string
}

func (r *repos) stamp() time.Time { return r.now().UTC() }

func (r *repos) owner(id string) models.UserSummary {
	if u, ok := r.st.users[id]; ok {
		return u.Summary()
	}
	return models.UserSummary{ID: id}
}

// newestFirst orders by createdAt desc, then id desc.
func newestFirst(aAt, bAt time.Time, aID, bID string) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	return strings.Compare(bID, aID)
}

// ---- books ----

func (r *repos) CreateBook(_ context.Context, b *models.Book) error {
	if _, ok := r.st.users[b.OwnerID]; !ok {
		return models.NotFound("user")
	}
	if b.ID == "" {
		b.ID = r.newID()
	}
	if _, ok := r.st.books[b.ID]; ok {
		return models.ErrConflict
	}
	now := r.stamp()
	b.AverageRating, b.TotalReviews = 0, 0
	b.CreatedAt, b.UpdatedAt = now, now
	r.st.books[b.ID] = *b
	return nil
}

func (r *repos) GetBook(_ context.Context, id string) (models.BookWithOwner, error) {
	b, ok := r.st.books[id]
	if !ok {
		return models.BookWithOwner{}, models.NotFound("book")
	}
	return models.BookWithOwner{Book: b, Owner: r.owner(b.OwnerID)}, nil
}

// LockBook is a plain read; the store mutex already serializes writers.
func (r *repos) LockBook(_ context.Context, id string) (models.Book, error) {
	b, ok := r.st.books[id]
	if !ok {
		return models.Book{}, models.NotFound("book")
	}
	return b, nil
}

func (r *repos) UpdateBook(_ context.Context, b *models.Book) error {
	cur, ok := r.st.books[b.ID]
	if !ok {
		return models.NotFound("book")
	}
	cur.Title, cur.Author, cur.Description = b.Title, b.Author, b.Description
	cur.Genre, cur.Year, cur.ImageURL = b.Genre, b.Year, b.ImageURL
	cur.UpdatedAt = r.stamp()
	r.st.books[b.ID] = cur
	b.UpdatedAt = cur.UpdatedAt
	return nil
}

// DeleteBook removes the book and, like ON DELETE CASCADE, its reviews.
func (r *repos) DeleteBook(ctx context.Context, id string) error {
	if _, ok := r.st.books[id]; !ok {
		return models.NotFound("book")
	}
	if _, err := r.DeleteReviewsByBook(ctx, id); err != nil {
		return err
	}
	delete(r.st.books, id)
	return nil
}

func (r *repos) SetBookAggregate(_ context.Context, bookID string, agg models.Aggregate) error {
	b, ok := r.st.books[bookID]
	if !ok {
		return models.NotFound("book")
	}
	b.AverageRating, b.TotalReviews = agg.AverageRating, agg.TotalReviews
	r.st.books[bookID] = b
	return nil
}

func (r *repos) ListBooksByOwner(_ context.Context, ownerID string) ([]models.Book, error) {
	out := []models.Book{}
	for _, b := range r.st.books {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.Book) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out, nil
}

var (
	fold      = cases.Fold()
	titleColl = collate.New(language.Und, collate.IgnoreCase)
)

func bookLess(sort string) func(a, b models.Book) int {
	tie := func(a, b models.Book) int { return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) }
	switch sort {
	case models.SortYear:
		return func(a, b models.Book) int {
			if a.Year != b.Year {
				return b.Year - a.Year
			}
			return tie(a, b)
		}
	case models.SortRating:
		return func(a, b models.Book) int {
			if a.AverageRating != b.AverageRating {
				if a.AverageRating > b.AverageRating {
					return -1
				}
				return 1
			}
			return tie(a, b)
		}
	case models.SortTitle:
		return func(a, b models.Book) int {
			if c := titleColl.CompareString(a.Title, b.Title); c != 0 {
				return c
			}
			return tie(a, b)
		}
	default:
		return tie
	}
}

func (r *repos) ListBooks(_ context.Context, q models.BookQuery) ([]models.BookWithOwner, int, error) {
	term := fold.String(strings.TrimSpace(q.Search))

	matched := []models.Book{}
	for _, b := range r.st.books {
		if q.Genre != "" && b.Genre != q.Genre {
			continue
		}
		if term != "" &&
			!strings.Contains(fold.String(b.Title), term) &&
			!strings.Contains(fold.String(b.Author), term) {
			continue
		}
		matched = append(matched, b)
	}
	slices.SortFunc(matched, bookLess(q.Sort))

	total := len(matched)
	start := min(q.Offset(), total)
	end := total
	if q.PageSize > 0 {
		end = min(start+q.PageSize, total)
	}

	out := make([]models.BookWithOwner, 0, end-start)
	for _, b := range matched[start:end] {
		out = append(out, models.BookWithOwner{Book: b, Owner: r.owner(b.OwnerID)})
	}
	return out, total, nil
}

// ---- reviews ----

func (r *repos) CreateReview(_ context.Context, rv *models.Review) error {
	if _, ok := r.st.books[rv.BookID]; !ok {
		return models.NotFound("book")
	}
	if _, ok := r.st.users[rv.UserID]; !ok {
		return models.NotFound("user")
	}
	key := pairKey{rv.BookID, rv.UserID}
	if _, taken := r.st.byPair[key]; taken {
		return models.ErrConflict
	}
	if rv.ID == "" {
		rv.ID = r.newID()
	}
	now := r.stamp()
	rv.CreatedAt, rv.UpdatedAt = now, now
	rv.Images = cloneImages(rv.Images)

	r.st.reviews[rv.ID] = *rv
	r.st.byPair[key] = rv.ID
	return nil
}

func cloneImages(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}

func (r *repos) GetReview(_ context.Context, id string) (models.Review, error) {
	rv, ok := r.st.reviews[id]
	if !ok {
		return models.Review{}, models.NotFound("review")
	}
	rv.Images = slices.Clone(rv.Images)
	return rv, nil
}

func (r *repos) UpdateReview(_ context.Context, rv *models.Review) error {
	cur, ok := r.st.reviews[rv.ID]
	if !ok {
		return models.NotFound("review")
	}
	cur.Rating, cur.ReviewText, cur.Images = rv.Rating, rv.ReviewText, cloneImages(rv.Images)
	cur.UpdatedAt = r.stamp()
	r.st.reviews[rv.ID] = cur
	rv.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *repos) DeleteReview(_ context.Context, id string) error {
	rv, ok := r.st.reviews[id]
	if !ok {
		return models.NotFound("review")
	}
	delete(r.st.reviews, id)
	delete(r.st.byPair, pairKey{rv.BookID, rv.UserID})
	return nil
}

func (r *repos) DeleteReviewsByBook(_ context.Context, bookID string) (int64, error) {
	var n int64
	for id, rv := range r.st.reviews {
		if rv.BookID != bookID {
			continue
		}
		delete(r.st.reviews, id)
		delete(r.st.byPair, pairKey{rv.BookID, rv.UserID})
		n++
	}
	return n, nil
}

func (r *repos) RatingsForBook(_ context.Context, bookID string) ([]int, error) {
	out := []int{}
	for _, rv := range r.st.reviews {
		if rv.BookID == bookID {
			out = append(out, rv.Rating)
		}
	}
	return out, nil
}

func (r *repos) ListReviewsByBook(_ context.Context, bookID string) ([]models.ReviewWithAuthor, error) {
	out := []models.ReviewWithAuthor{}
	for _, rv := range r.st.reviews {
		if rv.BookID == bookID {
			rv.Images = slices.Clone(rv.Images)
			out = append(out, models.ReviewWithAuthor{Review: rv, User: r.owner(rv.UserID)})
		}
	}
	slices.SortFunc(out, func(a, b models.ReviewWithAuthor) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out, nil
}

func (r *repos) ListReviewsByUser(_ context.Context, userID string) ([]models.ReviewWithBook, error) {
	out := []models.ReviewWithBook{}
	for _, rv := range r.st.reviews {
		if rv.UserID != userID {
			continue
		}
		b, ok := r.st.books[rv.BookID]
		if !ok {
			continue
		}
		rv.Images = slices.Clone(rv.Images)
		out = append(out, models.ReviewWithBook{
			Review: rv,
			Book:   models.BookSummary{ID: b.ID, Title: b.Title, Author: b.Author, ImageURL: b.ImageURL},
		})
	}
	slices.SortFunc(out, func(a, b models.ReviewWithBook) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return out, nil
}

// ---- users ----

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (r *repos) CreateUser(_ context.Context, u *models.User) error {
	u.Email = normEmail(u.Email)
	if _, taken := r.st.byEmail[u.Email]; taken {
		return models.ErrConflict
	}
	if u.ID == "" {
		u.ID = r.newID()
	}
	now := r.stamp()
	u.TokenVersion = 1
	u.CreatedAt, u.UpdatedAt = now, now
	r.st.users[u.ID] = *u
	r.st.byEmail[u.Email] = u.ID
	return nil
}

func (r *repos) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return models.User{}, models.NotFound("user")
	}
	return u, nil
}

func (r *repos) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	id, ok := r.st.byEmail[normEmail(email)]
	if !ok {
		return models.User{}, models.NotFound("user")
	}
	return r.GetUser(ctx, id)
}

func (r *repos) UpdateUserPasswordHash(_ context.Context, userID, hash string) error {
	u, ok := r.st.users[userID]
	if !ok {
		return models.NotFound("user")
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.stamp()
	r.st.users[userID] = u
	return nil
}

func (r *repos) BumpTokenVersion(_ context.Context, userID string) (int, error) {
	u, ok := r.st.users[userID]
	if !ok {
		return 0, models.NotFound("user")
	}
	u.TokenVersion++
	u.UpdatedAt = r.stamp()
	r.st.users[userID] = u
	return u.TokenVersion, nil
}

func (r *repos) TokenVersion(_ context.Context, userID string) (int, error) {
	u, ok := r.st.users[userID]
	if !ok {
		return 0, models.NotFound("user")
	}
	return u.TokenVersion, nil
}
