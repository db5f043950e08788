package pg

import (
	"context"
	"strconv"
	"strings"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store/dbx"
)

const bookCols = `b.id, b.title, b.author, b.description, b.genre, b.year, b.image_url, b.owner_id,
  b.average_rating, b.total_reviews, b.created_at, b.updated_at`

const ownerCols = `u.id, u.name, u.email`

func scanBook(sc rowScanner, b *models.Book, extra ...any) error {
	dest := []any{
		&b.ID, &b.Title, &b.Author, &b.Description, &b.Genre, &b.Year, &b.ImageURL, &b.OwnerID,
		&b.AverageRating, &b.TotalReviews, &b.CreatedAt, &b.UpdatedAt,
	}
	return sc.Scan(append(dest, extra...)...)
}

func scanBookWithOwner(sc rowScanner) (models.BookWithOwner, error) {
	var bo models.BookWithOwner
	err := scanBook(sc, &bo.Book, &bo.Owner.ID, &bo.Owner.Name, &bo.Owner.Email)
	return bo, err
}

// CreateBook inserts b with a zero aggregate and fills in ID and timestamps.
func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	if b.ID == "" {
		b.ID = s.newID()
	}
	b.AverageRating, b.TotalReviews = 0, 0
	err := s.q.QueryRowContext(ctx, `
        INSERT INTO books (id, title, author, description, genre, year, image_url, owner_id, average_rating, total_reviews)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0)
        RETURNING created_at, updated_at
    `, b.ID, b.Title, b.Author, b.Description, b.Genre, b.Year, b.ImageURL, b.OwnerID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	return dbx.MapPGError(err, "create book")
}

func (s *Store) GetBook(ctx context.Context, id string) (models.BookWithOwner, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+bookCols+`, `+ownerCols+`
FROM books b
JOIN users u ON u.id = b.owner_id
WHERE b.id = $1`, id)
	bo, err := scanBookWithOwner(row)
	if err != nil {
		return models.BookWithOwner{}, noRows(err, "book")
	}
	return bo, nil
}

// LockBook takes a row lock that lasts until the surrounding transaction ends.
func (s *Store) LockBook(ctx context.Context, id string) (models.Book, error) {
	var b models.Book
	row := s.q.QueryRowContext(ctx, `SELECT `+bookCols+`
FROM books b
WHERE b.id = $1
FOR UPDATE`, id)
	if err := scanBook(row, &b); err != nil {
		return models.Book{}, noRows(err, "book")
	}
	return b, nil
}

// UpdateBook writes the client-settable fields of b. The aggregate is untouched.
func (s *Store) UpdateBook(ctx context.Context, b *models.Book) error {
	err := s.q.QueryRowContext(ctx, `
        UPDATE books
        SET title = $1, author = $2, description = $3, genre = $4, year = $5, image_url = $6, updated_at = now()
        WHERE id = $7
        RETURNING updated_at
    `, b.Title, b.Author, b.Description, b.Genre, b.Year, b.ImageURL, b.ID).Scan(&b.UpdatedAt)
	if err != nil {
		return noRows(err, "book")
	}
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return dbx.MapPGError(err, "delete book")
	}
	return expectOne(res, "book")
}

func (s *Store) SetBookAggregate(ctx context.Context, bookID string, agg models.Aggregate) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE books SET average_rating = $1, total_reviews = $2 WHERE id = $3`,
		agg.AverageRating, agg.TotalReviews, bookID)
	if err != nil {
		return dbx.MapPGError(err, "set book aggregate")
	}
	return expectOne(res, "book")
}

func (s *Store) ListBooksByOwner(ctx context.Context, ownerID string) ([]models.Book, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+bookCols+`
FROM books b
WHERE b.owner_id = $1
ORDER BY b.created_at DESC, b.id DESC`, ownerID)
	if err != nil {
		return nil, dbx.MapPGError(err, "list books by owner")
	}
	defer rows.Close()

	out := []models.Book{}
	for rows.Next() {
		var b models.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, dbx.MapPGError(err, "scan book")
		}
		out = append(out, b)
	}
	return out, dbx.MapPGError(rows.Err(), "list books by owner")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var bookOrder = map[string]string{
	models.SortNewest: "b.created_at DESC, b.id DESC",
	models.SortYear:   "b.year DESC, b.created_at DESC, b.id DESC",
	models.SortRating: "b.average_rating DESC, b.created_at DESC, b.id DESC",
	models.SortTitle:  "lower(b.title) ASC, b.created_at DESC, b.id DESC",
}

// ListBooks returns one page of books matching q and the total match count.
func (s *Store) ListBooks(ctx context.Context, q models.BookQuery) ([]models.BookWithOwner, int, error) {
	where := []string{}
	args := []any{}
	i := 1

	if term := strings.TrimSpace(q.Search); term != "" {
		p := "$" + strconv.Itoa(i)
		where = append(where, "(b.title ILIKE '%' || "+p+" || '%' OR b.author ILIKE '%' || "+p+" || '%')")
		args = append(args, likeEscaper.Replace(term))
		i++
	}
	if q.Genre != "" {
		where = append(where, "b.genre = $"+strconv.Itoa(i))
		args = append(args, q.Genre)
		i++
	}

	cond := ""
	if len(where) > 0 {
		cond = "WHERE " + strings.Join(where, " AND ") + "\n"
	}

	var total int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*)\nFROM books b\n"+cond, args...).Scan(&total); err != nil {
		return nil, 0, dbx.MapPGError(err, "count books")
	}

	order, ok := bookOrder[q.Sort]
	if !ok {
		order = bookOrder[models.SortNewest]
	}
	qRows := `SELECT ` + bookCols + `, ` + ownerCols + `
FROM books b
JOIN users u ON u.id = b.owner_id
` + cond + "ORDER BY " + order + "\nLIMIT $" + strconv.Itoa(i) + " OFFSET $" + strconv.Itoa(i+1)

	rows, err := s.q.QueryContext(ctx, qRows, append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return nil, 0, dbx.MapPGError(err, "list books")
	}
	defer rows.Close()

	out := []models.BookWithOwner{}
	for rows.Next() {
		bo, err := scanBookWithOwner(rows)
		if err != nil {
			return nil, 0, dbx.MapPGError(err, "scan book")
		}
		out = append(out, bo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbx.MapPGError(err, "list books")
	}
	return out, total, nil
}
