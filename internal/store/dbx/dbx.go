package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX lets the repos run against both *sql.DB and *sql.Tx.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithinTx runs fn in a read-committed transaction (commit on nil, rollback on error).
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return MapPGError(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return MapPGError(err, "commit tx")
	}
	return nil
}

// Constraint names carrying domain meaning.
const (
	ReviewsBookUserKey = "reviews_book_id_user_id_key"
	UsersEmailKey      = "users_email_key"
)

// MapPGError classifies a database error into the models taxonomy. op names
// the failed operation. Errors already classified pass through untouched.
func MapPGError(err error, op string) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{models.ErrValidation, models.ErrNotFound, models.ErrForbidden, models.ErrConflict, models.ErrStorage} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		switch pg.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w (%s)", op, models.ErrConflict, pg.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w (%s)", op, models.ErrNotFound, pg.ConstraintName)
		case "22P02": // invalid_text_representation, e.g. malformed uuid
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		case "23514", "23502", "22001": // check, not_null, too long
			return fmt.Errorf("%s: %w", op, models.Invalid(columnOr(pg.ColumnName, "field"), "check", "constraint failed"))
		}
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrStorage, err)
}

func columnOr(c, def string) string {
	if c != "" {
		return c
	}
	return def
}
