// Package pg is the postgres entity store.
package pg

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store"
	"github.com/5w1tchy/book-reviews/internal/store/dbx"
)

//go:embed schema.sql
var schema string

// Store implements store.Store on database/sql with the pgx driver. A Store
// returned by WithinTx is bound to that transaction.
type Store struct {
	db    *sql.DB
	q     dbx.DBTX
	newID func() string
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db, q: db, newID: store.NewID}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Repos) error) error {
	return dbx.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, q: tx, newID: s.newID})
	})
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// expectOne turns a zero-row write into a NotFound for kind.
func expectOne(res sql.Result, kind string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.MapPGError(err, kind)
	}
	if n == 0 {
		return models.NotFound(kind)
	}
	return nil
}

// noRows maps sql.ErrNoRows to NotFound for kind and classifies anything else.
func noRows(err error, kind string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound(kind)
	}
	return dbx.MapPGError(err, kind)
}
