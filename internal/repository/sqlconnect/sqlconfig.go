// Package sqlconnect opens the postgres pool.
package sqlconnect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/5w1tchy/book-reviews/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ConnectDB opens a pgx-backed pool for dsn, applies the pool limits in
// pool and fails unless the database answers a ping within PingTimeout.
func ConnectDB(ctx context.Context, dsn string, pool config.DBConfig) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	configure(db, pool)

	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Printf("[db] connected (max_open=%d max_idle=%d)", pool.MaxOpenConns, pool.MaxIdleConns)
	return db, nil
}

func configure(db *sql.DB, pool config.DBConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(min(pool.MaxIdleConns, max(pool.MaxOpenConns, 1)))
	}
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
}
