package pg

import (
	"context"
	"strings"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store/dbx"
)

const userCols = `id, name, email, password_hash, token_version, created_at, updated_at`

func scanUser(sc rowScanner, u *models.User) error {
	return sc.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = s.newID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := s.q.QueryRowContext(ctx, `
        INSERT INTO users (id, name, email, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING token_version, created_at, updated_at
    `, u.ID, u.Name, u.Email, u.PasswordHash).Scan(&u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	return dbx.MapPGError(err, "create user")
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	row := s.q.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, &u); err != nil {
		return models.User{}, noRows(err, "user")
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	row := s.q.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = $1 LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)))
	if err := scanUser(row, &u); err != nil {
		return models.User{}, noRows(err, "user")
	}
	return u, nil
}

func (s *Store) UpdateUserPasswordHash(ctx context.Context, userID, hash string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, userID)
	if err != nil {
		return dbx.MapPGError(err, "update password hash")
	}
	return expectOne(res, "user")
}

// BumpTokenVersion invalidates every access token issued to userID.
func (s *Store) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	var v int
	err := s.q.QueryRowContext(ctx,
		`UPDATE users SET token_version = token_version + 1, updated_at = now() WHERE id = $1 RETURNING token_version`,
		userID).Scan(&v)
	if err != nil {
		return 0, noRows(err, "user")
	}
	return v, nil
}

func (s *Store) TokenVersion(ctx context.Context, userID string) (int, error) {
	var v int
	err := s.q.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = $1`, userID).Scan(&v)
	if err != nil {
		return 0, noRows(err, "user")
	}
	return v, nil
}
