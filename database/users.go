package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("bad credentials")

// CreateUser stores username with a bcrypt hash of password, replacing an
// existing user of the same name.
func (s *Store) CreateUser(ctx context.Context, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	_, err = s.ExecContext(ctx, `
		INSERT INTO user (username, password_hash, role) VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role`,
		username,
		hash,
		role,
	)
	return errors.Wrap(err, "insert user")
}

func (s *Store) UserRole(ctx context.Context, username string) (string, error) {
	var role string
	err := s.QueryRowContext(ctx, `SELECT role FROM user WHERE username = ?`, username).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, errors.Wrap(err, "user role")
}

func (s *Store) VerifyPassword(ctx context.Context, username, password string) error {
	var hash []byte
	err := s.QueryRowContext(ctx, `SELECT password_hash FROM user WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return errors.Wrap(err, "password hash")
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

func (s *Store) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)`,
		username,
		tokenID,
		refreshTokenID,
		expiration,
	)
	return errors.Wrap(err, "insert token")
}

// ConsumeToken deletes a refresh token pair and fails when it was unknown
// or already expired.
func (s *Store) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var expiration time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT expiration FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username,
		tokenID,
		refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return errors.Wrap(err, "select token")
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username,
		tokenID,
		refreshTokenID,
	)
	if err != nil {
		return errors.Wrap(err, "delete token")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	if expiration.Before(time.Now()) {
		return ErrBadCredentials
	}
	return nil
}
