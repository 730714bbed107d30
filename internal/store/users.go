// ABOUTME: Staff account persistence: lookup by email or id, password and role updates
// ABOUTME: Password hashes are produced by the auth package; this layer only stores them

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/horoscope-desk/internal/db"
)

// User is a staff account.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	CreatedAt    string `json:"created_at"`
}

const userColumns = "id, email, password_hash, name, role, created_at"

func userFromRecord(rec db.Record) *User {
	return &User{
		ID:           rec.Int64("id"),
		Email:        rec.String("email"),
		PasswordHash: rec.String("password_hash"),
		Name:         rec.String("name"),
		Role:         rec.String("role"),
		CreatedAt:    rec.String("created_at"),
	}
}

func (s *Store) oneUser(ctx context.Context, query string, args ...any) (*User, error) {
	res, err := s.db.Execute(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	rec, ok := res.First()
	if !ok {
		return nil, ErrNotFound
	}
	return userFromRecord(rec), nil
}

// GetUserByEmail looks up an account by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.oneUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetUser looks up an account by id.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.oneUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// UpdatePasswordHash replaces the stored hash for an account.
func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := s.db.Execute(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if res.AffectedRows() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertUser creates the account or, when the email exists, replaces its name,
// role and hash. It reports whether a new account was created.
func (s *Store) UpsertUser(ctx context.Context, email, name, role, hash string) (bool, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err := s.db.Execute(ctx,
			"UPDATE users SET name = ?, role = ?, password_hash = ? WHERE id = ?",
			name, role, hash, existing.ID,
		); err != nil {
			return false, fmt.Errorf("updating user: %w", err)
		}
		return false, nil
	case errors.Is(err, ErrNotFound):
		if _, err := s.db.Execute(ctx,
			"INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)",
			email, hash, name, role,
		); err != nil {
			return false, fmt.Errorf("creating user: %w", err)
		}
		return true, nil
	default:
		return false, err
	}
}
