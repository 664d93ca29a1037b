package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/auth"
	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/mattn/go-sqlite3"
)

// UserStore persists accounts and mentor invites.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// GetUser retrieves a user by email.
func (s *UserStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	var role string
	err := s.db.QueryRowContext(ctx,
		"SELECT email, name, role, password_hash FROM users WHERE email = ?", email,
	).Scan(&u.Email, &u.Name, &role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// CreateUser inserts a new user.
func (s *UserStore) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, name, role, password_hash) VALUES (?, ?, ?, ?)",
		u.Email, u.Name, string(u.Role), u.PasswordHash,
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return auth.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// PutInvite stores or replaces the student's pending invite.
func (s *UserStore) PutInvite(ctx context.Context, student, code string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invites (student_email, code, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(student_email) DO UPDATE SET code=excluded.code, expires_at=excluded.expires_at`,
		student, code, expiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert invite: %w", err)
	}
	return nil
}

// ConsumeInvite deletes a matching, unexpired invite.
func (s *UserStore) ConsumeInvite(ctx context.Context, student, code string, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM invites WHERE student_email = ? AND code = ? AND expires_at > ?",
		student, code, now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("consume invite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return auth.ErrInvalidInvite
	}
	return nil
}
