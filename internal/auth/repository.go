package auth

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements UserStore and InviteStore using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, name, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.pool.Exec(ctx, query, user.Email, user.Name, string(user.Role), user.PasswordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailExists
	}
	return err
}

// GetUser retrieves a user by email
func (r *PostgresRepository) GetUser(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT email, name, role, password_hash
		FROM users WHERE email = $1
	`
	user := &domain.User{}
	var role string
	err := r.pool.QueryRow(ctx, query, email).Scan(&user.Email, &user.Name, &role, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return user, nil
}

// PutInvite stores or replaces the student's invite
func (r *PostgresRepository) PutInvite(ctx context.Context, student, code string, expiresAt time.Time) error {
	query := `
		INSERT INTO invites (student_email, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_email) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query, student, code, expiresAt)
	return err
}

// ConsumeInvite deletes a matching, unexpired invite in one statement
func (r *PostgresRepository) ConsumeInvite(ctx context.Context, student, code string, now time.Time) error {
	query := `DELETE FROM invites WHERE student_email = $1 AND code = $2 AND expires_at > $3`
	tag, err := r.pool.Exec(ctx, query, student, code, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidInvite
	}
	return nil
}

// DeleteExpiredInvites removes every invite past its expiry
func (r *PostgresRepository) DeleteExpiredInvites(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM invites WHERE expires_at < NOW()`)
	return err
}
