package postgres

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MistakeStore implements mistakes.Store using PostgreSQL
type MistakeStore struct {
	pool *pgxpool.Pool
}

// NewMistakeStore creates a new PostgreSQL mistake store
func NewMistakeStore(pool *pgxpool.Pool) *MistakeStore {
	return &MistakeStore{pool: pool}
}

// List returns the user's mistakes, newest first
func (s *MistakeStore) List(ctx context.Context, user string) ([]domain.Mistake, error) {
	query := `
		SELECT question, user_answer, timestamp_ms
		FROM mistakes WHERE user_email = $1 ORDER BY id DESC
	`
	rows, err := s.pool.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Mistake, error) {
		var m domain.Mistake
		err := row.Scan(&m.Question, &m.UserAnswer, &m.Timestamp)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan mistakes: %w", err)
	}
	if list == nil {
		list = []domain.Mistake{}
	}
	return list, nil
}

// Add appends a mistake
func (s *MistakeStore) Add(ctx context.Context, user string, m domain.Mistake) error {
	query := `
		INSERT INTO mistakes (user_email, topic, question, user_answer, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, user, m.Question.Topic, m.Question, m.UserAnswer, m.Timestamp); err != nil {
		return fmt.Errorf("insert mistake: %w", err)
	}
	return nil
}

// Clear removes every mistake of user
func (s *MistakeStore) Clear(ctx context.Context, user string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM mistakes WHERE user_email = $1`, user); err != nil {
		return fmt.Errorf("clear mistakes: %w", err)
	}
	return nil
}
