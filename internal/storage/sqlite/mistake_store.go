package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

// MistakeStore keeps mistake journals, one row per mistake.
type MistakeStore struct {
	db *DB
}

// NewMistakeStore creates a new SQLite-backed mistake store.
func NewMistakeStore(db *DB) *MistakeStore {
	return &MistakeStore{db: db}
}

// List returns the user's mistakes, newest first.
func (s *MistakeStore) List(ctx context.Context, user string) ([]domain.Mistake, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, user_answer, timestamp_ms
		FROM mistakes WHERE user_email = ? ORDER BY id DESC`, user)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	defer rows.Close()

	list := []domain.Mistake{}
	for rows.Next() {
		var m domain.Mistake
		var question string
		if err := rows.Scan(&question, &m.UserAnswer, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan mistake: %w", err)
		}
		if err := json.Unmarshal([]byte(question), &m.Question); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Add appends a mistake; List returns it first.
func (s *MistakeStore) Add(ctx context.Context, user string, m domain.Mistake) error {
	question, err := json.Marshal(m.Question)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mistakes (user_email, topic, question, user_answer, timestamp_ms)
		VALUES (?, ?, ?, ?, ?)`,
		user, m.Question.Topic, string(question), m.UserAnswer, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert mistake: %w", err)
	}
	return nil
}

// Clear removes every mistake of user.
func (s *MistakeStore) Clear(ctx context.Context, user string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM mistakes WHERE user_email = ?", user); err != nil {
		return fmt.Errorf("clear mistakes: %w", err)
	}
	return nil
}
