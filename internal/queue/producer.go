package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/google/uuid"
)

// Producer publishes prepwise events
type Producer struct {
	pub    JSONPublisher
	now    func() time.Time
	logger *slog.Logger
}

// NewProducer creates a producer on pub, usually a *Connection
func NewProducer(pub JSONPublisher) *Producer {
	return &Producer{
		pub:    pub,
		now:    time.Now,
		logger: slog.Default().With("component", "queue"),
	}
}

// PublishMistake queues a mistake for asynchronous persistence
func (p *Producer) PublishMistake(ctx context.Context, user string, m domain.Mistake) error {
	ev := &MistakeRecorded{
		ID:        uuid.New(),
		User:      user,
		Mistake:   m,
		CreatedAt: p.now(),
	}
	if err := p.pub.PublishJSON(ctx, MistakeQueueName, TypeMistakeRecorded, ev); err != nil {
		return fmt.Errorf("failed to publish mistake: %w", err)
	}

	p.logger.Debug("published mistake", "event_id", ev.ID, "user", user, "question_id", m.Question.ID)
	return nil
}

// PublishXPAwarded announces an applied XP award
func (p *Producer) PublishXPAwarded(ctx context.Context, user string, amount, level int, badges []string) error {
	ev := &XPAwarded{
		ID:        uuid.New(),
		User:      user,
		Amount:    amount,
		Badges:    badges,
		Level:     level,
		CreatedAt: p.now(),
	}
	if err := p.pub.PublishJSON(ctx, XPQueueName, TypeXPAwarded, ev); err != nil {
		return fmt.Errorf("failed to publish xp award: %w", err)
	}

	p.logger.Debug("published xp award", "event_id", ev.ID, "user", user, "amount", amount)
	return nil
}

// PublishExamFinished announces a scored attempt
func (p *Producer) PublishExamFinished(ctx context.Context, fin exam.FinishedEvent) error {
	ev := &ExamFinished{
		ID:          uuid.New(),
		AttemptID:   fin.AttemptID,
		User:        fin.User,
		ExamMode:    fin.ExamMode,
		Score:       fin.Score,
		Total:       fin.Total,
		Mistakes:    fin.Mistakes,
		TimeExpired: fin.TimeExpired,
		FinishedAt:  fin.FinishedAt,
	}
	if err := p.pub.PublishJSON(ctx, ExamFinishedQueueName, TypeExamFinished, ev); err != nil {
		return fmt.Errorf("failed to publish exam result: %w", err)
	}

	p.logger.Info("published exam result",
		"event_id", ev.ID,
		"attempt_id", fin.AttemptID,
		"user", fin.User,
		"score", fin.Score,
		"total", fin.Total,
	)
	return nil
}

// Ensure Producer implements exam.Publisher
var _ exam.Publisher = (*Producer)(nil)
