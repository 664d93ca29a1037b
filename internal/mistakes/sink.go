package mistakes

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/queue"
)

// UserSink writes one user's exam mistakes straight into the journal
type UserSink struct {
	journal *Journal
	user    string
}

// RecordMistake stores m. Failures are logged; an exam never fails on them.
func (s *UserSink) RecordMistake(ctx context.Context, m domain.Mistake) {
	if err := s.journal.Add(ctx, s.user, m); err != nil {
		s.journal.logger.Warn("mistake not recorded",
			"user", s.user,
			"question_id", m.Question.ID,
			"error", err,
		)
	}
}

// QueueSink publishes one user's mistakes to the event queue. The consumer
// side writes them with HandleRecorded. When publishing fails the mistake
// is written directly.
type QueueSink struct {
	pub      Publisher
	fallback *UserSink
	user     string
	logger   *slog.Logger
}

// NewQueueSink creates a sink for user publishing through pub
func NewQueueSink(pub Publisher, journal *Journal, user string) *QueueSink {
	return &QueueSink{
		pub:      pub,
		fallback: journal.Sink(user),
		user:     user,
		logger:   journal.logger,
	}
}

func (s *QueueSink) RecordMistake(ctx context.Context, m domain.Mistake) {
	if err := s.pub.PublishMistake(ctx, s.user, m); err != nil {
		s.logger.Warn("mistake publish failed, writing directly", "user", s.user, "error", err)
		s.fallback.RecordMistake(ctx, m)
	}
}

// HandleRecorded is the queue consumer handler for mistake events
func (j *Journal) HandleRecorded(ctx context.Context, ev *queue.MistakeRecorded) error {
	return j.Add(ctx, ev.User, ev.Mistake)
}
