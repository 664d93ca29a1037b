package exam

import (
	"context"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

// Request describes the question set an attempt needs
type Request struct {
	Topics     []string          `json:"topics"`
	Count      int               `json:"count"`
	Difficulty domain.Difficulty `json:"difficulty"`
	ExamMode   domain.ExamMode   `json:"exam_mode,omitempty"`
}

// QuestionProvider produces question sets. Implementations wrap every
// failure, including an empty result, in ErrQuestionSource.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, req Request) ([]domain.Question, error)
}

// MistakeSink receives wrong answers at scoring time. Delivery is
// fire-and-forget; sinks handle their own failures.
type MistakeSink interface {
	RecordMistake(ctx context.Context, m domain.Mistake)
}

// XPAwarder grants XP and badges to the learner taking the exam
type XPAwarder interface {
	AwardXP(ctx context.Context, amount int, badges ...string) error
}

// Publisher announces finished attempts to other services
type Publisher interface {
	PublishExamFinished(ctx context.Context, ev FinishedEvent) error
}

// MistakeSinkFunc adapts a function to MistakeSink
type MistakeSinkFunc func(ctx context.Context, m domain.Mistake)

func (f MistakeSinkFunc) RecordMistake(ctx context.Context, m domain.Mistake) { f(ctx, m) }

// ProviderFunc adapts a function to QuestionProvider
type ProviderFunc func(ctx context.Context, req Request) ([]domain.Question, error)

func (f ProviderFunc) FetchQuestions(ctx context.Context, req Request) ([]domain.Question, error) {
	return f(ctx, req)
}
