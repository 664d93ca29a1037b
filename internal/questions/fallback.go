package questions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
)

// FallbackProvider tries each source in order and returns the first success
type FallbackProvider struct {
	sources []exam.QuestionProvider
	logger  *slog.Logger
}

// NewFallbackProvider chains sources. Nil sources are skipped.
func NewFallbackProvider(logger *slog.Logger, sources ...exam.QuestionProvider) *FallbackProvider {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FallbackProvider{logger: logger}
	for _, s := range sources {
		if s != nil {
			f.sources = append(f.sources, s)
		}
	}
	return f
}

// FetchQuestions returns the first source's successful result. When every
// source fails the errors are joined under ErrQuestionSource.
func (f *FallbackProvider) FetchQuestions(ctx context.Context, req exam.Request) ([]domain.Question, error) {
	if len(f.sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", exam.ErrQuestionSource)
	}

	var errs []error
	for i, source := range f.sources {
		qs, err := source.FetchQuestions(ctx, req)
		if err == nil && len(qs) > 0 {
			if i > 0 {
				f.logger.Info("question source fell back", "source", i)
			}
			return qs, nil
		}
		if err == nil {
			err = ErrNoQuestions
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		f.logger.Warn("question source failed", "source", i, "error", err)
	}
	return nil, fmt.Errorf("%w: %w", exam.ErrQuestionSource, errors.Join(errs...))
}
