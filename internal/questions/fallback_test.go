package questions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/prepwise/internal/exam"
)

func TestFallbackProvider(t *testing.T) {
	primary := &countingProvider{err: errors.New("model offline")}
	secondary := &countingProvider{questions: sampleQuestions(2)}
	f := NewFallbackProvider(discardLogger(), primary, nil, secondary)

	qs, err := f.FetchQuestions(context.Background(), examRequest(2))
	if err != nil {
		t.Fatalf("FetchQuestions() error = %v", err)
	}
	if len(qs) != 2 || primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("got %d questions, calls %d/%d", len(qs), primary.calls, secondary.calls)
	}
}

func TestFallbackProvider_PrimaryWins(t *testing.T) {
	primary := &countingProvider{questions: sampleQuestions(1)}
	secondary := &countingProvider{questions: sampleQuestions(2)}
	f := NewFallbackProvider(discardLogger(), primary, secondary)

	f.FetchQuestions(context.Background(), examRequest(2))
	if secondary.calls != 0 {
		t.Error("secondary called after primary succeeded")
	}
}

func TestFallbackProvider_AllFail(t *testing.T) {
	f := NewFallbackProvider(discardLogger(),
		&countingProvider{err: errors.New("first down")},
		&countingProvider{},
	)

	_, err := f.FetchQuestions(context.Background(), examRequest(2))
	if !errors.Is(err, exam.ErrQuestionSource) || !errors.Is(err, ErrNoQuestions) {
		t.Errorf("FetchQuestions() error = %v; want ErrQuestionSource joined with ErrNoQuestions", err)
	}
	if !strings.Contains(err.Error(), "first down") {
		t.Errorf("error %q does not mention the first failure", err)
	}
}

func TestFallbackProvider_Empty(t *testing.T) {
	f := NewFallbackProvider(nil)
	if _, err := f.FetchQuestions(context.Background(), examRequest(1)); !errors.Is(err, exam.ErrQuestionSource) {
		t.Errorf("FetchQuestions() error = %v; want ErrQuestionSource", err)
	}
}
