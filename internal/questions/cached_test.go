package questions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/exam"
)

func TestCachedProvider_StaleOnError(t *testing.T) {
	next := &countingProvider{questions: sampleQuestions(3)}
	cache := newMemCache()
	c := NewCachedProvider(next, cache, WithTTL(time.Minute), WithCacheLogger(discardLogger()))
	ctx := context.Background()
	req := examRequest(3)

	if _, err := c.FetchQuestions(ctx, req); err != nil {
		t.Fatalf("first FetchQuestions() error = %v", err)
	}
	if cache.lastTTL != time.Minute {
		t.Errorf("TTL = %v; want 1m", cache.lastTTL)
	}

	next.fail(exam.ErrQuestionSource)
	qs, err := c.FetchQuestions(ctx, req)
	if err != nil {
		t.Fatalf("FetchQuestions() after failure error = %v; want cached set", err)
	}
	if len(qs) != 3 || qs[0].ID != "s0" {
		t.Errorf("cached set = %v", qs)
	}
	if next.calls != 2 {
		t.Errorf("next called %d times; want 2", next.calls)
	}
}

func TestCachedProvider_MissPropagatesError(t *testing.T) {
	next := &countingProvider{err: exam.ErrQuestionSource}
	c := NewCachedProvider(next, newMemCache(), WithCacheLogger(discardLogger()))

	if _, err := c.FetchQuestions(context.Background(), examRequest(3)); !errors.Is(err, exam.ErrQuestionSource) {
		t.Errorf("FetchQuestions() error = %v; want ErrQuestionSource", err)
	}
}

func TestCachedProvider_CacheFirst(t *testing.T) {
	next := &countingProvider{questions: sampleQuestions(2)}
	c := NewCachedProvider(next, newMemCache(), WithMode(CacheFirst), WithCacheLogger(discardLogger()))
	ctx := context.Background()

	c.FetchQuestions(ctx, examRequest(2))
	c.FetchQuestions(ctx, examRequest(2))

	if next.calls != 1 {
		t.Errorf("next called %d times; want 1", next.calls)
	}
}

func TestCachedProvider_CacheReadErrorIgnored(t *testing.T) {
	next := &countingProvider{questions: sampleQuestions(2)}
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	c := NewCachedProvider(next, cache, WithMode(CacheFirst), WithCacheLogger(discardLogger()))

	qs, err := c.FetchQuestions(context.Background(), examRequest(2))
	if err != nil || len(qs) != 2 {
		t.Errorf("FetchQuestions() = %d, %v; want 2 questions from next", len(qs), err)
	}
}

func TestCachedProvider_Key(t *testing.T) {
	c := NewCachedProvider(nil, nil, WithPrefix("t:"))

	a := exam.Request{Topics: []string{"Optics", "Kinematics"}, Count: 5, Difficulty: "Easy"}
	b := exam.Request{Topics: []string{" kinematics", "OPTICS"}, Count: 5, Difficulty: "Easy"}
	if c.Key(a) != c.Key(b) {
		t.Error("Key() differs for equivalent topic lists")
	}

	other := a
	other.Count = 6
	if c.Key(a) == c.Key(other) {
		t.Error("Key() ignores count")
	}
	if got := c.Key(a); len(got) != len("t:")+64 || got[:2] != "t:" {
		t.Errorf("Key() = %q; want prefix plus sha256 hex", got)
	}
}
