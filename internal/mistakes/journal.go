// Package mistakes keeps each learner's journal of wrongly answered
// questions and derives weak topics from it.
package mistakes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/gamification"
)

// ReviewBadgeThreshold is the number of reviewed mistakes that earns the
// perfectionist badge
const ReviewBadgeThreshold = 10

// TopicCount is a topic with the number of mistakes made on it
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Summary is the read-only view shared with mentors
type Summary struct {
	Count      int      `json:"mistake_count"`
	WeakTopics []string `json:"weak_topics"`
}

// Journal records and queries mistakes per user
type Journal struct {
	store    Store
	rewarder Rewarder
	logger   *slog.Logger
}

// Option configures a Journal
type Option func(*Journal)

// WithRewarder enables the review reward
func WithRewarder(r Rewarder) Option {
	return func(j *Journal) { j.rewarder = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// NewJournal creates a journal over store
func NewJournal(store Store, opts ...Option) *Journal {
	j := &Journal{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Add prepends m to the user's journal
func (j *Journal) Add(ctx context.Context, user string, m domain.Mistake) error {
	user, err := normalizeUser(user)
	if err != nil {
		return err
	}
	if m.UserAnswer == "" {
		return fmt.Errorf("%w: blank answer", ErrInvalid)
	}
	if err := m.Question.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := j.store.Add(ctx, user, m); err != nil {
		return fmt.Errorf("add mistake: %w", err)
	}
	return nil
}

// List returns the user's mistakes, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, user string, limit int) ([]domain.Mistake, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}
	list, err := j.store.List(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Clear empties the user's journal
func (j *Journal) Clear(ctx context.Context, user string) error {
	user, err := normalizeUser(user)
	if err != nil {
		return err
	}
	if err := j.store.Clear(ctx, user); err != nil {
		return fmt.Errorf("clear mistakes: %w", err)
	}
	return nil
}

// WeakTopics returns the n topics with the most mistakes. Ties are broken
// by topic name. n <= 0 returns every topic.
func (j *Journal) WeakTopics(ctx context.Context, user string, n int) ([]TopicCount, error) {
	list, err := j.List(ctx, user, 0)
	if err != nil {
		return nil, err
	}
	return weakTopics(list, n), nil
}

// Summary returns the mistake count and top three weak topics
func (j *Journal) Summary(ctx context.Context, user string) (*Summary, error) {
	list, err := j.List(ctx, user, 0)
	if err != nil {
		return nil, err
	}
	s := &Summary{Count: len(list), WeakTopics: []string{}}
	for _, tc := range weakTopics(list, 3) {
		s.WeakTopics = append(s.WeakTopics, tc.Topic)
	}
	return s, nil
}

// Reviewed reports that the user has reviewed count journal entries. The
// count is capped at the journal size; reaching ReviewBadgeThreshold grants
// the journal-review reward. It returns nil when nothing was granted.
func (j *Journal) Reviewed(ctx context.Context, user string, count int) (*gamification.XPResult, error) {
	list, err := j.List(ctx, user, 0)
	if err != nil {
		return nil, err
	}
	if count > len(list) {
		count = len(list)
	}
	if count < ReviewBadgeThreshold || j.rewarder == nil {
		return nil, nil
	}
	return j.rewarder.Reward(ctx, user, gamification.EventJournalReview)
}

// Sink returns a MistakeSink writing to user's journal
func (j *Journal) Sink(user string) *UserSink {
	return &UserSink{journal: j, user: user}
}

func weakTopics(list []domain.Mistake, n int) []TopicCount {
	counts := make(map[string]int)
	for _, m := range list {
		if m.Question.Topic != "" {
			counts[m.Question.Topic]++
		}
	}

	out := make([]TopicCount, 0, len(counts))
	for topic, c := range counts {
		out = append(out, TopicCount{Topic: topic, Count: c})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Topic < out[b].Topic
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func normalizeUser(user string) (string, error) {
	user = domain.NormalizeEmail(user)
	if user == "" {
		return "", ErrInvalidUser
	}
	return user, nil
}
