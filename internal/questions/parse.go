// Package questions provides the question sources behind exams and
// practice tests: LLM generation, YAML banks, a Redis cache and fallback
// chaining.
package questions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/llm"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ParseQuestions extracts questions from a model reply. The reply may be a
// JSON array, or an object whose first property holds the array. Markdown
// code fences around the document are ignored.
func ParseQuestions(text string) ([]domain.Question, error) {
	text = llm.StripFences(text)
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}

	root := gjson.Parse(text)
	var list gjson.Result
	switch {
	case root.IsArray():
		list = root
	case root.IsObject():
		root.ForEach(func(_, value gjson.Result) bool {
			list = value
			return false
		})
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: first property is not an array", ErrMalformedResponse)
		}
	default:
		return nil, fmt.Errorf("%w: top-level %s", ErrMalformedResponse, root.Type)
	}

	out := make([]domain.Question, 0, len(list.Array()))
	for i, item := range list.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrMalformedResponse, i)
		}
		var q domain.Question
		if err := json.Unmarshal([]byte(item.Raw), &q); err != nil {
			// Models sometimes emit numeric ids
			q = domain.Question{
				ID:       item.Get("id").String(),
				Topic:    item.Get("topic").String(),
				Question: item.Get("question").String(),
				Answer:   item.Get("answer").String(),
			}
			for _, opt := range item.Get("options").Array() {
				q.Options = append(q.Options, opt.String())
			}
		}
		out = append(out, q)
	}
	return out, nil
}

// Sanitize trims whitespace, drops questions that fail validation, gives
// every question a unique id and caps the set at limit (0 = no cap).
func Sanitize(qs []domain.Question, limit int, logger *slog.Logger) []domain.Question {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]bool, len(qs))
	out := make([]domain.Question, 0, len(qs))
	for i, q := range qs {
		q = q.Clone()
		q.ID = strings.TrimSpace(q.ID)
		q.Topic = strings.TrimSpace(q.Topic)
		q.Question = strings.TrimSpace(q.Question)
		q.Answer = strings.TrimSpace(q.Answer)
		for j := range q.Options {
			q.Options[j] = strings.TrimSpace(q.Options[j])
		}

		if err := q.Validate(); err != nil {
			logger.Debug("dropping invalid question", "index", i, "error", err)
			continue
		}
		if q.ID == "" || seen[q.ID] {
			q.ID = uuid.New().String()
		}
		seen[q.ID] = true
		out = append(out, q)

		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
