package questions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/llm"
)

const questionTemperature = 0.8

// LLMProvider generates question sets with the registry's default model
type LLMProvider struct {
	registry llm.LLMRegistry
	logger   *slog.Logger
}

// NewLLMProvider creates a generator backed by registry
func NewLLMProvider(registry llm.LLMRegistry, logger *slog.Logger) *LLMProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMProvider{registry: registry, logger: logger}
}

// FetchQuestions asks the model for req.Count questions. Invalid questions
// in the reply are dropped; a reply with none left is an error.
func (p *LLMProvider) FetchQuestions(ctx context.Context, req exam.Request) ([]domain.Question, error) {
	provider, err := p.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exam.ErrQuestionSource, err)
	}

	text, err := llm.Ask(ctx, provider, llm.Prompt{
		System:      systemPrompt(req),
		User:        userPrompt(req),
		JSON:        true,
		Temperature: questionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", exam.ErrQuestionSource, err)
	}

	parsed, err := ParseQuestions(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", exam.ErrQuestionSource, err)
	}

	qs := Sanitize(parsed, req.Count, p.logger)
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: %w", exam.ErrQuestionSource, ErrNoQuestions)
	}
	if dropped := len(parsed) - len(qs); dropped > 0 && len(parsed) <= req.Count {
		p.logger.Info("model reply had unusable questions",
			"provider", provider.Name(), "kept", len(qs), "dropped", dropped)
	}
	return qs, nil
}

func examName(req exam.Request) string {
	if req.ExamMode == "" {
		return "JEE"
	}
	return string(req.ExamMode)
}

func systemPrompt(req exam.Request) string {
	return fmt.Sprintf("You are an expert question setter for India's engineering entrance exams. "+
		"Generate high-quality multiple-choice questions (MCQs) for the specified exam: %s. "+
		"The output must be a valid JSON array of objects. "+
		"Ensure questions are relevant and accurately reflect the specified difficulty and exam pattern.", examName(req))
}

func userPrompt(req exam.Request) string {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}
	return fmt.Sprintf("Generate a JSON array of %d multiple-choice questions for the %s exam. "+
		"Topics: %s. The difficulty level should be %s. "+
		"Each question object must have these properties: 'id' (a unique string), "+
		"'topic' (a string from the requested topics), 'question' (string), "+
		"'options' (an array of 4 strings), and 'answer' (a string matching one of the options).",
		req.Count, examName(req), strings.Join(req.Topics, ", "), difficulty)
}
