package questions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"github.com/felixgeelhaar/prepwise/internal/llm"
)

func examRequest(count int) exam.Request {
	return exam.Request{
		Topics:     []string{"Optics", "Kinematics"},
		Count:      count,
		Difficulty: domain.DifficultyHard,
		ExamMode:   domain.ExamBITSAT,
	}
}

func TestLLMProvider_FetchQuestions(t *testing.T) {
	model := &scriptedLLM{reply: twoQuestions}
	p := NewLLMProvider(registryWith(model), discardLogger())

	qs, err := p.FetchQuestions(context.Background(), examRequest(2))
	if err != nil {
		t.Fatalf("FetchQuestions() error = %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("FetchQuestions() returned %d; want 2", len(qs))
	}

	req := model.lastReq
	if !req.JSON {
		t.Error("request did not ask for JSON")
	}
	if req.Temperature != questionTemperature {
		t.Errorf("Temperature = %v; want %v", req.Temperature, questionTemperature)
	}
	if !strings.Contains(req.System, "BITSAT") {
		t.Errorf("system prompt does not name the exam: %q", req.System)
	}
	user := req.Messages[0].Content
	for _, want := range []string{"2 multiple-choice", "Optics, Kinematics", "Hard"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q: %q", want, user)
		}
	}
}

func TestLLMProvider_Truncates(t *testing.T) {
	model := &scriptedLLM{reply: twoQuestions}
	p := NewLLMProvider(registryWith(model), discardLogger())

	qs, err := p.FetchQuestions(context.Background(), examRequest(1))
	if err != nil {
		t.Fatalf("FetchQuestions() error = %v", err)
	}
	if len(qs) != 1 {
		t.Errorf("FetchQuestions() returned %d; want 1", len(qs))
	}
}

func TestLLMProvider_DefaultsExamAndDifficulty(t *testing.T) {
	model := &scriptedLLM{reply: twoQuestions}
	p := NewLLMProvider(registryWith(model), discardLogger())

	p.FetchQuestions(context.Background(), exam.Request{Topics: []string{"Optics"}, Count: 2})

	user := model.lastReq.Messages[0].Content
	if !strings.Contains(user, "JEE") || !strings.Contains(user, "Medium") {
		t.Errorf("user prompt = %q; want JEE and Medium defaults", user)
	}
}

func TestLLMProvider_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model *scriptedLLM
	}{
		{"provider error", &scriptedLLM{err: errors.New("boom")}},
		{"empty reply", &scriptedLLM{reply: "   "}},
		{"malformed", &scriptedLLM{reply: "here are your questions"}},
		{"all invalid", &scriptedLLM{reply: `[{"question": "Q?", "options": ["a"], "answer": "a"}]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewLLMProvider(registryWith(tt.model), discardLogger())
			_, err := p.FetchQuestions(context.Background(), examRequest(2))
			if !errors.Is(err, exam.ErrQuestionSource) {
				t.Errorf("FetchQuestions() error = %v; want ErrQuestionSource", err)
			}
		})
	}
}

func TestLLMProvider_NoProvider(t *testing.T) {
	p := NewLLMProvider(llm.NewRegistry(), discardLogger())
	if _, err := p.FetchQuestions(context.Background(), examRequest(2)); !errors.Is(err, exam.ErrQuestionSource) {
		t.Errorf("FetchQuestions() error = %v; want ErrQuestionSource", err)
	}
}
