package questions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/exam"
	"gopkg.in/yaml.v3"
)

// BankQuestion is a question stored in a bank file. Difficulty is optional;
// untagged questions match every requested difficulty.
type BankQuestion struct {
	domain.Question `yaml:",inline"`
	Difficulty      domain.Difficulty `yaml:"difficulty,omitempty"`
}

// bankFile is the on-disk layout of a question bank
type bankFile struct {
	Exam      domain.ExamMode `yaml:"exam,omitempty"`
	Questions []BankQuestion  `yaml:"questions"`
}

// BankProvider serves questions from YAML files. Each call draws a random
// subset of the questions matching the requested topics.
type BankProvider struct {
	logger *slog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	questions []bankEntry
}

type bankEntry struct {
	BankQuestion
	exam domain.ExamMode
}

// BankOption configures a BankProvider
type BankOption func(*BankProvider)

// WithSeed makes the shuffle deterministic
func WithSeed(seed uint64) BankOption {
	return func(b *BankProvider) { b.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithBankLogger sets the logger used while loading files
func WithBankLogger(l *slog.Logger) BankOption {
	return func(b *BankProvider) { b.logger = l }
}

// NewBankProvider creates an empty bank
func NewBankProvider(opts ...BankOption) *BankProvider {
	b := &BankProvider{
		logger: slog.Default(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LoadDir loads every .yaml and .yml file in dir
func (b *BankProvider) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read bank dir: %w", err)
	}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if err := b.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads one bank file
func (b *BankProvider) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bank file: %w", err)
	}
	n, err := b.Load(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b.logger.Debug("loaded question bank", "path", path, "questions", n)
	return nil
}

// Load parses a bank document and adds its valid questions. It returns the
// number of questions added.
func (b *BankProvider) Load(data []byte) (int, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse bank: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	added := 0
	for i, q := range file.Questions {
		if err := q.Validate(); err != nil {
			b.logger.Warn("skipping bank question", "index", i, "id", q.ID, "error", err)
			continue
		}
		if q.Difficulty != "" && !q.Difficulty.Valid() {
			b.logger.Warn("skipping bank question", "index", i, "id", q.ID, "difficulty", q.Difficulty)
			continue
		}
		b.questions = append(b.questions, bankEntry{BankQuestion: q, exam: file.Exam})
		added++
	}
	return added, nil
}

// Len returns the number of loaded questions
func (b *BankProvider) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.questions)
}

// FetchQuestions returns up to req.Count random questions on the requested
// topics. Topic matching ignores case.
func (b *BankProvider) FetchQuestions(ctx context.Context, req exam.Request) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", exam.ErrQuestionSource, err)
	}

	topics := make(map[string]bool, len(req.Topics))
	for _, t := range req.Topics {
		topics[strings.ToLower(strings.TrimSpace(t))] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var matches []domain.Question
	for _, q := range b.questions {
		if !topics[strings.ToLower(q.Topic)] {
			continue
		}
		if req.Difficulty != "" && q.Difficulty != "" && q.Difficulty != req.Difficulty {
			continue
		}
		if req.ExamMode != "" && q.exam != "" && q.exam != req.ExamMode {
			continue
		}
		matches = append(matches, q.Question.Clone())
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %w for topics %v", exam.ErrQuestionSource, ErrNoQuestions, req.Topics)
	}

	b.rng.Shuffle(len(matches), func(i, j int) { matches[i], matches[j] = matches[j], matches[i] })
	if req.Count > 0 && len(matches) > req.Count {
		matches = matches[:req.Count]
	}
	return matches, nil
}
