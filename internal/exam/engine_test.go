package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

func TestEngine_Start(t *testing.T) {
	provider := staticProvider(10)
	e := NewEngine(provider, WithLogger(discardLogger()))

	if e.Phase() != PhaseIdle {
		t.Fatalf("Phase() = %s; want idle", e.Phase())
	}

	cfg := testConfig(10)
	cfg.ExamMode = domain.ExamJEE
	if err := e.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if e.Phase() != PhaseRunning {
		t.Errorf("Phase() = %s; want running", e.Phase())
	}
	if e.TimeLeft() != 60 {
		t.Errorf("TimeLeft() = %d; want 60", e.TimeLeft())
	}
	if e.Current() != 0 {
		t.Errorf("Current() = %d; want 0", e.Current())
	}

	questions := e.Questions()
	if len(questions) != 10 {
		t.Fatalf("len(Questions()) = %d; want 10", len(questions))
	}
	for i, q := range questions {
		if q.Status != StatusUnvisited || q.UserAnswer != "" {
			t.Errorf("question %d = status %s answer %q; want unvisited with no answer", i, q.Status, q.UserAnswer)
		}
	}

	req := provider.requests[0]
	if req.Count != 10 || req.Difficulty != domain.DifficultyMedium || req.ExamMode != domain.ExamJEE || len(req.Topics) != 2 {
		t.Errorf("provider request = %+v", req)
	}
}

func TestEngine_Start_DefaultsDifficulty(t *testing.T) {
	provider := staticProvider(3)
	e := NewEngine(provider, WithLogger(discardLogger()))

	cfg := testConfig(3)
	cfg.Difficulty = ""
	if err := e.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if provider.requests[0].Difficulty != domain.DifficultyMedium {
		t.Errorf("Difficulty = %q; want Medium", provider.requests[0].Difficulty)
	}
}

func TestEngine_Start_TruncatesToTotal(t *testing.T) {
	e := NewEngine(staticProvider(8), WithLogger(discardLogger()))

	if err := e.Start(context.Background(), testConfig(5)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(e.Questions()); n != 5 {
		t.Errorf("len(Questions()) = %d; want 5", n)
	}
}

func TestEngine_Start_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero questions", func(c *Config) { c.TotalQuestions = 0 }},
		{"no topics", func(c *Config) { c.Topics = nil }},
		{"blank topic", func(c *Config) { c.Topics = []string{""} }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"bad difficulty", func(c *Config) { c.Difficulty = "Brutal" }},
		{"bad mode", func(c *Config) { c.ExamMode = "GRE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := staticProvider(5)
			e := NewEngine(provider, WithLogger(discardLogger()))
			cfg := testConfig(5)
			tt.mutate(&cfg)

			err := e.Start(context.Background(), cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Start() error = %v; want ErrInvalidConfig", err)
			}
			if e.Phase() != PhaseIdle {
				t.Errorf("Phase() = %s; want idle", e.Phase())
			}
			if len(provider.requests) != 0 {
				t.Error("provider called for invalid config")
			}
		})
	}
}

func TestEngine_Start_ProviderFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"error", &fakeProvider{err: errProviderDown}},
		{"empty result", &fakeProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.provider, WithLogger(discardLogger()))

			err := e.Start(context.Background(), testConfig(5))
			if !errors.Is(err, ErrQuestionSource) {
				t.Fatalf("Start() error = %v; want ErrQuestionSource", err)
			}
			if e.Phase() != PhaseIdle {
				t.Errorf("Phase() = %s; want idle", e.Phase())
			}
			if len(e.Questions()) != 0 {
				t.Error("partial attempt created")
			}

			// Retry succeeds once the source recovers.
			tt.provider.mu.Lock()
			tt.provider.err = nil
			tt.provider.questions = makeQuestions(5)
			tt.provider.mu.Unlock()

			if err := e.Start(context.Background(), testConfig(5)); err != nil {
				t.Fatalf("retry Start() error = %v", err)
			}
			if e.Phase() != PhaseRunning {
				t.Errorf("Phase() after retry = %s; want running", e.Phase())
			}
		})
	}
}

func TestEngine_Start_WhileLoading(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	provider := ProviderFunc(func(ctx context.Context, req Request) ([]domain.Question, error) {
		close(entered)
		<-release
		return makeQuestions(req.Count), nil
	})
	e := NewEngine(provider, WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() { done <- e.Start(context.Background(), testConfig(4)) }()
	<-entered

	if e.Phase() != PhaseLoading {
		t.Errorf("Phase() = %s; want loading", e.Phase())
	}
	if err := e.Start(context.Background(), testConfig(4)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("second Start() error = %v; want ErrInvalidOperation", err)
	}
	if err := e.Answer(0, "A"); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Answer() while loading error = %v; want ErrInvalidOperation", err)
	}
	if e.Tick(context.Background()) != nil {
		t.Error("Tick() while loading returned a result")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if e.TimeLeft() != 60 {
		t.Errorf("TimeLeft() = %d; want 60 (tick while loading ignored)", e.TimeLeft())
	}
}

func TestEngine_Start_WhileRunning(t *testing.T) {
	e := startedEngine(t, 3)

	if err := e.Start(context.Background(), testConfig(3)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Start() error = %v; want ErrInvalidOperation", err)
	}
}

func TestEngine_Tick(t *testing.T) {
	e := startedEngine(t, 3)

	for i := 0; i < 5; i++ {
		if r := e.Tick(context.Background()); r != nil {
			t.Fatalf("Tick() finished early at %d", i)
		}
	}
	if e.TimeLeft() != 55 {
		t.Errorf("TimeLeft() = %d; want 55", e.TimeLeft())
	}
}

func TestEngine_Tick_ExpiryMatchesSubmit(t *testing.T) {
	answers := map[int]string{0: "A", 1: "B", 3: "A"}

	manual := startedEngine(t, 4)
	expiring := startedEngine(t, 4)
	for i, a := range answers {
		manual.Answer(i, a)
		expiring.Answer(i, a)
	}

	for expiring.TimeLeft() > 1 {
		expiring.Tick(context.Background())
	}
	timed := expiring.Tick(context.Background())
	if timed == nil {
		t.Fatal("Tick() at 1s returned nil")
	}
	if !timed.TimeExpired {
		t.Error("TimeExpired = false")
	}
	if expiring.Phase() != PhaseFinished || expiring.TimeLeft() != 0 {
		t.Errorf("phase %s time %d; want finished at 0", expiring.Phase(), expiring.TimeLeft())
	}

	submitted, err := manual.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submitted.TimeExpired {
		t.Error("manual submit reported TimeExpired")
	}
	if timed.Score != submitted.Score || timed.Score != 2 {
		t.Errorf("scores timed=%d manual=%d; want 2", timed.Score, submitted.Score)
	}
	if len(timed.Mistakes) != len(submitted.Mistakes) {
		t.Errorf("mistakes timed=%d manual=%d", len(timed.Mistakes), len(submitted.Mistakes))
	}
}

func TestEngine_Tick_AfterFinishIsNoop(t *testing.T) {
	e := startedEngine(t, 2)
	e.Submit(context.Background())
	left := e.TimeLeft()

	if r := e.Tick(context.Background()); r != nil {
		t.Error("Tick() after submit returned a result")
	}
	if e.TimeLeft() != left {
		t.Error("Tick() after submit changed the timer")
	}
}

func TestEngine_Submit_AllBlank(t *testing.T) {
	sink := &recordingSink{}
	e := startedEngine(t, 5, WithMistakeSink(sink))

	result, err := e.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Score != 0 || len(result.Mistakes) != 0 || result.Answered != 0 {
		t.Errorf("result = %+v; want zero score and no mistakes", result)
	}
	if sink.count() != 0 {
		t.Errorf("sink received %d mistakes; want 0", sink.count())
	}
}

func TestEngine_Submit_ScoresAndRecords(t *testing.T) {
	sink := &recordingSink{}
	awarder := &recordingAwarder{}
	e := startedEngine(t, 4, WithMistakeSink(sink), WithAwarder(awarder))

	e.Answer(0, "A")
	e.Answer(1, "C")
	e.Answer(2, "D")

	result, err := e.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Score != 1 || result.Total != 4 || result.Answered != 3 {
		t.Errorf("result = %+v; want score 1 of 4 with 3 answered", result)
	}
	if len(result.Mistakes) != 2 || sink.count() != 2 {
		t.Fatalf("mistakes result=%d sink=%d; want 2", len(result.Mistakes), sink.count())
	}

	m := sink.mistakes[0]
	if m.Question.ID != "q1" || m.UserAnswer != "C" || m.Timestamp != fixedNow.UnixMilli() {
		t.Errorf("mistake = %+v", m)
	}
	if m.Question.Answer != "A" {
		t.Errorf("mistake snapshot answer = %q; want A", m.Question.Answer)
	}

	if awarder.count() != 1 {
		t.Fatalf("award calls = %d; want 1", awarder.count())
	}
	call := awarder.calls[0]
	if call.amount != 50 || len(call.badges) != 1 || call.badges[0] != domain.BadgeMarathoner {
		t.Errorf("award = %+v; want 50 with marathoner", call)
	}
	if got := result.Percent(); got != 25 {
		t.Errorf("Percent() = %v; want 25", got)
	}
}

func TestEngine_Submit_CustomAward(t *testing.T) {
	awarder := &recordingAwarder{}
	e := startedEngine(t, 1, WithAwarder(awarder), WithAward(Award{XP: 80}))

	e.Submit(context.Background())
	if awarder.calls[0].amount != 80 || len(awarder.calls[0].badges) != 0 {
		t.Errorf("award = %+v; want 80 with no badge", awarder.calls[0])
	}
}

func TestEngine_Submit_Twice(t *testing.T) {
	awarder := &recordingAwarder{}
	sink := &recordingSink{}
	e := startedEngine(t, 2, WithAwarder(awarder), WithMistakeSink(sink))
	e.Answer(0, "B")

	first, _ := e.Submit(context.Background())
	second, err := e.Submit(context.Background())
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if first != second {
		t.Error("second Submit() returned a different result")
	}
	if awarder.count() != 1 || sink.count() != 1 {
		t.Errorf("side effects awards=%d mistakes=%d; want 1 each", awarder.count(), sink.count())
	}
}

func TestEngine_Submit_BeforeStart(t *testing.T) {
	e := NewEngine(staticProvider(1), WithLogger(discardLogger()))

	if _, err := e.Submit(context.Background()); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Submit() error = %v; want ErrInvalidOperation", err)
	}
}

func TestEngine_Submit_AwardWarning(t *testing.T) {
	awarder := &recordingAwarder{err: errors.New("progress not persisted")}
	e := startedEngine(t, 1, WithAwarder(awarder))

	result, err := e.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %v; want 1", result.Warnings)
	}
	if e.Result() != result {
		t.Error("Result() does not return the final result")
	}
}

func TestEngine_Submit_RacesExpiry(t *testing.T) {
	for i := 0; i < 50; i++ {
		awarder := &recordingAwarder{}
		e := NewEngine(staticProvider(2), WithLogger(discardLogger()), WithAwarder(awarder))
		cfg := testConfig(2)
		cfg.Duration = time.Second
		if err := e.Start(context.Background(), cfg); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Tick(context.Background())
		}()
		go func() {
			defer wg.Done()
			e.Submit(context.Background())
		}()
		wg.Wait()

		if awarder.count() != 1 {
			t.Fatalf("iteration %d: award calls = %d; want exactly 1", i, awarder.count())
		}
	}
}

func TestEngine_AfterFinish_Rejected(t *testing.T) {
	e := startedEngine(t, 3)
	e.Submit(context.Background())

	if err := e.Answer(0, "A"); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Answer() error = %v; want ErrInvalidOperation", err)
	}
	if err := e.Navigate(1); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Navigate() error = %v; want ErrInvalidOperation", err)
	}
	if err := e.ToggleReview(1); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("ToggleReview() error = %v; want ErrInvalidOperation", err)
	}
}

func TestEngine_Answer(t *testing.T) {
	e := startedEngine(t, 3)

	if err := e.Answer(1, "B"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if err := e.Answer(1, "C"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	q := e.Questions()[1]
	if q.UserAnswer != "C" || q.Status != StatusAnswered {
		t.Errorf("question = %q/%s; want C/answered", q.UserAnswer, q.Status)
	}

	tests := []struct {
		name   string
		index  int
		option string
	}{
		{"negative index", -1, "A"},
		{"index past end", 3, "A"},
		{"unknown option", 0, "E"},
		{"blank option", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Answer(tt.index, tt.option); !errors.Is(err, ErrInvalidOperation) {
				t.Errorf("Answer(%d, %q) error = %v; want ErrInvalidOperation", tt.index, tt.option, err)
			}
		})
	}
}

func TestEngine_ToggleReview(t *testing.T) {
	e := startedEngine(t, 2)

	// answered -> review -> answered
	e.Answer(0, "A")
	e.ToggleReview(0)
	if got := e.Questions()[0].Status; got != StatusReview {
		t.Errorf("status = %s; want review", got)
	}
	e.ToggleReview(0)
	q := e.Questions()[0]
	if q.Status != StatusAnswered || q.UserAnswer != "A" {
		t.Errorf("after round trip = %s/%q; want answered/A", q.Status, q.UserAnswer)
	}

	// unvisited -> review -> unanswered
	e.ToggleReview(1)
	if got := e.Questions()[1].Status; got != StatusReview {
		t.Errorf("status = %s; want review", got)
	}
	e.ToggleReview(1)
	if got := e.Questions()[1].Status; got != StatusUnanswered {
		t.Errorf("status = %s; want unanswered", got)
	}

	if err := e.ToggleReview(9); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("ToggleReview(9) error = %v; want ErrInvalidOperation", err)
	}
}

func TestEngine_AnswerWhileInReview(t *testing.T) {
	e := startedEngine(t, 1)

	e.ToggleReview(0)
	e.Answer(0, "B")
	if got := e.Questions()[0].Status; got != StatusAnswered {
		t.Errorf("status = %s; want answered", got)
	}
}

func TestEngine_Navigate(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(e *Engine)
		to        int
		wantFirst QuestionStatus
	}{
		{"leaving unvisited promotes", func(e *Engine) {}, 2, StatusUnanswered},
		{"leaving answered keeps", func(e *Engine) { e.Answer(0, "B") }, 2, StatusAnswered},
		{"leaving review keeps", func(e *Engine) { e.ToggleReview(0) }, 2, StatusReview},
		{"staying in place still promotes", func(e *Engine) {}, 0, StatusUnanswered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := startedEngine(t, 3)
			tt.setup(e)

			if err := e.Navigate(tt.to); err != nil {
				t.Fatalf("Navigate() error = %v", err)
			}
			if e.Current() != tt.to {
				t.Errorf("Current() = %d; want %d", e.Current(), tt.to)
			}
			qs := e.Questions()
			if qs[0].Status != tt.wantFirst {
				t.Errorf("first question status = %s; want %s", qs[0].Status, tt.wantFirst)
			}
			if tt.to != 0 && qs[tt.to].Status != StatusUnvisited {
				t.Errorf("target status = %s; want unvisited", qs[tt.to].Status)
			}
		})
	}
}

func TestEngine_Navigate_OutOfRange(t *testing.T) {
	e := startedEngine(t, 3)

	for _, to := range []int{-1, 3} {
		if err := e.Navigate(to); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("Navigate(%d) error = %v; want ErrInvalidOperation", to, err)
		}
	}
	if got := e.Questions()[0].Status; got != StatusUnvisited {
		t.Errorf("rejected navigate changed status to %s", got)
	}
}

func TestEngine_Snapshot_HidesAnswers(t *testing.T) {
	e := startedEngine(t, 2)
	e.Answer(0, "B")
	e.ToggleReview(1)

	snap := e.Snapshot()
	if snap.Phase != PhaseRunning || snap.Total != 2 || snap.Answered != 1 || snap.Review != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	for _, q := range snap.Questions {
		if q.Answer != "" {
			t.Errorf("question %s exposes answer while running", q.ID)
		}
	}

	e.Submit(context.Background())
	snap = e.Snapshot()
	if snap.Questions[0].Answer != "A" {
		t.Errorf("Answer = %q after finish; want A", snap.Questions[0].Answer)
	}
	if snap.Result == nil {
		t.Error("Result missing after finish")
	}
}

func TestEngine_Watch(t *testing.T) {
	e := startedEngine(t, 2)

	updates, stop := e.Watch()
	defer stop()

	initial := <-updates
	if initial.Phase != PhaseRunning {
		t.Errorf("initial phase = %s", initial.Phase)
	}

	e.Tick(context.Background())
	snap := <-updates
	if snap.TimeLeft != 59 {
		t.Errorf("TimeLeft = %d; want 59", snap.TimeLeft)
	}

	e.Submit(context.Background())
	var last Snapshot
	for s := range updates {
		last = s
	}
	if last.Phase != PhaseFinished {
		t.Errorf("last phase = %s; want finished", last.Phase)
	}

	late, _ := e.Watch()
	if s, ok := <-late; !ok || s.Phase != PhaseFinished {
		t.Error("watch after finish did not yield the final snapshot")
	}
	if _, ok := <-late; ok {
		t.Error("watch after finish not closed")
	}
}

func TestWatchers_LatePublishAfterFinish(t *testing.T) {
	var w watchers
	updates, _ := w.add(Snapshot{Phase: PhaseRunning, TimeLeft: 2})
	<-updates

	w.finish(Snapshot{Phase: PhaseFinished})
	// a tick snapshot built before finish, delivered after it
	w.publish(Snapshot{Phase: PhaseRunning, TimeLeft: 1})
	w.finish(Snapshot{Phase: PhaseRunning})

	if s, ok := <-updates; !ok || s.Phase != PhaseFinished {
		t.Errorf("final update = %+v, %t; want finished", s, ok)
	}
	if _, ok := <-updates; ok {
		t.Error("channel not closed after finish")
	}

	late, _ := w.add(Snapshot{Phase: PhaseRunning})
	if s := <-late; s.Phase != PhaseFinished {
		t.Errorf("late watcher got phase %s; want finished", s.Phase)
	}
}

func TestConfigFromPreset(t *testing.T) {
	preset := domain.DefaultPresets()[domain.ExamVITEEE]
	cfg := ConfigFromPreset(preset, domain.DifficultyHard)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.TotalQuestions != 125 || cfg.Seconds() != 9000 || cfg.ExamMode != domain.ExamVITEEE {
		t.Errorf("config = %+v", cfg)
	}
	if len(cfg.Topics) != 13 {
		t.Errorf("len(Topics) = %d; want 13", len(cfg.Topics))
	}
}
