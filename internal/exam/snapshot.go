package exam

import (
	"slices"
	"sync"

	"github.com/felixgeelhaar/prepwise/internal/domain"
)

// QuestionView is the client-facing form of a question. The correct answer
// is only filled in once the attempt has finished.
type QuestionView struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Question   string         `json:"question"`
	Options    []string       `json:"options"`
	Status     QuestionStatus `json:"status"`
	UserAnswer string         `json:"user_answer,omitempty"`
	Answer     string         `json:"answer,omitempty"`
}

// Snapshot is a consistent view of an attempt at one instant
type Snapshot struct {
	Phase      Phase             `json:"phase"`
	Current    int               `json:"current"`
	TimeLeft   int               `json:"time_left_seconds"`
	Total      int               `json:"total"`
	Answered   int               `json:"answered"`
	Review     int               `json:"review"`
	ExamMode   domain.ExamMode   `json:"exam_mode,omitempty"`
	Difficulty domain.Difficulty `json:"difficulty,omitempty"`
	Questions  []QuestionView    `json:"questions"`
	Result     *Result           `json:"result,omitempty"`
}

// Snapshot returns the current view of the attempt
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	finished := e.phase == PhaseFinished
	snap := Snapshot{
		Phase:      e.phase,
		Current:    e.current,
		TimeLeft:   e.timeLeft,
		Total:      len(e.questions),
		ExamMode:   e.config.ExamMode,
		Difficulty: e.config.Difficulty,
		Questions:  make([]QuestionView, len(e.questions)),
		Result:     e.result,
	}
	for i, q := range e.questions {
		view := QuestionView{
			ID:         q.ID,
			Topic:      q.Topic,
			Question:   q.Question.Question,
			Options:    slices.Clone(q.Options),
			Status:     q.Status,
			UserAnswer: q.UserAnswer,
		}
		if finished {
			view.Answer = q.Answer
		}
		if q.UserAnswer != "" {
			snap.Answered++
		}
		if q.Status == StatusReview {
			snap.Review++
		}
		snap.Questions[i] = view
	}
	return snap
}

// Watch streams snapshots after every change. Slow readers only see the
// latest snapshot. The channel is closed once the attempt finishes; call
// the returned function to stop watching earlier.
func (e *Engine) Watch() (<-chan Snapshot, func()) {
	return e.watchers.add(e.Snapshot())
}

func (e *Engine) notify() {
	if !e.watchers.active() {
		return
	}
	e.watchers.publish(e.Snapshot())
}

type watchers struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Snapshot
	closed bool
	last   Snapshot
}

func (w *watchers) add(initial Snapshot) (<-chan Snapshot, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if w.closed {
		ch <- w.last
		close(ch)
		return ch, func() {}
	}
	ch <- initial

	if w.subs == nil {
		w.subs = make(map[int]chan Snapshot)
	}
	id := w.next
	w.next++
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
	}
}

func (w *watchers) active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs) > 0
}

// publish hands snap to every subscriber. Snapshots built before finish
// but delivered after it are dropped.
func (w *watchers) publish(snap Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.send(snap)
}

// send replaces any unread snapshot with snap. Callers hold w.mu.
func (w *watchers) send(snap Snapshot) {
	w.last = snap
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// finish sends the final snapshot and ends every subscription
func (w *watchers) finish(final Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.send(final)
	w.closed = true
	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
}
