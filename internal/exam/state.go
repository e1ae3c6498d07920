// Package exam holds the per-session state machine that accumulates a
// user's answers between the start and the end of an exam attempt.
package exam

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/pvidal/quizmark/internal/model"
)

var (
	// ErrActive is returned when starting an exam that is already running.
	ErrActive = errors.New("exam already active")
	// ErrNotActive is returned when ending an exam that was never started
	// or has already ended.
	ErrNotActive = errors.New("exam not active")
)

// State tracks one exam attempt: lifecycle flag, start time and the
// accumulated answer set. One instance per attempt; there is no reset, a
// new attempt needs a new instance. Safe for concurrent use.
type State struct {
	quizName string

	mu        sync.Mutex
	active    bool
	startTime time.Time
	answers   map[int]model.Answer
}

// New creates an inactive exam state for the named quiz.
func New(quizName string) *State {
	return &State{
		quizName: quizName,
		answers:  make(map[int]model.Answer),
	}
}

// QuizName returns the immutable quiz name.
func (s *State) QuizName() string { return s.quizName }

// Active reports whether the exam is currently running.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start transitions the exam to active and records the wall-clock start
// time. Starting an already-active exam is rejected rather than re-arming
// the timer.
func (s *State) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		slog.Warn("exam already active, ignoring start", "quiz", s.quizName)
		return ErrActive
	}
	s.active = true
	s.startTime = time.Now()
	slog.Info("exam started", "quiz", s.quizName)
	return nil
}

// AddAnswer records the user's answer for a question index, overwriting any
// earlier answer at the same index. Calls while the exam is not active are
// ignored with a warning.
func (s *State) AddAnswer(index int, answer model.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		slog.Warn("answer submitted while exam not active, ignoring",
			"quiz", s.quizName, "index", index)
		return
	}
	s.answers[index] = answer
	slog.Debug("answer recorded", "quiz", s.quizName, "index", index)
}

// Snapshot is the sealed outcome of an exam attempt.
type Snapshot struct {
	Answers   map[int]model.Answer
	StartTime time.Time
}

// End seals the answer set and transitions the exam back to inactive. It
// returns a copy of the accumulated answers together with the recorded
// start time. Ending an exam that is not active is an error.
func (s *State) End() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		slog.Warn("exam not active, ignoring end", "quiz", s.quizName)
		return Snapshot{}, ErrNotActive
	}
	s.active = false
	slog.Info("exam ended", "quiz", s.quizName, "answers", len(s.answers))
	return Snapshot{
		Answers:   maps.Clone(s.answers),
		StartTime: s.startTime,
	}, nil
}

// Answers returns a copy of the currently accumulated answers. Valid in any
// state.
func (s *State) Answers() map[int]model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.answers)
}
