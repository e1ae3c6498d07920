package exam

import (
	"errors"
	"testing"

	"github.com/pvidal/quizmark/internal/model"
)

func TestLifecycle(t *testing.T) {
	s := New("Quiz A")

	if s.Active() {
		t.Fatal("new state should be inactive")
	}
	if s.QuizName() != "Quiz A" {
		t.Errorf("expected quiz name 'Quiz A', got %q", s.QuizName())
	}

	// Answers before start are ignored.
	s.AddAnswer(0, model.BoolAnswer(true))
	if len(s.Answers()) != 0 {
		t.Fatalf("expected no answers before start, got %d", len(s.Answers()))
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("state should be active after start")
	}

	s.AddAnswer(0, model.BoolAnswer(true))
	got := s.Answers()
	if len(got) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(got))
	}
	if a, ok := got[0]; !ok || a.Bool == nil || !*a.Bool {
		t.Errorf("expected answer true at index 0, got %+v", a)
	}

	snap, err := s.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Active() {
		t.Fatal("state should be inactive after end")
	}
	if len(snap.Answers) != 1 {
		t.Fatalf("expected 1 answer in snapshot, got %d", len(snap.Answers))
	}
	if snap.StartTime.IsZero() {
		t.Error("snapshot should carry the recorded start time")
	}
}

func TestStartWhileActive(t *testing.T) {
	s := New("Quiz B")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrActive) {
		t.Errorf("expected ErrActive, got %v", err)
	}
	if !s.Active() {
		t.Error("rejected start should leave the exam active")
	}
}

func TestEndGuards(t *testing.T) {
	s := New("Quiz C")

	if _, err := s.End(); !errors.Is(err, ErrNotActive) {
		t.Errorf("End before Start: expected ErrNotActive, got %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := s.End(); !errors.Is(err, ErrNotActive) {
		t.Errorf("double End: expected ErrNotActive, got %v", err)
	}
}

func TestAddAnswerOverwrites(t *testing.T) {
	s := New("Quiz D")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.AddAnswer(2, model.ChoiceAnswer(0))
	s.AddAnswer(2, model.ChoiceAnswer(3))

	got := s.Answers()
	if len(got) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(got))
	}
	if a := got[2]; a.Choice == nil || *a.Choice != 3 {
		t.Errorf("expected later answer to overwrite, got %+v", a)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New("Quiz E")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.AddAnswer(0, model.TextAnswer("hello"))

	snap, err := s.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	delete(snap.Answers, 0)
	if len(s.Answers()) != 1 {
		t.Error("mutating the snapshot should not affect the state")
	}
}
