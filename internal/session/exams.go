package session

import (
	"context"

	"github.com/kalambet/studyd/internal/study"
)

// ExamsState is the exam planner's working set.
type ExamsState struct {
	Open     bool             `json:"open"`
	Crisis   bool             `json:"crisis"`
	Updating bool             `json:"updating"`
	Rows     []study.ExamItem `json:"rows"`
}

type examPlanner struct {
	state ExamsState
	// gen changes whenever the planner is opened or closed.
	gen uint64
}

// Exams returns the planner's working set.
func (s *Session) Exams() ExamsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.examsStateLocked()
}

// OpenExams starts a new working set with a single default row in
// standard mode.
func (s *Session) OpenExams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams.gen++
	s.exams.state = ExamsState{
		Open: true,
		Rows: []study.ExamItem{study.NewExamItem(s.clock.Now())},
	}
}

// CloseExams dismisses the planner. A plan still being generated is
// dropped when it arrives.
func (s *Session) CloseExams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams.gen++
	s.exams.state.Open = false
	s.exams.state.Updating = false
}

// AddExamRow appends a default row.
func (s *Session) AddExamRow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exams.state.Open {
		return
	}
	s.exams.state.Rows = append(s.exams.state.Rows, study.NewExamItem(s.clock.Now()))
}

// UpdateExamRow replaces row i. An index out of range is ignored.
func (s *Session) UpdateExamRow(i int, item study.ExamItem) error {
	if item.Confidence < 0 || item.Confidence > 100 || item.Hours < 0 {
		return ErrInvalidExam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.exams.state.Rows
	if !s.exams.state.Open || i < 0 || i >= len(rows) {
		return nil
	}
	rows[i] = item
	return nil
}

// RemoveExamRow deletes row i. The working set always keeps at least one
// row, so removing the last one is ignored.
func (s *Session) RemoveExamRow(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.exams.state.Rows
	if len(rows) <= 1 || i < 0 || i >= len(rows) {
		s.logger.Debug("exam row removal ignored", "index", i, "rows", len(rows))
		return
	}
	s.exams.state.Rows = append(rows[:i:i], rows[i+1:]...)
}

// SetCrisisMode selects the crisis strategy instead of the standard one.
func (s *Session) SetCrisisMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exams.state.Crisis = on
}

// SubmitExams sends the working set to the standard or crisis planner. On
// success the planner closes and the generated plan is posted to the
// conversation and returned. If the planner was closed in the meantime the
// plan is dropped and the returned turn is nil.
func (s *Session) SubmitExams(ctx context.Context) (*study.ChatTurn, error) {
	s.mu.Lock()
	if !s.exams.state.Open || s.exams.state.Updating {
		s.mu.Unlock()
		return nil, nil
	}
	s.exams.state.Updating = true
	rows := append([]study.ExamItem(nil), s.exams.state.Rows...)
	crisis := s.exams.state.Crisis
	gen := s.exams.gen
	epoch := s.epoch
	s.mu.Unlock()

	var (
		turn study.ChatTurn
		err  error
	)
	if crisis {
		turn, err = s.backend.PlanCrisis(ctx, rows)
	} else {
		turn, err = s.backend.PlanExams(ctx, rows)
	}

	s.mu.Lock()
	if s.epoch != epoch || s.exams.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("exam plan dropped, planner closed")
		return nil, nil
	}
	s.exams.state.Updating = false
	if err != nil {
		s.mu.Unlock()
		return nil, wrapBackend("generating exam plan", err)
	}
	s.exams.gen++
	s.exams.state = ExamsState{}
	s.mu.Unlock()

	s.PostSystemEvent(turn)
	return &turn, nil
}

func (s *Session) examsStateLocked() ExamsState {
	st := s.exams.state
	st.Rows = append([]study.ExamItem(nil), st.Rows...)
	return st
}
