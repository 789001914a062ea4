package session

import (
	"context"
	"strings"

	"github.com/kalambet/studyd/internal/study"
)

const errorTurnText = "Sorry, I could not reach the planner. Please try again."

// Transcript returns a copy of the conversation.
func (s *Session) Transcript() []study.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

// Busy reports whether a user-initiated send is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SetInput replaces the pending input text.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Send submits the pending input as a user turn. It returns ErrEmptyMessage
// for blank input and ErrReplyPending, without sending, while another send
// is in flight. The assistant reply, or an error turn on failure, is
// appended when the call completes.
func (s *Session) Send(ctx context.Context) error {
	s.mu.Lock()
	return s.sendLocked(ctx)
}

// Say sets the input to text and sends it in one step.
func (s *Session) Say(ctx context.Context, text string) error {
	s.mu.Lock()
	s.input = text
	return s.sendLocked(ctx)
}

// sendLocked is entered with s.mu held and releases it.
func (s *Session) sendLocked(ctx context.Context) error {
	text := strings.TrimSpace(s.input)
	if text == "" {
		s.mu.Unlock()
		return ErrEmptyMessage
	}
	if s.busy {
		s.mu.Unlock()
		s.logger.Debug("send ignored, reply pending")
		return ErrReplyPending
	}
	s.transcript = append(s.transcript, study.ChatTurn{Role: study.RoleUser, Text: text})
	s.input = ""
	s.busy = true
	history := s.transcriptLocked()
	epoch := s.epoch
	s.scheduleScrollLocked()
	s.mu.Unlock()

	reply, err := s.backend.Converse(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.busy = false
	if err != nil {
		s.transcript = append(s.transcript, study.ChatTurn{Role: study.RoleAssistant, Text: errorTurnText})
		s.scheduleScrollLocked()
		return wrapBackend("sending message", err)
	}
	if reply.Role == "" {
		reply.Role = study.RoleAssistant
	}
	s.transcript = append(s.transcript, reply)
	s.scheduleScrollLocked()
	return nil
}

// PostSystemEvent appends turn to the transcript and silently sends the
// updated transcript so the backend's context stays complete. The silent
// send runs in the background; its reply is discarded and it never touches
// the busy flag. A closed session only appends the turn.
func (s *Session) PostSystemEvent(turn study.ChatTurn) {
	if turn.Role == "" {
		turn.Role = study.RoleAssistant
	}
	s.mu.Lock()
	s.transcript = append(s.transcript, turn)
	history := s.transcriptLocked()
	s.scheduleScrollLocked()
	closed := s.closed
	if !closed {
		s.bg.Add(1)
	}
	s.mu.Unlock()

	if closed {
		s.logger.Debug("silent send skipped, session closed")
		return
	}
	go func() {
		defer s.bg.Done()
		if _, err := s.backend.Converse(s.ctx, history); err != nil {
			s.logger.Warn("silent send failed", "error", err)
		}
	}()
}

// LoadHistory replaces the transcript with the backend's stored history.
func (s *Session) LoadHistory(ctx context.Context) error {
	epoch := s.currentEpoch()
	turns, err := s.backend.ChatHistory(ctx)
	if err != nil {
		return wrapBackend("loading chat history", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || turns == nil {
		return nil
	}
	s.transcript = turns
	s.scheduleScrollLocked()
	return nil
}

// LatestSchedule returns the most recent generated schedule in the
// transcript.
func (s *Session) LatestSchedule() (study.ChatTurn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestScheduleLocked()
}

func (s *Session) latestScheduleLocked() (study.ChatTurn, bool) {
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if s.transcript[i].HasSchedule() {
			return s.transcript[i], true
		}
	}
	return study.ChatTurn{}, false
}

// transcriptLocked copies the turn slice. Turns are never mutated once
// appended, so their payloads are shared.
func (s *Session) transcriptLocked() []study.ChatTurn {
	out := make([]study.ChatTurn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) scheduleScrollLocked() {
	if s.view == nil {
		return
	}
	s.sched.After(scrollDelay, s.view.ScrollToBottom)
}
