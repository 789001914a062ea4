package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/studyd/internal/study"
)

// TimerMode is the kind of interval the timer is counting down.
type TimerMode string

const (
	ModeFocus TimerMode = "Focus"
	ModeBreak TimerMode = "Break"
)

// breakThreshold is the longest duration ResetTimer treats as a break.
const breakThreshold = 15

// TimerState is the focus timer as seen by the user.
type TimerState struct {
	Mode    TimerMode `json:"mode"`
	Minutes int       `json:"minutes"`
	Seconds int       `json:"seconds"`
	Running bool      `json:"running"`
	Subject string    `json:"subject"`
	Phase   string    `json:"phase"`
}

// Remaining is the time left on the current interval.
func (t TimerState) Remaining() time.Duration {
	return time.Duration(t.Minutes)*time.Minute + time.Duration(t.Seconds)*time.Second
}

func (t TimerState) String() string {
	return fmt.Sprintf("%02d:%02d", t.Minutes, t.Seconds)
}

type timerController struct {
	state TimerState
	// started is set on the first start after a reset; Idle and Paused
	// differ only by it.
	started bool
	// completing is set while a finished focus interval is being recorded.
	completing bool
	cancel     func()
	// gen invalidates ticks scheduled before the last stop.
	gen uint64
}

// Timer returns the current timer state.
func (s *Session) Timer() TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerStateLocked()
}

// SetTimerSubject sets the subject a focus interval is recorded under.
func (s *Session) SetTimerSubject(subject string) {
	s.mu.Lock()
	s.timer.state.Subject = strings.TrimSpace(subject)
	s.mu.Unlock()
}

// OpenTimer resets the timer to the preferred focus duration and refreshes
// the subject suggestions.
func (s *Session) OpenTimer(ctx context.Context) {
	s.mu.Lock()
	s.resetTimerLocked(s.focusMinutesLocked())
	s.mu.Unlock()
	s.LoadSubjects(ctx)
}

// CloseTimer pauses the timer.
func (s *Session) CloseTimer() {
	s.PauseTimer()
}

// StartTimer starts the countdown. It does nothing if the timer is already
// running, so there is never more than one tick source. Focus intervals need
// a subject.
func (s *Session) StartTimer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &s.timer
	if t.state.Running || t.completing {
		return nil
	}
	if t.state.Mode == ModeFocus && t.state.Subject == "" {
		return ErrSubjectRequired
	}
	s.stopTickLocked()
	t.state.Running = true
	t.started = true
	gen := t.gen
	t.cancel = s.sched.Every(time.Second, func() { s.tick(gen) })
	return nil
}

// PauseTimer stops the countdown, keeping the remaining time.
func (s *Session) PauseTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.state.Running {
		s.stopTickLocked()
	}
}

// ToggleTimer starts a stopped timer or pauses a running one.
func (s *Session) ToggleTimer() error {
	if s.Timer().Running {
		s.PauseTimer()
		return nil
	}
	return s.StartTimer()
}

// ResetTimer stops the timer and sets it to minutes:00. Durations up to
// fifteen minutes are breaks, longer ones are focus intervals.
func (s *Session) ResetTimer(minutes int) error {
	if minutes < 0 {
		return ErrInvalidDuration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTimerLocked(minutes)
	return nil
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	t := &s.timer
	if !t.state.Running || t.gen != gen {
		s.mu.Unlock()
		return
	}
	switch {
	case t.state.Seconds > 0:
		t.state.Seconds--
	case t.state.Minutes > 0:
		t.state.Minutes--
		t.state.Seconds = 59
	}
	done := t.state.Minutes == 0 && t.state.Seconds == 0
	if done {
		s.bg.Add(1)
	}
	s.mu.Unlock()

	if done {
		defer s.bg.Done()
		s.completeTimer(s.ctx, gen)
	}
}

// completeTimer ends the interval that ticked to zero. A break rolls over
// into a fresh focus interval. A focus interval is recorded as a pomodoro
// session first; if recording fails the timer stays stopped at 00:00.
func (s *Session) completeTimer(ctx context.Context, gen uint64) {
	s.mu.Lock()
	t := &s.timer
	if t.gen != gen {
		s.mu.Unlock()
		return
	}
	s.stopTickLocked()

	if t.state.Mode == ModeBreak {
		s.resetTimerLocked(s.focusMinutesLocked())
		s.mu.Unlock()
		s.alert("Break is over. Back to work!")
		return
	}

	focus := s.focusMinutesLocked()
	subject := t.state.Subject
	epoch := s.epoch
	stopped := t.gen
	t.completing = true
	s.mu.Unlock()

	rec := study.SessionRecord{
		Subject: subject,
		Hours:   float64(focus) / 60,
		Kind:    study.SessionPomodoro,
	}
	err := s.backend.RecordSession(ctx, rec)

	s.mu.Lock()
	t.completing = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("recording focus session failed", "subject", subject, "error", err)
		return
	}
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	// The user may have reset the timer while the record was in flight.
	if t.gen == stopped {
		s.resetTimerLocked(s.breakMinutes)
	}
	s.mu.Unlock()

	s.logger.Info("focus session completed", "subject", subject, "minutes", focus)
	s.award(ctx, "focus_session", XPFocusSession)
	s.PostSystemEvent(study.ChatTurn{
		Role: study.RoleAssistant,
		Text: fmt.Sprintf("🍅 Completed a %d-minute focus session on %s.", focus, subject),
	})
	s.alert("Focus session complete. Take a break!")
}

func (s *Session) stopTickLocked() {
	t := &s.timer
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	t.state.Running = false
}

func (s *Session) resetTimerLocked(minutes int) {
	s.stopTickLocked()
	t := &s.timer
	t.state.Minutes = minutes
	t.state.Seconds = 0
	t.started = false
	if minutes <= breakThreshold {
		t.state.Mode = ModeBreak
	} else {
		t.state.Mode = ModeFocus
	}
}

func (s *Session) focusMinutesLocked() int {
	return s.profile.Stamina.FocusMinutes()
}

func (s *Session) timerStateLocked() TimerState {
	st := s.timer.state
	switch {
	case st.Running:
		st.Phase = string(st.Mode) + "-Running"
	case !s.timer.started:
		st.Phase = "Idle"
	default:
		st.Phase = string(st.Mode) + "-Paused"
	}
	return st
}
