package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/studyd/internal/study"
)

// defaultSleepHours stands in for a profile without sleep hours.
const defaultSleepHours = 7

// CheckinState is the manual check-in form.
type CheckinState struct {
	Open     bool              `json:"open"`
	Updating bool              `json:"updating"`
	Form     study.CheckinForm `json:"form"`
}

type checkinFlow struct {
	state CheckinState
}

// Checkin returns the check-in form state.
func (s *Session) Checkin() CheckinState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkin.state
}

// OpenCheckin shows the check-in form and refreshes subject suggestions.
func (s *Session) OpenCheckin(ctx context.Context) {
	s.mu.Lock()
	s.checkin.state.Open = true
	s.mu.Unlock()
	s.LoadSubjects(ctx)
}

// CloseCheckin hides the form, keeping what was typed.
func (s *Session) CloseCheckin() {
	s.mu.Lock()
	s.checkin.state.Open = false
	s.mu.Unlock()
}

// StageCheckin replaces the form contents.
func (s *Session) StageCheckin(form study.CheckinForm) {
	s.mu.Lock()
	s.checkin.state.Form = form
	s.mu.Unlock()
}

// RegisterSession records the staged check-in as a manual study session.
// The weekday comes from the clock and sleep hours from the profile. On
// success it awards experience and announces the session in the
// conversation. Subject and energy are cleared whatever the outcome.
func (s *Session) RegisterSession(ctx context.Context) error {
	s.mu.Lock()
	form := s.checkin.state.Form
	form.Subject = strings.TrimSpace(form.Subject)
	if form.Subject == "" {
		s.mu.Unlock()
		return ErrSubjectRequired
	}
	if s.checkin.state.Updating {
		s.mu.Unlock()
		return nil
	}
	s.checkin.state.Updating = true
	sleep := s.profile.SleepHours
	if sleep <= 0 {
		sleep = defaultSleepHours
	}
	weekday := study.WeekdayName(s.clock.Now())
	epoch := s.epoch
	s.mu.Unlock()

	rec := study.SessionRecord{
		Subject:        form.Subject,
		Hours:          form.Hours,
		Difficulty:     form.Difficulty,
		Energy:         form.Energy,
		GoalMet:        form.GoalMet,
		BlockingFactor: form.BlockingFactor,
		Grade:          form.Grade,
		Weekday:        weekday,
		SleepHours:     sleep,
		Location:       form.Location,
		Activity:       form.Activity,
		Kind:           study.SessionManual,
	}
	err := s.backend.RecordSession(ctx, rec)

	s.mu.Lock()
	stale := s.epoch != epoch
	if !stale {
		st := &s.checkin.state
		st.Updating = false
		st.Form.Subject = ""
		st.Form.Energy = study.DefaultEnergy
		if err == nil {
			st.Open = false
		}
	}
	s.mu.Unlock()

	if err != nil {
		return wrapBackend("registering session", err)
	}
	if stale {
		return nil
	}

	s.award(ctx, "checkin", XPCheckin)
	s.PostSystemEvent(study.ChatTurn{
		Role: study.RoleAssistant,
		Text: fmt.Sprintf("📝 Registered %.1f h of %s.", rec.Hours, rec.Subject),
	})
	return nil
}
