package session

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/studyd/internal/study"
)

type profileEdit struct {
	open bool
	buf  study.Profile
	// gen identifies the current edit session; responses for an older one
	// are dropped.
	gen uint64
}

// HasProfile reports whether the backend holds a profile.
func (s *Session) HasProfile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasProfile
}

// Profile returns the live profile.
func (s *Session) Profile() study.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// EditBuffer returns the staged edit and whether an edit is open.
func (s *Session) EditBuffer() (study.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit.buf, s.edit.open
}

// Bootstrap performs the startup loads: profile existence and calendar
// status are checked concurrently, and an existing profile pulls in the
// conversation history and the stored profile.
func (s *Session) Bootstrap(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.CheckProfile(ctx) })
	g.Go(func() error {
		s.CheckCalendar(ctx)
		return nil
	})
	return g.Wait()
}

// CheckProfile asks the backend whether a profile exists and, if so, loads
// the history and the profile. The two loads are independent; both are
// attempted and their errors joined.
func (s *Session) CheckProfile(ctx context.Context) error {
	epoch := s.currentEpoch()
	exists, err := s.backend.ProfileExists(ctx)
	if err != nil {
		return wrapBackend("checking profile", err)
	}
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.hasProfile = exists
	s.mu.Unlock()
	if !exists {
		return nil
	}

	var (
		g                   errgroup.Group
		historyErr, loadErr error
	)
	g.Go(func() error {
		historyErr = s.LoadHistory(ctx)
		return nil
	})
	g.Go(func() error {
		loadErr = s.RefreshProfile(ctx)
		return nil
	})
	g.Wait()
	return errors.Join(historyErr, loadErr)
}

// RefreshProfile overwrites the live profile with the stored one.
func (s *Session) RefreshProfile(ctx context.Context) error {
	epoch := s.currentEpoch()
	p, err := s.backend.GetProfile(ctx)
	if err != nil {
		return wrapBackend("loading profile", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.profile = p
	}
	return nil
}

// SubmitInitialProfile stores the onboarding profile and loads the
// conversation the backend seeded for it.
func (s *Session) SubmitInitialProfile(ctx context.Context, p study.Profile) error {
	epoch := s.currentEpoch()
	if err := s.backend.CreateProfile(ctx, p); err != nil {
		return wrapBackend("creating profile", err)
	}
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil
	}
	s.profile = p
	s.hasProfile = true
	s.mu.Unlock()

	s.logger.Info("profile created", "name", p.Name)
	return s.LoadHistory(ctx)
}

// OpenEdit starts an edit session. The buffer starts from the live profile
// and is replaced by the stored profile once it arrives, unless the edit
// was cancelled or restarted in the meantime.
func (s *Session) OpenEdit(ctx context.Context) error {
	s.mu.Lock()
	s.edit.gen++
	s.edit.open = true
	s.edit.buf = s.profile
	gen, epoch := s.edit.gen, s.epoch
	s.mu.Unlock()

	p, err := s.backend.GetProfile(ctx)
	if err != nil {
		return wrapBackend("loading profile", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.profile = p
	if s.edit.open && s.edit.gen == gen {
		s.edit.buf = p
	}
	return nil
}

// StageEdit replaces the edit buffer. Without an open edit it does
// nothing.
func (s *Session) StageEdit(p study.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit.open {
		s.edit.buf = p
	}
}

// SaveEdit submits the edit buffer. The live profile changes only when the
// submission succeeds and the edit is still open; a cancelled edit never
// touches live state.
func (s *Session) SaveEdit(ctx context.Context) error {
	s.mu.Lock()
	if !s.edit.open {
		s.mu.Unlock()
		return nil
	}
	buf, gen, epoch := s.edit.buf, s.edit.gen, s.epoch
	s.mu.Unlock()

	if err := s.backend.UpdateProfile(ctx, buf); err != nil {
		return wrapBackend("saving profile", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || !s.edit.open || s.edit.gen != gen {
		s.logger.Debug("profile save response dropped, edit closed")
		return nil
	}
	s.profile = buf
	s.edit.open = false
	s.edit.gen++
	return nil
}

// CancelEdit closes the edit session without saving.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit.open = false
	s.edit.gen++
}

// ResetProfile deletes the profile on the backend and then resets the whole
// session, as if the application had just started. It requires the user's
// confirmation.
func (s *Session) ResetProfile(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := s.backend.ResetProfile(ctx); err != nil {
		return wrapBackend("resetting profile", err)
	}

	s.mu.Lock()
	s.epoch++
	s.resetStateLocked()
	s.mu.Unlock()

	s.logger.Info("profile reset")
	return s.Bootstrap(ctx)
}
