package session

import "context"

// CalendarConnected reports whether the backend holds calendar credentials.
func (s *Session) CalendarConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendarConnected
}

// CheckCalendar refreshes the connected flag. A failed check counts as not
// connected.
func (s *Session) CheckCalendar(ctx context.Context) {
	epoch := s.currentEpoch()
	ok, err := s.backend.CalendarStatus(ctx)
	if err != nil {
		s.logger.Warn("calendar status check failed", "error", err)
		ok = false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.calendarConnected = ok
	}
}

// ConnectCalendar asks the backend to authorize calendar access.
func (s *Session) ConnectCalendar(ctx context.Context) error {
	epoch := s.currentEpoch()
	if err := s.backend.ConnectCalendar(ctx); err != nil {
		return wrapBackend("connecting calendar", err)
	}
	s.mu.Lock()
	if s.epoch == epoch {
		s.calendarConnected = true
	}
	s.mu.Unlock()
	s.alert("Calendar connected.")
	return nil
}

// SyncCalendar pushes the most recent generated schedule in the
// conversation to the connected calendar.
func (s *Session) SyncCalendar(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.calendarConnected {
		s.mu.Unlock()
		return "", ErrCalendarNotConnected
	}
	turn, ok := s.latestScheduleLocked()
	s.mu.Unlock()
	if !ok {
		return "", ErrNoSchedule
	}

	msg, err := s.backend.SyncCalendar(ctx, turn.Schedule)
	if err != nil {
		return "", wrapBackend("syncing calendar", err)
	}
	s.alert(msg)
	s.award(ctx, "calendar_sync", XPCalendarSync)
	return msg, nil
}
