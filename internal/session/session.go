// Package session is the client-side orchestrator of the study planner. A
// Session holds every piece of client-visible state, turns user actions into
// planning-backend calls, and keeps derived state (timer countdown, milestone
// progress, transcript) consistent under concurrent user and server events.
//
// Each flow lives in its own file and writes only its own slice of the
// state. Backend calls are always made without holding the lock; the
// continuation re-checks that its slice still matches what the call was
// issued against (see epoch and the per-flow generations) and silently drops
// the response otherwise.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/studyd/internal/study"
)

// Backend is the planning backend contract the session depends on.
// Implemented by backend.Client.
type Backend interface {
	ProfileExists(ctx context.Context) (bool, error)
	CreateProfile(ctx context.Context, p study.Profile) error
	ResetProfile(ctx context.Context) error
	GetProfile(ctx context.Context) (study.Profile, error)
	UpdateProfile(ctx context.Context, p study.Profile) error

	ChatHistory(ctx context.Context) ([]study.ChatTurn, error)
	Converse(ctx context.Context, history []study.ChatTurn) (study.ChatTurn, error)

	PlanExams(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error)
	PlanCrisis(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error)

	RecordSession(ctx context.Context, rec study.SessionRecord) error
	DashboardStats(ctx context.Context) (study.DashboardStats, error)
	Subjects(ctx context.Context) ([]string, error)

	ListProjects(ctx context.Context) ([]study.Project, error)
	CreateProject(ctx context.Context, d study.ProjectDraft) (study.Project, error)
	UpdateMilestones(ctx context.Context, projectID string, ms []study.Milestone) error
	DeleteProject(ctx context.Context, id string) error

	CalendarStatus(ctx context.Context) (bool, error)
	ConnectCalendar(ctx context.Context) error
	SyncCalendar(ctx context.Context, schedule json.RawMessage) (string, error)
}

// Gamifier consumes fire-and-forget experience awards. Nothing in the
// session reads its state back.
type Gamifier interface {
	Award(ctx context.Context, reason string, xp int)
}

// View receives user-facing side effects that are not part of the state.
type View interface {
	// ScrollToBottom is called shortly after every transcript change.
	ScrollToBottom()
	// Alert shows a blocking message to the user.
	Alert(msg string)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Experience awarded per event.
const (
	XPFocusSession = 100
	XPCheckin      = 150
	XPMilestone    = 200
	XPCalendarSync = 300
)

const (
	defaultBreakMinutes = 5
	scrollDelay         = 100 * time.Millisecond
)

// Options configures a Session. Backend is required.
type Options struct {
	Backend   Backend
	Gamifier  Gamifier  // optional
	View      View      // optional
	Scheduler Scheduler // defaults to wall-clock timers
	Clock     Clock     // defaults to time.Now

	// BreakMinutes is the break that follows a completed focus interval.
	BreakMinutes int

	// Context bounds work the session starts on its own: timer completion
	// and silent sends. Defaults to context.Background.
	Context context.Context
	Logger  *slog.Logger
}

// Session is the process-wide session state plus the flows that mutate it.
// It is safe for concurrent use.
type Session struct {
	backend      Backend
	gamifier     Gamifier
	view         View
	sched        Scheduler
	clock        Clock
	breakMinutes int
	ctx          context.Context
	logger       *slog.Logger

	// bg tracks work started in the background (silent sends and timer
	// completion). No new work is added to it once closed is set.
	bg sync.WaitGroup

	mu sync.Mutex
	// epoch changes on a full reset; responses issued under an older epoch
	// are dropped.
	epoch uint64

	closed bool

	hasProfile bool
	profile    study.Profile
	edit       profileEdit

	transcript []study.ChatTurn
	input      string
	busy       bool

	timer timerController

	exams examPlanner

	projects        []study.Project
	activeProjectID string

	checkin checkinFlow

	stats             study.DashboardStats
	subjects          []string
	calendarConnected bool
}

// New creates a Session in its initial state: default profile, empty
// transcript, and an idle focus timer at the preferred duration.
func New(opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, errors.New("session: backend is required")
	}
	s := &Session{
		backend:      opts.Backend,
		gamifier:     opts.Gamifier,
		view:         opts.View,
		sched:        opts.Scheduler,
		clock:        opts.Clock,
		breakMinutes: opts.BreakMinutes,
		ctx:          opts.Context,
		logger:       opts.Logger,
	}
	if s.sched == nil {
		s.sched = realScheduler{}
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.breakMinutes <= 0 {
		s.breakMinutes = defaultBreakMinutes
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "session")

	s.resetStateLocked()
	return s, nil
}

// resetStateLocked puts every slice back to its initial value and cancels
// the tick. Generations keep counting so in-flight responses stay stale.
func (s *Session) resetStateLocked() {
	s.hasProfile = false
	s.profile = study.DefaultProfile()
	s.edit.open = false
	s.edit.gen++
	s.edit.buf = study.Profile{}

	s.transcript = nil
	s.input = ""
	s.busy = false

	s.exams.gen++
	s.exams.state = ExamsState{}

	s.projects = nil
	s.activeProjectID = ""

	s.checkin = checkinFlow{state: CheckinState{Form: study.DefaultCheckinForm()}}

	s.stats = study.EmptyStats()
	s.subjects = nil
	s.calendarConnected = false

	s.timer.state.Subject = ""
	s.resetTimerLocked(s.focusMinutesLocked())
}

// Wait blocks until background work started by the session has finished.
func (s *Session) Wait() {
	s.bg.Wait()
}

// Close stops the timer tick and waits for background work. After Close
// the session starts no more silent sends.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTickLocked()
	s.mu.Unlock()
	s.Wait()
}

// Snapshot is a deep copy of the client-visible state.
type Snapshot struct {
	HasProfile        bool                 `json:"has_profile"`
	Profile           study.Profile        `json:"profile"`
	Editing           bool                 `json:"editing"`
	Transcript        []study.ChatTurn     `json:"transcript"`
	Input             string               `json:"input"`
	Busy              bool                 `json:"busy"`
	Timer             TimerState           `json:"timer"`
	Exams             ExamsState           `json:"exams"`
	Projects          []study.Project      `json:"projects"`
	ActiveProjectID   string               `json:"active_project_id,omitempty"`
	Checkin           CheckinState         `json:"checkin"`
	Stats             study.DashboardStats `json:"stats"`
	Subjects          []string             `json:"subjects"`
	CalendarConnected bool                 `json:"calendar_connected"`
}

// Snapshot returns a copy of the whole session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		HasProfile:        s.hasProfile,
		Profile:           s.profile,
		Editing:           s.edit.open,
		Transcript:        s.transcriptLocked(),
		Input:             s.input,
		Busy:              s.busy,
		Timer:             s.timerStateLocked(),
		Exams:             s.examsStateLocked(),
		Projects:          s.projectsLocked(),
		ActiveProjectID:   s.activeProjectID,
		Checkin:           s.checkin.state,
		Stats:             s.stats,
		Subjects:          append([]string(nil), s.subjects...),
		CalendarConnected: s.calendarConnected,
	}
}

// Stats returns the last dashboard snapshot.
func (s *Session) Stats() study.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// OpenDashboard fetches the statistics snapshot and replaces the local copy
// wholesale.
func (s *Session) OpenDashboard(ctx context.Context) (study.DashboardStats, error) {
	epoch := s.currentEpoch()
	stats, err := s.backend.DashboardStats(ctx)
	if err != nil {
		return study.DashboardStats{}, wrapBackend("loading dashboard", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.stats = stats
	}
	return stats, nil
}

// Subjects returns the subject suggestions.
func (s *Session) Subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subjects...)
}

// LoadSubjects refreshes the subject suggestions. A failed fetch empties the
// list rather than keeping stale suggestions.
func (s *Session) LoadSubjects(ctx context.Context) {
	epoch := s.currentEpoch()
	subjects, err := s.backend.Subjects(ctx)
	if err != nil {
		s.logger.Warn("loading subject suggestions failed", "error", err)
		subjects = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.subjects = subjects
	}
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) award(ctx context.Context, reason string, xp int) {
	if s.gamifier == nil {
		return
	}
	s.gamifier.Award(ctx, reason, xp)
}

func (s *Session) alert(msg string) {
	if s.view == nil {
		return
	}
	s.view.Alert(msg)
}
