package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/studyd/internal/study"
)

var ctx = context.Background()

var errBackendDown = errors.New("backend down")

// --- Mock backend ---

type mockBackend struct {
	mu sync.Mutex

	exists          bool
	profile         study.Profile
	history         []study.ChatTurn
	reply           study.ChatTurn
	plan            study.ChatTurn
	projects        []study.Project
	subjects        []string
	stats           study.DashboardStats
	calendar        bool
	syncMessage     string
	createdProjects []study.ProjectDraft

	// fail makes the named operation return errBackendDown.
	fail map[string]bool
	// gate, when set for an operation, blocks its next call until closed.
	// started receives the operation name once that call is blocked.
	gate    map[string]chan struct{}
	started chan string

	calls      []string
	conversed  [][]study.ChatTurn
	planned    [][]study.ExamItem
	records    []study.SessionRecord
	milestones [][]study.Milestone
	updated    []study.Profile
	synced     []json.RawMessage
	deletedIDs []string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		reply:    study.ChatTurn{Role: study.RoleAssistant, Text: "ok"},
		fail:     make(map[string]bool),
		gate:     make(map[string]chan struct{}),
		started:  make(chan string, 16),
		subjects: []string{"Calculus"},
	}
}

func (m *mockBackend) enter(op string) error {
	m.mu.Lock()
	m.calls = append(m.calls, op)
	gate := m.gate[op]
	delete(m.gate, op)
	fail := m.fail[op]
	m.mu.Unlock()

	if gate != nil {
		m.started <- op
		<-gate
	}
	if fail {
		return errBackendDown
	}
	return nil
}

func (m *mockBackend) hold(op string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.gate[op] = ch
	return ch
}

func (m *mockBackend) setFail(op string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = fail
}

func (m *mockBackend) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *mockBackend) ProfileExists(ctx context.Context) (bool, error) {
	if err := m.enter("ProfileExists"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists, nil
}

func (m *mockBackend) CreateProfile(ctx context.Context, p study.Profile) error {
	if err := m.enter("CreateProfile"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = true
	m.profile = p
	return nil
}

func (m *mockBackend) ResetProfile(ctx context.Context) error {
	if err := m.enter("ResetProfile"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = false
	m.history = nil
	m.calendar = false
	return nil
}

func (m *mockBackend) GetProfile(ctx context.Context) (study.Profile, error) {
	if err := m.enter("GetProfile"); err != nil {
		return study.Profile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, nil
}

func (m *mockBackend) UpdateProfile(ctx context.Context, p study.Profile) error {
	if err := m.enter("UpdateProfile"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, p)
	m.profile = p
	return nil
}

func (m *mockBackend) ChatHistory(ctx context.Context) ([]study.ChatTurn, error) {
	if err := m.enter("ChatHistory"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]study.ChatTurn(nil), m.history...), nil
}

func (m *mockBackend) Converse(ctx context.Context, history []study.ChatTurn) (study.ChatTurn, error) {
	m.mu.Lock()
	m.conversed = append(m.conversed, history)
	m.mu.Unlock()
	if err := m.enter("Converse"); err != nil {
		return study.ChatTurn{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply, nil
}

func (m *mockBackend) PlanExams(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error) {
	return m.planWith("PlanExams", exams)
}

func (m *mockBackend) PlanCrisis(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error) {
	return m.planWith("PlanCrisis", exams)
}

func (m *mockBackend) planWith(op string, exams []study.ExamItem) (study.ChatTurn, error) {
	m.mu.Lock()
	m.planned = append(m.planned, exams)
	m.mu.Unlock()
	if err := m.enter(op); err != nil {
		return study.ChatTurn{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plan, nil
}

func (m *mockBackend) RecordSession(ctx context.Context, rec study.SessionRecord) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return m.enter("RecordSession")
}

func (m *mockBackend) DashboardStats(ctx context.Context) (study.DashboardStats, error) {
	if err := m.enter("DashboardStats"); err != nil {
		return study.DashboardStats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

func (m *mockBackend) Subjects(ctx context.Context) ([]string, error) {
	if err := m.enter("Subjects"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subjects...), nil
}

func (m *mockBackend) ListProjects(ctx context.Context) ([]study.Project, error) {
	if err := m.enter("ListProjects"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]study.Project, len(m.projects))
	for i, p := range m.projects {
		out[i] = p.Clone()
	}
	return out, nil
}

func (m *mockBackend) CreateProject(ctx context.Context, d study.ProjectDraft) (study.Project, error) {
	if err := m.enter("CreateProject"); err != nil {
		return study.Project{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdProjects = append(m.createdProjects, d)
	p := study.Project{
		ID:         "p-new",
		Name:       d.Name,
		Milestones: []study.Milestone{{Title: "Start"}},
	}
	m.projects = append(m.projects, p)
	return p, nil
}

func (m *mockBackend) UpdateMilestones(ctx context.Context, projectID string, ms []study.Milestone) error {
	m.mu.Lock()
	m.milestones = append(m.milestones, ms)
	m.mu.Unlock()
	return m.enter("UpdateMilestones")
}

func (m *mockBackend) DeleteProject(ctx context.Context, id string) error {
	if err := m.enter("DeleteProject"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedIDs = append(m.deletedIDs, id)
	kept := m.projects[:0]
	for _, p := range m.projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.projects = kept
	return nil
}

func (m *mockBackend) CalendarStatus(ctx context.Context) (bool, error) {
	if err := m.enter("CalendarStatus"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calendar, nil
}

func (m *mockBackend) ConnectCalendar(ctx context.Context) error {
	if err := m.enter("ConnectCalendar"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendar = true
	return nil
}

func (m *mockBackend) SyncCalendar(ctx context.Context, schedule json.RawMessage) (string, error) {
	m.mu.Lock()
	m.synced = append(m.synced, schedule)
	m.mu.Unlock()
	if err := m.enter("SyncCalendar"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncMessage, nil
}

// --- Mock scheduler ---

type mockTicker struct {
	fn      func()
	stopped bool
}

type mockScheduler struct {
	mu      sync.Mutex
	tickers []*mockTicker
	afters  int
}

func (m *mockScheduler) Every(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTicker{fn: fn}
	m.tickers = append(m.tickers, t)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.stopped = true
	}
}

func (m *mockScheduler) After(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afters++
	return func() {}
}

// Tick fires every active ticker n times.
func (m *mockScheduler) Tick(n int) {
	for range n {
		m.mu.Lock()
		var fns []func()
		for _, t := range m.tickers {
			if !t.stopped {
				fns = append(fns, t.fn)
			}
		}
		m.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}

func (m *mockScheduler) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *mockScheduler) scrolls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.afters
}

// --- Mock clock ---

type mockClock struct {
	now time.Time
}

func (c mockClock) Now() time.Time { return c.now }

// --- Mock view ---

type mockView struct {
	mu     sync.Mutex
	alerts []string
}

func (v *mockView) ScrollToBottom() {}

func (v *mockView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, msg)
}

func (v *mockView) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.alerts)
}

// --- Mock gamifier ---

type award struct {
	reason string
	xp     int
}

type mockGamifier struct {
	mu     sync.Mutex
	awards []award
}

func (g *mockGamifier) Award(ctx context.Context, reason string, xp int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.awards = append(g.awards, award{reason, xp})
}

func (g *mockGamifier) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	sum := 0
	for _, a := range g.awards {
		sum += a.xp
	}
	return sum
}

// --- Fixture ---

// testNow is a Wednesday.
var testNow = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

type fixture struct {
	s       *Session
	backend *mockBackend
	sched   *mockScheduler
	view    *mockView
	xp      *mockGamifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: newMockBackend(),
		sched:   &mockScheduler{},
		view:    &mockView{},
		xp:      &mockGamifier{},
	}
	s, err := New(Options{
		Backend:   f.backend,
		Gamifier:  f.xp,
		View:      f.view,
		Scheduler: f.sched,
		Clock:     mockClock{now: testNow},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	f.s = s
	return f
}
