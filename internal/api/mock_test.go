package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/studyd/internal/gamify"
	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/storage"
	"github.com/kalambet/studyd/internal/study"
)

const testToken = "test-token-12345"

var (
	ctx            = context.Background()
	errUnavailable = errors.New("backend unavailable")
)

// --- Mock backend ---

type stubBackend struct {
	mu sync.Mutex

	exists   bool
	profile  study.Profile
	reply    study.ChatTurn
	plan     study.ChatTurn
	projects []study.Project
	subjects []string
	stats    study.DashboardStats
	calendar bool
	syncMsg  string
	fail     map[string]error

	// converseGate, when set, blocks the next Converse until closed.
	converseGate    chan struct{}
	converseStarted chan struct{}

	created   []study.Profile
	conversed int
	records   []study.SessionRecord
	updated   [][]study.Milestone
	deleted   []string
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		profile: study.DefaultProfile(),
		reply:   study.ChatTurn{Role: study.RoleAssistant, Text: "¡Hola!"},
		plan: study.ChatTurn{
			Role:     study.RoleAssistant,
			Text:     "Tu plan de estudio",
			Schedule: json.RawMessage(`[{"dia":"Lunes"}]`),
		},
		fail: make(map[string]error),
	}
}

func (b *stubBackend) err(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fail[op]
}

func (b *stubBackend) setFail(op string, err error) {
	b.mu.Lock()
	b.fail[op] = err
	b.mu.Unlock()
}

// holdConverse makes the next Converse call wait for the returned channel
// to be closed. Receiving from b.converseStarted tells the call is waiting.
func (b *stubBackend) holdConverse() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.converseGate = make(chan struct{})
	b.converseStarted = make(chan struct{}, 1)
	return b.converseGate
}

func (b *stubBackend) ProfileExists(ctx context.Context) (bool, error) {
	if err := b.err("ProfileExists"); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exists, nil
}

func (b *stubBackend) CreateProfile(ctx context.Context, p study.Profile) error {
	if err := b.err("CreateProfile"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, p)
	b.exists = true
	b.profile = p
	return nil
}

func (b *stubBackend) ResetProfile(ctx context.Context) error {
	if err := b.err("ResetProfile"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exists = false
	return nil
}

func (b *stubBackend) GetProfile(ctx context.Context) (study.Profile, error) {
	if err := b.err("GetProfile"); err != nil {
		return study.Profile{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile, nil
}

func (b *stubBackend) UpdateProfile(ctx context.Context, p study.Profile) error {
	if err := b.err("UpdateProfile"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profile = p
	return nil
}

func (b *stubBackend) ChatHistory(ctx context.Context) ([]study.ChatTurn, error) {
	return nil, b.err("ChatHistory")
}

func (b *stubBackend) Converse(ctx context.Context, history []study.ChatTurn) (study.ChatTurn, error) {
	b.mu.Lock()
	gate, started := b.converseGate, b.converseStarted
	b.converseGate = nil
	b.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	if err := b.err("Converse"); err != nil {
		return study.ChatTurn{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversed++
	return b.reply, nil
}

func (b *stubBackend) PlanExams(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error) {
	if err := b.err("PlanExams"); err != nil {
		return study.ChatTurn{}, err
	}
	return b.plan, nil
}

func (b *stubBackend) PlanCrisis(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error) {
	if err := b.err("PlanCrisis"); err != nil {
		return study.ChatTurn{}, err
	}
	turn := b.plan
	turn.Text = "Plan de crisis"
	return turn, nil
}

func (b *stubBackend) RecordSession(ctx context.Context, rec study.SessionRecord) error {
	if err := b.err("RecordSession"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, rec)
	return nil
}

func (b *stubBackend) DashboardStats(ctx context.Context) (study.DashboardStats, error) {
	if err := b.err("DashboardStats"); err != nil {
		return study.DashboardStats{}, err
	}
	return b.stats, nil
}

func (b *stubBackend) Subjects(ctx context.Context) ([]string, error) {
	if err := b.err("Subjects"); err != nil {
		return nil, err
	}
	return b.subjects, nil
}

func (b *stubBackend) ListProjects(ctx context.Context) ([]study.Project, error) {
	if err := b.err("ListProjects"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]study.Project, len(b.projects))
	for i, p := range b.projects {
		out[i] = p.Clone()
	}
	return out, nil
}

func (b *stubBackend) CreateProject(ctx context.Context, d study.ProjectDraft) (study.Project, error) {
	if err := b.err("CreateProject"); err != nil {
		return study.Project{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := study.Project{ID: "p-new", Name: d.Name, Description: d.Description, Deadline: d.Deadline}
	b.projects = append(b.projects, p)
	return p, nil
}

func (b *stubBackend) UpdateMilestones(ctx context.Context, projectID string, ms []study.Milestone) error {
	if err := b.err("UpdateMilestones"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updated = append(b.updated, ms)
	return nil
}

func (b *stubBackend) DeleteProject(ctx context.Context, id string) error {
	if err := b.err("DeleteProject"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *stubBackend) CalendarStatus(ctx context.Context) (bool, error) {
	if err := b.err("CalendarStatus"); err != nil {
		return false, err
	}
	return b.calendar, nil
}

func (b *stubBackend) ConnectCalendar(ctx context.Context) error {
	return b.err("ConnectCalendar")
}

func (b *stubBackend) SyncCalendar(ctx context.Context, schedule json.RawMessage) (string, error) {
	if err := b.err("SyncCalendar"); err != nil {
		return "", err
	}
	return b.syncMsg, nil
}

// --- Mock scheduler ---

// inlineScheduler runs delayed calls at once and never ticks.
type inlineScheduler struct{}

func (inlineScheduler) Every(d time.Duration, fn func()) func() { return func() {} }
func (inlineScheduler) After(d time.Duration, fn func()) func() { fn(); return func() {} }

// --- helpers ---

type testApp struct {
	handler http.Handler
	backend *stubBackend
	session *session.Session
	notices *NoticeBoard
	store   *storage.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	backend := newStubBackend()
	notices := NewNoticeBoard(store)
	journal := gamify.New(store, notices)
	sess, err := session.New(session.Options{
		Backend:   backend,
		Gamifier:  journal,
		View:      notices,
		Scheduler: inlineScheduler{},
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(sess.Close)

	return &testApp{
		handler: NewAppHandler(AppDeps{
			Session: sess,
			Notices: notices,
			Journal: journal,
			Token:   testToken,
		}),
		backend: backend,
		session: sess,
		notices: notices,
		store:   store,
	}
}

func authReq(method, url, body, token string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// do serves one authenticated request.
func (a *testApp) do(method, url, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, authReq(method, url, body, testToken))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, code, rr.Body.String())
	}
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return env.Error.Type
}

func sampleProject() study.Project {
	return study.Project{
		ID:   "p1",
		Name: "Tesis",
		Milestones: []study.Milestone{
			{Title: "Marco teórico"},
			{Title: "Experimentos"},
		},
	}
}
