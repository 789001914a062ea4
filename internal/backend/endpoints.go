package backend

import (
	"context"
	"encoding/json"

	"github.com/kalambet/studyd/internal/study"
)

// --- Profile ---

// ProfileExists reports whether the backend has a stored profile.
func (c *Client) ProfileExists(ctx context.Context) (bool, error) {
	var res struct {
		Exists bool `json:"existe"`
	}
	if err := c.get(ctx, "/check_perfil", &res); err != nil {
		return false, err
	}
	return res.Exists, nil
}

// CreateProfile stores the initial profile. The backend also seeds the
// conversation history with a generated schedule, which callers pick up by
// reloading the history.
func (c *Client) CreateProfile(ctx context.Context, p study.Profile) error {
	return c.post(ctx, "/crear_perfil", p, nil)
}

// ResetProfile deletes the profile and everything the backend keeps for it.
func (c *Client) ResetProfile(ctx context.Context) error {
	return c.post(ctx, "/reset_perfil", nil, nil)
}

// GetProfile fetches the stored profile.
func (c *Client) GetProfile(ctx context.Context) (study.Profile, error) {
	var p study.Profile
	if err := c.get(ctx, "/obtener_perfil", &p); err != nil {
		return study.Profile{}, err
	}
	return p, nil
}

// UpdateProfile replaces the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, p study.Profile) error {
	return c.post(ctx, "/actualizar_perfil", p, nil)
}

// --- Conversation ---

// ChatHistory returns the stored transcript in chronological order.
func (c *Client) ChatHistory(ctx context.Context) ([]study.ChatTurn, error) {
	var turns []study.ChatTurn
	if err := c.get(ctx, "/chat_history", &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

type converseRequest struct {
	History []study.ChatTurn `json:"history"`
}

// Converse posts the full transcript and returns the assistant's reply.
// The backend keeps no per-call state, so history must be complete.
func (c *Client) Converse(ctx context.Context, history []study.ChatTurn) (study.ChatTurn, error) {
	var turn study.ChatTurn
	if err := c.post(ctx, "/conversar", converseRequest{History: history}, &turn); err != nil {
		return study.ChatTurn{}, err
	}
	return turn, nil
}

// --- Exam planning ---

type examsRequest struct {
	Exams []study.ExamItem `json:"examenes"`
}

// PlanExams asks for a standard exam preparation plan.
func (c *Client) PlanExams(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error) {
	return c.plan(ctx, "/planificar_examenes", exams)
}

// PlanCrisis asks for a crisis plan. The request shape is the same as
// PlanExams; only the strategy differs.
func (c *Client) PlanCrisis(ctx context.Context, exams []study.ExamItem) (study.ChatTurn, error) {
	return c.plan(ctx, "/planificar_crisis", exams)
}

func (c *Client) plan(ctx context.Context, path string, exams []study.ExamItem) (study.ChatTurn, error) {
	var turn study.ChatTurn
	if err := c.post(ctx, path, examsRequest{Exams: exams}, &turn); err != nil {
		return study.ChatTurn{}, err
	}
	return turn, nil
}

// --- History & stats ---

// RecordSession stores a study-session history record.
func (c *Client) RecordSession(ctx context.Context, rec study.SessionRecord) error {
	return c.post(ctx, "/registrar_historial", rec, nil)
}

// DashboardStats fetches the statistics snapshot.
func (c *Client) DashboardStats(ctx context.Context) (study.DashboardStats, error) {
	var s study.DashboardStats
	if err := c.get(ctx, "/dashboard_stats", &s); err != nil {
		return study.DashboardStats{}, err
	}
	return s, nil
}

// Subjects returns the subject suggestions derived from past sessions.
func (c *Client) Subjects(ctx context.Context) ([]string, error) {
	var subjects []string
	if err := c.get(ctx, "/materias", &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// --- Projects ---

// ListProjects returns every project with its milestones.
func (c *Client) ListProjects(ctx context.Context) ([]study.Project, error) {
	var projects []study.Project
	if err := c.get(ctx, "/proyectos", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project; the backend generates its milestones.
func (c *Client) CreateProject(ctx context.Context, d study.ProjectDraft) (study.Project, error) {
	var p study.Project
	if err := c.post(ctx, "/crear_proyecto", d, &p); err != nil {
		return study.Project{}, err
	}
	return p, nil
}

type milestonesRequest struct {
	ProjectID  string            `json:"project_id"`
	Milestones []study.Milestone `json:"hitos"`
}

// UpdateMilestones replaces a project's full milestone list.
func (c *Client) UpdateMilestones(ctx context.Context, projectID string, ms []study.Milestone) error {
	return c.post(ctx, "/actualizar_hitos", milestonesRequest{ProjectID: projectID, Milestones: ms}, nil)
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.post(ctx, "/eliminar_proyecto", map[string]string{"id": id}, nil)
}

// --- Calendar ---

// CalendarStatus reports whether the backend holds calendar credentials.
func (c *Client) CalendarStatus(ctx context.Context) (bool, error) {
	var res struct {
		Connected bool `json:"conectado"`
	}
	if err := c.get(ctx, "/google/status", &res); err != nil {
		return false, err
	}
	return res.Connected, nil
}

// ConnectCalendar starts the backend's calendar authorization.
func (c *Client) ConnectCalendar(ctx context.Context) error {
	return c.get(ctx, "/google/connect", nil)
}

type syncRequest struct {
	Schedule json.RawMessage `json:"horario"`
}

// SyncCalendar pushes a generated schedule to the connected calendar and
// returns the backend's user-facing message.
func (c *Client) SyncCalendar(ctx context.Context, schedule json.RawMessage) (string, error) {
	var res ack
	if err := c.post(ctx, "/google/sync", syncRequest{Schedule: schedule}, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}
