package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/study"
)

type transcriptResponse struct {
	Transcript []study.ChatTurn `json:"transcript"`
	Busy       bool             `json:"busy"`
}

type sendRequest struct {
	Message string `json:"message"`
}

func handleTranscript(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, transcriptResponse{
			Transcript: deps.Session.Transcript(),
			Busy:       deps.Session.Busy(),
		})
	}
}

// handleSend answers with the transcript even when the backend failed, since
// the failure is then part of the conversation.
func handleSend(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		if err := deps.Session.Say(r.Context(), req.Message); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transcriptResponse{
			Transcript: deps.Session.Transcript(),
			Busy:       deps.Session.Busy(),
		})
	}
}

// --- Timer ---

type startTimerRequest struct {
	Subject *string `json:"subject"`
}

type resetTimerRequest struct {
	Minutes int `json:"minutes"`
}

func handleTimer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Timer())
	}
}

func handleOpenTimer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.OpenTimer(r.Context())
		writeJSON(w, http.StatusOK, deps.Session.Timer())
	}
}

func handleCloseTimer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.CloseTimer()
		writeJSON(w, http.StatusOK, deps.Session.Timer())
	}
}

func handleStartTimer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startTimerRequest
		if !decodeBody(w, r, &req, true) {
			return
		}
		if req.Subject != nil {
			deps.Session.SetTimerSubject(*req.Subject)
		}
		if err := deps.Session.StartTimer(); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Session.Timer())
	}
}

func handlePauseTimer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.PauseTimer()
		writeJSON(w, http.StatusOK, deps.Session.Timer())
	}
}

func handleResetTimer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetTimerRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		if err := deps.Session.ResetTimer(req.Minutes); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Session.Timer())
	}
}

// --- Projects ---

type projectsResponse struct {
	Projects        []study.Project `json:"projects"`
	ActiveProjectID string          `json:"active_project_id,omitempty"`
}

func projectsState(deps AppDeps) projectsResponse {
	resp := projectsResponse{Projects: deps.Session.Projects()}
	if p, ok := deps.Session.ActiveProject(); ok {
		resp.ActiveProjectID = p.ID
	}
	if resp.Projects == nil {
		resp.Projects = []study.Project{}
	}
	return resp
}

// handleListProjects serves the local list; ?refresh=true reloads it from
// the backend first.
func handleListProjects(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") == "true" {
			if err := deps.Session.LoadProjects(r.Context()); err != nil {
				sessionError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, projectsState(deps))
	}
}

func handleCreateProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft study.ProjectDraft
		if !decodeBody(w, r, &draft, false) {
			return
		}
		if err := deps.Session.CreateProject(r.Context(), draft); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, projectsState(deps))
	}
}

func handleSelectProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.SelectProject(chi.URLParam(r, "id")); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, projectsState(deps))
	}
}

func handleToggleMilestone(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := indexParam(w, r)
		if !ok {
			return
		}
		if err := deps.Session.ToggleMilestone(r.Context(), i); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, projectsState(deps))
	}
}

func handleDeleteProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.DeleteProject(r.Context(), chi.URLParam(r, "id"), confirmed(r)); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, projectsState(deps))
	}
}

// --- Exams ---

type examModeRequest struct {
	Crisis bool `json:"crisis"`
}

func handleExams(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

func handleOpenExams(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.OpenExams()
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

func handleCloseExams(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.CloseExams()
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

func handleAddExamRow(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.AddExamRow()
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

// handleUpdateExamRow merges the body into the current row, so partial
// updates keep the other fields.
func handleUpdateExamRow(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := indexParam(w, r)
		if !ok {
			return
		}
		rows := deps.Session.Exams().Rows
		if i >= len(rows) {
			httpError(w, http.StatusNotFound, "not_found_error", "exam row %d not found", i)
			return
		}
		item := rows[i]
		if !decodeBody(w, r, &item, false) {
			return
		}
		if err := deps.Session.UpdateExamRow(i, item); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

func handleRemoveExamRow(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := indexParam(w, r)
		if !ok {
			return
		}
		deps.Session.RemoveExamRow(i)
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

func handleExamMode(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req examModeRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		deps.Session.SetCrisisMode(req.Crisis)
		writeJSON(w, http.StatusOK, deps.Session.Exams())
	}
}

// submitResponse is the planner state plus the plan this submission
// generated, if any.
type submitResponse struct {
	session.ExamsState
	Plan *study.ChatTurn `json:"plan,omitempty"`
}

func handleSubmitExams(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := deps.Session.SubmitExams(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, submitResponse{ExamsState: deps.Session.Exams(), Plan: plan})
	}
}
