// Package api exposes a running study session over a local HTTP control API
// and an MCP stdio server.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/studyd/internal/gamify"
	"github.com/kalambet/studyd/internal/session"
	"github.com/kalambet/studyd/internal/storage"
)

const (
	defaultNoticeLimit = 20
	maxNoticeLimit     = 200
	recentAwards       = 10
)

type AppDeps struct {
	Session *session.Session
	Notices *NoticeBoard
	Journal *gamify.Journal // optional; /xp answers 404 without it
	Token   string
}

// NewAppHandler returns the local control API. Everything except /health
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/state", handleState(deps))
		r.Get("/notices", handleListNotices(deps))
		r.Post("/notices/read", handleReadAllNotices(deps))
		r.Post("/notices/{id}/read", handleReadNotice(deps))
		r.Get("/xp", handleXP(deps))

		r.Get("/chat", handleTranscript(deps))
		r.Post("/chat", handleSend(deps))

		r.Get("/timer", handleTimer(deps))
		r.Post("/timer/open", handleOpenTimer(deps))
		r.Post("/timer/close", handleCloseTimer(deps))
		r.Post("/timer/start", handleStartTimer(deps))
		r.Post("/timer/pause", handlePauseTimer(deps))
		r.Post("/timer/reset", handleResetTimer(deps))

		r.Get("/projects", handleListProjects(deps))
		r.Post("/projects", handleCreateProject(deps))
		r.Post("/projects/milestones/{index}/toggle", handleToggleMilestone(deps))
		r.Post("/projects/{id}/select", handleSelectProject(deps))
		r.Delete("/projects/{id}", handleDeleteProject(deps))

		r.Get("/exams", handleExams(deps))
		r.Post("/exams/open", handleOpenExams(deps))
		r.Post("/exams/close", handleCloseExams(deps))
		r.Post("/exams/rows", handleAddExamRow(deps))
		r.Patch("/exams/rows/{index}", handleUpdateExamRow(deps))
		r.Delete("/exams/rows/{index}", handleRemoveExamRow(deps))
		r.Post("/exams/mode", handleExamMode(deps))
		r.Post("/exams/submit", handleSubmitExams(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Post("/profile", handleCreateProfile(deps))
		r.Get("/profile/edit", handleEditBuffer(deps))
		r.Post("/profile/edit", handleOpenEdit(deps))
		r.Patch("/profile/edit", handleStageEdit(deps))
		r.Post("/profile/edit/save", handleSaveEdit(deps))
		r.Post("/profile/edit/cancel", handleCancelEdit(deps))
		r.Post("/profile/reset", handleResetProfile(deps))

		r.Get("/checkin", handleCheckin(deps))
		r.Post("/checkin/open", handleOpenCheckin(deps))
		r.Post("/checkin/close", handleCloseCheckin(deps))
		r.Patch("/checkin", handleStageCheckin(deps))
		r.Post("/checkin", handleRegisterSession(deps))

		r.Get("/dashboard", handleDashboard(deps))
		r.Get("/subjects", handleSubjects(deps))

		r.Get("/calendar", handleCalendar(deps))
		r.Post("/calendar/connect", handleConnectCalendar(deps))
		r.Post("/calendar/sync", handleSyncCalendar(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type stateResponse struct {
	session.Snapshot
	Revision uint64 `json:"revision"`
}

func handleState(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := stateResponse{Snapshot: deps.Session.Snapshot()}
		if deps.Notices != nil {
			resp.Revision = deps.Notices.Revision()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListNotices(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultNoticeLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = min(n, maxNoticeLimit)
		}
		unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

		notices, err := deps.Notices.List(limit, unread)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list notices: %v", err)
			return
		}
		if notices == nil {
			notices = []storage.Notice{}
		}
		writeJSON(w, http.StatusOK, notices)
	}
}

func handleReadNotice(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Notices.MarkRead(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "notice not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to mark notice: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleReadAllNotices(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Notices.MarkAllRead()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to mark notices: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"marked": n})
	}
}

func handleXP(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Journal == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "experience journal not configured")
			return
		}
		sum, err := deps.Journal.Summary(recentAwards)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to summarize awards: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
