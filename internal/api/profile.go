package api

import (
	"net/http"

	"github.com/kalambet/studyd/internal/study"
)

type profileResponse struct {
	HasProfile bool          `json:"has_profile"`
	Profile    study.Profile `json:"profile"`
}

type editResponse struct {
	Editing bool          `json:"editing"`
	Buffer  study.Profile `json:"buffer"`
}

func profileState(deps AppDeps) profileResponse {
	return profileResponse{
		HasProfile: deps.Session.HasProfile(),
		Profile:    deps.Session.Profile(),
	}
}

func editState(deps AppDeps) editResponse {
	buf, open := deps.Session.EditBuffer()
	return editResponse{Editing: open, Buffer: buf}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, profileState(deps))
	}
}

// handleCreateProfile submits the onboarding form. Fields missing from the
// body take the onboarding defaults.
func handleCreateProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := study.DefaultProfile()
		if !decodeBody(w, r, &p, false) {
			return
		}
		if err := deps.Session.SubmitInitialProfile(r.Context(), p); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, profileState(deps))
	}
}

func handleEditBuffer(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, editState(deps))
	}
}

func handleOpenEdit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.OpenEdit(r.Context()); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, editState(deps))
	}
}

func handleStageEdit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buf, open := deps.Session.EditBuffer()
		if !open {
			httpError(w, http.StatusConflict, "invalid_request_error", "no profile edit in progress")
			return
		}
		if !decodeBody(w, r, &buf, false) {
			return
		}
		deps.Session.StageEdit(buf)
		writeJSON(w, http.StatusOK, editState(deps))
	}
}

func handleSaveEdit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.SaveEdit(r.Context()); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profileState(deps))
	}
}

func handleCancelEdit(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.CancelEdit()
		writeJSON(w, http.StatusOK, editState(deps))
	}
}

func handleResetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.ResetProfile(r.Context(), confirmed(r)); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profileState(deps))
	}
}

// --- Check-in ---

func handleCheckin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Checkin())
	}
}

func handleOpenCheckin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.OpenCheckin(r.Context())
		writeJSON(w, http.StatusOK, deps.Session.Checkin())
	}
}

func handleCloseCheckin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.CloseCheckin()
		writeJSON(w, http.StatusOK, deps.Session.Checkin())
	}
}

func handleStageCheckin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := deps.Session.Checkin().Form
		if !decodeBody(w, r, &form, false) {
			return
		}
		deps.Session.StageCheckin(form)
		writeJSON(w, http.StatusOK, deps.Session.Checkin())
	}
}

// handleRegisterSession records the staged form. A body, when present, is
// merged into the form first.
func handleRegisterSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := deps.Session.Checkin().Form
		staged := form
		if !decodeBody(w, r, &form, true) {
			return
		}
		if form != staged {
			deps.Session.StageCheckin(form)
		}
		if err := deps.Session.RegisterSession(r.Context()); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Session.Checkin())
	}
}

// --- Dashboard, subjects, calendar ---

func handleDashboard(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Session.OpenDashboard(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleSubjects(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.LoadSubjects(r.Context())
		subjects := deps.Session.Subjects()
		if subjects == nil {
			subjects = []string{}
		}
		writeJSON(w, http.StatusOK, subjects)
	}
}

type calendarResponse struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message,omitempty"`
}

func handleCalendar(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.CheckCalendar(r.Context())
		writeJSON(w, http.StatusOK, calendarResponse{Connected: deps.Session.CalendarConnected()})
	}
}

func handleConnectCalendar(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.ConnectCalendar(r.Context()); err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, calendarResponse{Connected: deps.Session.CalendarConnected()})
	}
}

func handleSyncCalendar(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := deps.Session.SyncCalendar(r.Context())
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, calendarResponse{Connected: true, Message: msg})
	}
}
