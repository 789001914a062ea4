package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/studyd/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

// sessionError maps a flow error onto a response: validation problems are
// the caller's fault, missing confirmations conflict, and anything the
// planning backend refused is a bad gateway.
func sessionError(w http.ResponseWriter, err error) {
	var be *session.BackendError
	switch {
	case session.IsValidation(err):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, session.ErrReplyPending):
		httpError(w, http.StatusConflict, "reply_pending", "%v; wait for it and send again", err)
	case errors.Is(err, session.ErrNotConfirmed):
		httpError(w, http.StatusConflict, "confirmation_required", "%v; repeat with confirm=true", err)
	case errors.As(err, &be):
		httpError(w, http.StatusBadGateway, "api_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched
// when optional is set. It writes the 400 itself and reports false on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
	return false
}

// indexParam parses the {index} path parameter.
func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "index must be a non-negative integer")
		return 0, false
	}
	return i, true
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}
