package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"case-trainer-service/internal/app"
	"case-trainer-service/internal/domain"
)

// Leaderboard reads standings mirrored outside the process.
type Leaderboard interface {
	TopScores(ctx context.Context, sessionID string, limit int) ([]domain.ScoreUpdate, error)
}

// RESTHandler serves read-only session views for dashboards.
type RESTHandler struct {
	service     *app.TrainerService
	leaderboard Leaderboard
}

// NewRESTHandler builds the handler; leaderboard may be nil.
func NewRESTHandler(service *app.TrainerService, leaderboard Leaderboard) *RESTHandler {
	return &RESTHandler{service: service, leaderboard: leaderboard}
}

// Register mounts the routes on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /sessions/{id}/scoreboard", h.scoreboard)
	mux.HandleFunc("GET /sessions/{id}/selections", h.selections)
	if h.leaderboard != nil {
		mux.HandleFunc("GET /sessions/{id}/leaderboard", h.topScores)
	}
}

func (h *RESTHandler) scoreboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Scoreboard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RESTHandler) selections(w http.ResponseWriter, r *http.Request) {
	selections, err := h.service.Selections(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if limit := queryLimit(r); limit > 0 && limit < len(selections) {
		selections = selections[:limit]
	}
	writeJSON(w, http.StatusOK, selections)
}

func (h *RESTHandler) topScores(w http.ResponseWriter, r *http.Request) {
	top, err := h.leaderboard.TopScores(r.Context(), r.PathValue("id"), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// queryLimit returns the ?limit= value, or 0 when absent or invalid.
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrSessionNotFound) {
		status = http.StatusNotFound
	} else {
		log.Printf("rest handler error: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}
