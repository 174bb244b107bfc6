package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"moneyrank-service/internal/app"
	"moneyrank-service/internal/domain"
)

// APIHandler exposes the submit and results-read surface as JSON over HTTP.
type APIHandler struct {
	service *app.AttemptService
}

func NewAPIHandler(service *app.AttemptService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the JSON routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attempts", h.submit)
	mux.HandleFunc("GET /api/challenges/{challengeID}/aggregate", h.aggregate)
	mux.HandleFunc("GET /api/challenges/{challengeID}/percentile", h.percentile)
}

type submitRequest struct {
	UserID      string   `json:"userId"`
	ChallengeID string   `json:"challengeId"`
	DateKey     string   `json:"dateKey"`
	Ranking     []string `json:"ranking"`
}

func (h *APIHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ChallengeID == "" || req.DateKey == "" {
		writeError(w, http.StatusBadRequest, "missing userId, challengeId, or dateKey")
		return
	}

	result, err := h.service.Submit(r.Context(), req.UserID, req.ChallengeID, req.DateKey, req.Ranking)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) aggregate(w http.ResponseWriter, r *http.Request) {
	challengeID := r.PathValue("challengeID")
	agg, err := h.service.AggregateFor(r.Context(), challengeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if agg == nil {
		agg = domain.NewAggregate(challengeID)
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *APIHandler) percentile(w http.ResponseWriter, r *http.Request) {
	challengeID := r.PathValue("challengeID")
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil || score < 0 || score > 100 {
		writeError(w, http.StatusBadRequest, "score must be an integer 0..100")
		return
	}
	p, err := h.service.PercentileOf(r.Context(), challengeID, score)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"percentile": p})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRanking), errors.Is(err, domain.ErrInvalidDateKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAttemptConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
