package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/gorilla/mux"
)

const maxLimit = 500

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/analyses", h.listRuns).Methods(http.MethodGet)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	runs, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list analysis runs")
		http.Error(w, "failed to list analysis runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
