package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/profilegate/screener/internal/data"
	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/service"
)

// JobHandlers provides HTTP handlers for scoring job operations.
type JobHandlers struct {
	Svc *service.JobService
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code: http.StatusBadRequest, ErrCode: "invalid_path",
			Err: errors.New("job id is required"),
		})
		return
	}

	job, err := h.Svc.GetByID(r.Context(), id)
	switch {
	case errors.Is(err, data.ErrJobNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs with optional status filter and pagination.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	opts := &model.JobListOptions{
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		var status model.JobStatus
		if err := status.UnmarshalText([]byte(raw)); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_status", Err: err})
			return
		}
		opts.Status = &status
	}

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// JobStats handles GET /api/jobs/stats.
func (h *JobHandlers) JobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "stats_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
