// Package httpx provides the JSON API for the screening gate and the
// scoring job engine.
package httpx

import (
	"errors"
	"net/http"

	"github.com/profilegate/screener/internal/data"
	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/service"
)

// GateHandlers provides HTTP handlers for validate-and-ingest requests.
type GateHandlers struct {
	Gate *service.Gate
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	Identifier string         `json:"identifier"`
	SubjectID  string         `json:"subject_id"`
	Category   model.Category `json:"category"`
}

// Ingest runs the quality gate and, on acceptance, creates a scoring job.
// Stage rejections return 200 with accepted=false and per-stage detail;
// only malformed input and infrastructure faults are HTTP errors.
func (h *GateHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Gate.Ingest(r.Context(), req.Identifier, req.SubjectID, req.Category)
	switch {
	case errors.Is(err, data.ErrDuplicateActiveJob):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "duplicate_job", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "ingest_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
