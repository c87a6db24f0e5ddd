package httpx

import (
	"net/http"

	"github.com/profilegate/screener/internal/service"
)

// RouterOptions groups dependencies for NewRouter.
type RouterOptions struct {
	Gate *service.Gate
	Jobs *service.JobService
}

// NewRouter builds the API mux. Routes:
//
//	POST /api/ingest         validate-and-ingest
//	GET  /api/jobs           list jobs (status filter, pagination)
//	GET  /api/jobs/stats     per-state job counts
//	GET  /api/jobs/{id}      job status
//	GET  /health             liveness
func NewRouter(opts RouterOptions) *http.ServeMux {
	gateHandlers := &GateHandlers{Gate: opts.Gate}
	jobHandlers := &JobHandlers{Svc: opts.Jobs}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest", gateHandlers.Ingest)
	mux.HandleFunc("GET /api/jobs", jobHandlers.ListJobs)
	mux.HandleFunc("GET /api/jobs/stats", jobHandlers.JobStats)
	mux.HandleFunc("GET /api/jobs/{id}", jobHandlers.GetJob)
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("HEAD /health", healthHandler)
	return mux
}
