package routes

import (
	"net/http"

	"github.com/adcatlas/curation-backend/internal/api/handlers"
	"github.com/adcatlas/curation-backend/internal/api/loaders"
	"github.com/adcatlas/curation-backend/internal/api/middleware"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	recordHandler     *handlers.RecordHandler
	provenanceHandler *handlers.ProvenanceHandler
	enrichmentHandler *handlers.EnrichmentHandler
	reviewHandler     *handlers.ReviewHandler
	stagingHandler    *handlers.StagingHandler

	evidenceRepo   repositories.EvidenceRepository
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	recordHandler *handlers.RecordHandler,
	provenanceHandler *handlers.ProvenanceHandler,
	enrichmentHandler *handlers.EnrichmentHandler,
	reviewHandler *handlers.ReviewHandler,
	stagingHandler *handlers.StagingHandler,
	evidenceRepo repositories.EvidenceRepository,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		recordHandler:     recordHandler,
		provenanceHandler: provenanceHandler,
		enrichmentHandler: enrichmentHandler,
		reviewHandler:     reviewHandler,
		stagingHandler:    stagingHandler,
		evidenceRepo:      evidenceRepo,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Records
	r.mux.HandleFunc("POST /api/records", r.recordHandler.CreateRecord)
	r.mux.HandleFunc("GET /api/records", r.recordHandler.ListRecords)
	r.mux.HandleFunc("GET /api/records/{id}", r.recordHandler.GetRecord)
	r.mux.HandleFunc("POST /api/records/{id}/transition", r.recordHandler.TransitionRecord)
	r.mux.HandleFunc("PUT /api/records/{id}/verified-lock", r.recordHandler.SetVerifiedLock)
	r.mux.HandleFunc("POST /api/records/{id}/evidence", r.recordHandler.AttachEvidence)
	r.mux.HandleFunc("GET /api/records/{id}/gates", r.recordHandler.CheckGates)
	r.mux.HandleFunc("POST /api/records/{id}/promote", r.recordHandler.PromoteRecord)

	// Provenance and evidence
	r.mux.HandleFunc("GET /api/records/{id}/provenance", r.provenanceHandler.ListProvenance)
	r.mux.HandleFunc("GET /api/records/{id}/provenance/latest", r.provenanceHandler.LatestProvenance)
	r.mux.HandleFunc("GET /api/records/{id}/provenance/high-confidence", r.provenanceHandler.HighConfidenceFields)
	r.mux.HandleFunc("POST /api/provenance", r.provenanceHandler.LinkField)
	r.mux.HandleFunc("POST /api/evidence", r.provenanceHandler.RecordEvidence)
	r.mux.HandleFunc("GET /api/evidence/{id}", r.provenanceHandler.GetEvidence)

	// Enrichment jobs
	r.mux.HandleFunc("POST /api/enrichment/jobs", r.enrichmentHandler.RegisterJob)
	r.mux.HandleFunc("GET /api/enrichment/jobs/{id}", r.enrichmentHandler.GetJob)
	r.mux.HandleFunc("POST /api/enrichment/jobs/{id}/complete", r.enrichmentHandler.CompleteJob)
	r.mux.HandleFunc("POST /api/enrichment/jobs/{id}/fail", r.enrichmentHandler.FailJob)
	r.mux.HandleFunc("GET /api/enrichment/jobs/{id}/diff", r.enrichmentHandler.GetDiff)
	r.mux.HandleFunc("POST /api/enrichment/jobs/{id}/apply", r.enrichmentHandler.ApplyJob)

	// Review queue
	r.mux.HandleFunc("POST /api/review/changes", r.reviewHandler.EnqueueChange)
	r.mux.HandleFunc("GET /api/review/changes", r.reviewHandler.ListChanges)
	r.mux.HandleFunc("GET /api/review/changes/{id}", r.reviewHandler.GetChange)
	r.mux.HandleFunc("POST /api/review/changes/{id}/approve", r.reviewHandler.ApproveChange)
	r.mux.HandleFunc("POST /api/review/changes/{id}/reject", r.reviewHandler.RejectChange)
	r.mux.HandleFunc("POST /api/review/changes/auto-approve", r.reviewHandler.AutoApprove)

	// Staging
	r.mux.HandleFunc("POST /api/staging", r.stagingHandler.CreateComponent)
	r.mux.HandleFunc("GET /api/staging", r.stagingHandler.ListComponents)
	r.mux.HandleFunc("GET /api/staging/{id}", r.stagingHandler.GetComponent)
	r.mux.HandleFunc("POST /api/staging/{id}/approve", r.stagingHandler.ApproveComponent)
	r.mux.HandleFunc("POST /api/staging/{id}/reject", r.stagingHandler.RejectComponent)
	r.mux.HandleFunc("POST /api/staging/bulk-approve", r.stagingHandler.BulkApprove)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = loaders.Middleware(r.evidenceRepo)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics, r.mux)(handler)
	handler = middleware.Compression(handler)
	// CORS wraps everything so preflights never reach the mux
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
