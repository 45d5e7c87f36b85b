package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/triage"
)

// TriageService defines the business operations alertapi needs.
type TriageService interface {
	Submit(ctx context.Context, entry alert.LogEntry) (*triage.SubmitResult, error)
	RunBatch(ctx context.Context) (*triage.BatchResult, error)
	Get(ctx context.Context, id string) (*alert.Alert, bool, error)
	List(ctx context.Context) ([]*alert.Alert, error)
	ListByClassification(ctx context.Context, category alert.Category) ([]*alert.Alert, error)
	ListByClassificationAndCluster(ctx context.Context, category alert.Category, clusterLabel string) ([]*alert.Alert, error)
	ClusterRepresentatives(ctx context.Context, category alert.Category) ([]*alert.Alert, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleSubmitAlert)
		r.Post("/alerts/joblog", a.handleSubmitJobLog)
		r.Post("/triage/batch", a.handleRunBatch)

		r.Get("/alerts", a.handleListAlerts)
		r.Get("/alerts/by-expert-class", a.handleListByExpertClass)
		r.Get("/alerts/unique-clusters", a.handleUniqueClusters)
		r.Get("/alerts/by-expert-class-and-log-cluster", a.handleListByExpertClassAndCluster)
		r.Get("/alerts/{id}", a.handleGetAlert)
	})
}

func (a *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(ctx, err, "failed to encode response")
	}
}

// expertClass parses and validates the expert_class query parameter. It
// writes the error response itself and returns false when the value is
// missing or not one of the known categories.
func (a *API) expertClass(w http.ResponseWriter, r *http.Request) (alert.Category, bool) {
	raw := r.URL.Query().Get("expert_class")
	if raw == "" {
		http.Error(w, `{"error":"expert_class query parameter is required"}`, http.StatusBadRequest)
		return "", false
	}
	category := alert.Category(raw)
	if !category.Valid() {
		http.Error(w, `{"error":"unknown expert_class"}`, http.StatusBadRequest)
		return "", false
	}
	return category, true
}
