package alertapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/remedy/internal/alert"
)

func (a *API) handleSubmitAlert(w http.ResponseWriter, r *http.Request) {
	var entry alert.LogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if entry.Message == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
		return
	}

	res, err := a.svc.Submit(r.Context(), entry)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit alert")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("remedy.alert.id", res.ID))

	a.writeJSON(r.Context(), w, http.StatusAccepted, res)
}

func (a *API) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.RunBatch(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "batch triage failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.Int("remedy.batch.alerts", res.Alerts),
		attribute.Int("remedy.batch.clusters", res.Clusters),
	)

	a.writeJSON(r.Context(), w, http.StatusOK, res)
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("remedy.alert.id", id))

	al, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get alert", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusOK, al)
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.svc.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list alerts")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	a.writeAlerts(w, r, alerts)
}

func (a *API) handleListByExpertClass(w http.ResponseWriter, r *http.Request) {
	category, ok := a.expertClass(w, r)
	if !ok {
		return
	}

	alerts, err := a.svc.ListByClassification(r.Context(), category)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list alerts by classification")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	a.writeAlerts(w, r, alerts)
}

func (a *API) handleUniqueClusters(w http.ResponseWriter, r *http.Request) {
	category, ok := a.expertClass(w, r)
	if !ok {
		return
	}

	alerts, err := a.svc.ClusterRepresentatives(r.Context(), category)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list cluster representatives")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	a.writeAlerts(w, r, alerts)
}

func (a *API) handleListByExpertClassAndCluster(w http.ResponseWriter, r *http.Request) {
	category, ok := a.expertClass(w, r)
	if !ok {
		return
	}
	clusterLabel := r.URL.Query().Get("log_cluster")
	if clusterLabel == "" {
		http.Error(w, `{"error":"log_cluster query parameter is required"}`, http.StatusBadRequest)
		return
	}

	alerts, err := a.svc.ListByClassificationAndCluster(r.Context(), category, clusterLabel)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list alerts by classification and cluster")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	a.writeAlerts(w, r, alerts)
}

// writeAlerts always encodes a JSON array, never null.
func (a *API) writeAlerts(w http.ResponseWriter, r *http.Request, alerts []*alert.Alert) {
	if alerts == nil {
		alerts = []*alert.Alert{}
	}
	a.writeJSON(r.Context(), w, http.StatusOK, alerts)
}
