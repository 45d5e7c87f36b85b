package alertapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/remedy/internal/ingest"
)

// jobLogRequest carries a raw automation job log for failure extraction.
type jobLogRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// handleSubmitJobLog extracts the failed task from a raw job log and submits
// it as an alert. Logs whose only failures are ignored by the playbook yield
// 422, same as logs with no failure at all.
func (a *API) handleSubmitJobLog(w http.ResponseWriter, r *http.Request) {
	var req jobLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content is required"}`, http.StatusBadRequest)
		return
	}

	ext, ok := ingest.Extract(req.Content)
	if !ok {
		http.Error(w, `{"error":"no failure found in job log"}`, http.StatusUnprocessableEntity)
		return
	}

	res, err := a.svc.Submit(r.Context(), ext.Entry(req.Filename))
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit job log alert")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("remedy.alert.id", res.ID),
		attribute.String("remedy.joblog.task", ext.TaskName),
	)

	a.writeJSON(r.Context(), w, http.StatusAccepted, res)
}
