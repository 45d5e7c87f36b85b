// Package slack sends triage notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
)

const (
	maxSolutionLen = 3000
	httpTimeout    = 10 * time.Second
)

// Notifier sends triaged alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts a triaged alert to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, a *alert.Alert) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(a)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Debug(ctx, "slack notification sent", "alert_id", a.ID)
	return nil
}

func buildMessage(a *alert.Alert) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(a),
			{"type": "divider"},
			fieldsBlock(a),
			{"type": "divider"},
			summaryBlock(a),
			solutionBlock(a),
			{"type": "divider"},
			contextBlock(a),
		},
	}
}

func headerBlock(a *alert.Alert) map[string]any {
	title := "Automation Failure Triaged"
	if a.Solution == "" {
		title = "Automation Failure Detected"
	}
	text := fmt.Sprintf("%s %s", levelEmoji(a.LogEntry.Labels.DetectedLevel), title)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(a *alert.Alert) map[string]any {
	needCtx := "unknown"
	if a.NeedMoreContext != nil {
		needCtx = "no"
		if *a.NeedMoreContext {
			needCtx = "yes"
		}
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Responsible team:* %s", orDash(string(a.Classification))),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Cluster:* %s", orDash(a.Cluster)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*File:* %s", orDash(a.LogEntry.Labels.Filename)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Level:* %s", orDash(a.LogEntry.Labels.DetectedLevel)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Needed more context:* %s", needCtx),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func summaryBlock(a *alert.Alert) map[string]any {
	text := a.Summary
	if text == "" {
		text = "_No summary available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summary*\n\n%s", text),
		},
	}
}

func solutionBlock(a *alert.Alert) map[string]any {
	text := truncate(a.Solution, maxSolutionLen)
	if text == "" {
		text = "_No solution available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Step-by-step solution*\n\n%s", text),
		},
	}
}

func contextBlock(a *alert.Alert) map[string]any {
	ts := a.UpdatedAt
	if ts.IsZero() {
		ts = a.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("remedy • alert %s • %s", a.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func levelEmoji(level string) string {
	switch strings.ToLower(level) {
	case "fatal", "critical":
		return "\U0001f534" // red circle
	case "error", "failed":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
