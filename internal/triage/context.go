package triage

import (
	"context"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/logcontext"
)

const (
	logContextHeader  = "Context logs from loki:"
	cheatSheetHeader  = "Context from cheat sheet:"
	contextLinesAbove = logcontext.DefaultLinesAbove
)

// augmentContext runs the nested context sub-pipeline: cheat-sheet lookup,
// then a model decision on whether the surrounding log lines would help, then
// the conditional retrieval. Retrieval-layer failures degrade the log context
// to empty; only the model call itself can fail the stage.
func (e *Engine) augmentContext(ctx context.Context, a *alert.Alert, L log.Logger) (string, error) {
	kbContext := e.cheatSheetContext(ctx, a.Summary, L)

	verdict, err := e.gateway.RouteContext(ctx, a.Summary, kbContext)
	if err != nil {
		return "", err
	}
	L.Debug(ctx, "context route decided", "decision", verdict.Decision, "reasoning", verdict.Reasoning)

	logContext := ""
	if verdict.Decision == llm.ContextFetchLogs {
		logContext = e.logLinesContext(ctx, a, L)
	}

	cheatSheet := cheatSheetHeader + "\n" + kbContext
	if logContext == "" {
		return cheatSheet, nil
	}
	return logContextHeader + "\n" + logContext + "\n\n" + cheatSheet, nil
}

// cheatSheetContext queries the knowledge base; any failure degrades to empty.
func (e *Engine) cheatSheetContext(ctx context.Context, summary string, L log.Logger) string {
	if e.kb == nil {
		return ""
	}
	kbContext, err := e.kb.Context(ctx, summary)
	if err != nil {
		L.Warn(ctx, "cheat sheet lookup failed, continuing without it", "error", err)
		return ""
	}
	return kbContext
}

// logLinesContext retrieves the lines preceding the alert's log line and
// renders them as one block. Any retrieval failure degrades to empty.
func (e *Engine) logLinesContext(ctx context.Context, a *alert.Alert, L log.Logger) string {
	if e.retriever == nil {
		return ""
	}
	entries, err := e.retriever.RetrieveAbove(ctx, logcontext.Target{
		File:      a.LogEntry.Labels.Filename,
		Message:   a.LogEntry.Message,
		Timestamp: a.LogEntry.Timestamp,
	}, contextLinesAbove)
	if err != nil {
		L.Warn(ctx, "log context retrieval failed, continuing without it", "error", err)
		return ""
	}

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.Message
	}
	return strings.Join(lines, "\n")
}
