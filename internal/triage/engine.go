package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/logcontext"
)

// ContextRetriever recovers the log lines preceding a target line. Implemented
// by logcontext.Retriever; tests substitute fakes.
type ContextRetriever interface {
	RetrieveAbove(ctx context.Context, tgt logcontext.Target, n int) ([]alert.LogEntry, error)
}

// Engine drives one alert through the triage pipeline: summarize, classify,
// route, optionally augment context, then solve. Stages populate the alert's
// derived fields strictly in that order. Any gateway failure aborts the run;
// retrieval failures inside context augmentation only degrade the context.
type Engine struct {
	gateway   llm.Gateway
	kb        KnowledgeBase
	retriever ContextRetriever
	logger    log.Logger
}

// KnowledgeBase supplies cheat-sheet context for a summary. May be nil on an
// Engine, in which case the cheat-sheet lookup yields empty context.
type KnowledgeBase interface {
	Context(ctx context.Context, query string) (string, error)
}

// NewEngine creates a pipeline engine. kb and retriever may be nil; the
// corresponding context sources then degrade to empty.
func NewEngine(gateway llm.Gateway, kb KnowledgeBase, retriever ContextRetriever, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{gateway: gateway, kb: kb, retriever: retriever, logger: logger}
}

// Run executes the pipeline on a, mutating its derived fields in place. The
// alert must not be shared with another concurrent Run. On error the alert is
// left with whatever fields the completed stages had already set.
func (e *Engine) Run(ctx context.Context, a *alert.Alert) error {
	start := time.Now()
	L := e.logger.With("alert_id", a.ID, "cluster", a.Cluster)

	summary, err := e.gateway.Summarize(ctx, a.LogEntry.Message)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	a.Summary = summary

	category, err := e.gateway.Classify(ctx, a.Summary)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	a.Classification = category

	decision, err := e.gateway.Route(ctx, a.Summary)
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}
	need := decision == llm.DecisionNeedMoreContext
	a.NeedMoreContext = &need

	if need {
		contextText, err := e.augmentContext(ctx, a, L)
		if err != nil {
			return fmt.Errorf("augment context: %w", err)
		}
		a.SolutionContext = contextText
	}

	solution, err := e.gateway.Solve(ctx, a.Summary, a.LogEntry.Message, a.SolutionContext)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	a.Solution = solution.Steps

	L.Info(ctx, "pipeline complete",
		"classification", a.Classification,
		"need_more_context", need,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
