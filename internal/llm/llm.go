// Package llm defines the model gateway contract: four fixed call shapes the
// triage pipeline makes against a language-model backend, plus the routing
// decision used inside the context sub-pipeline. Prompt text and model choice
// live behind the gateway; callers only see the data contracts.
package llm

import (
	"context"
	"errors"

	"github.com/linnemanlabs/remedy/internal/alert"
)

// ErrGateway wraps every backend failure so callers can classify gateway
// errors without knowing the backend.
var ErrGateway = errors.New("model gateway call failed")

// Decision is the routing outcome between solving directly and augmenting
// context first. It is a closed set; compare against the constants, never
// against free-form strings.
type Decision string

const (
	DecisionNoMoreContext   Decision = "No More Context Needed"
	DecisionNeedMoreContext Decision = "Need More Context"
)

// Valid reports whether d is one of the two recognized decisions.
func (d Decision) Valid() bool {
	return d == DecisionNoMoreContext || d == DecisionNeedMoreContext
}

// ContextDecision is the sub-pipeline's verdict on whether log-backend
// retrieval is worth performing on top of the knowledge-base context.
type ContextDecision string

const (
	ContextFetchLogs ContextDecision = "need_more_context_from_loki_db"
	ContextSkipLogs  ContextDecision = "no_need_more_context_from_loki_db"
)

// ContextVerdict carries the sub-pipeline routing decision together with the
// model's stated reasoning. The reasoning is informational only.
type ContextVerdict struct {
	Reasoning string
	Decision  ContextDecision
}

// Solution is the terminal pipeline output: a root-cause analysis and a
// multi-step remediation.
type Solution struct {
	RootCause string
	Steps     string
}

// Gateway is the model backend seen by the pipeline. Every call may fail;
// failures are reported, not retried, by callers. Retries, if any, are the
// implementation's concern.
type Gateway interface {
	// Summarize condenses a raw failure log into a short summary.
	Summarize(ctx context.Context, message string) (string, error)

	// Classify assigns the summary to one of the fixed expert categories.
	// An empty summary still classifies; the backend may return the
	// catch-all category.
	Classify(ctx context.Context, summary string) (alert.Category, error)

	// Route decides whether the solver needs additional context.
	Route(ctx context.Context, summary string) (Decision, error)

	// RouteContext decides, given the summary and whatever the knowledge
	// base produced, whether log-backend retrieval should also run.
	RouteContext(ctx context.Context, summary, kbContext string) (ContextVerdict, error)

	// Solve produces the final root cause and remediation steps. The
	// contextText may be empty when context augmentation was skipped or
	// degraded.
	Solve(ctx context.Context, summary, message, contextText string) (Solution, error)
}
