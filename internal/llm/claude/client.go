// Package claude implements the model gateway on the Anthropic Messages API.
// Every structured call forces a single tool so the model's answer arrives as
// a typed tool input instead of free text.
package claude

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/llm"
)

const (
	defaultMaxTokens = 1024

	systemPrompt = "You are an Ansible expert and helpful assistant"
)

// Client implements llm.Gateway against the Anthropic API.
type Client struct {
	api    anthropic.Client
	model  anthropic.Model
	logger log.Logger
}

// New creates a gateway client for the given API key and model name. Extra
// request options are applied to every call.
func New(apiKey, model string, logger log.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		api:    anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
		logger: logger,
	}
}

type summaryOutput struct {
	Summary string `json:"summary"`
}

type classifyOutput struct {
	Category string `json:"category"`
}

type routeOutput struct {
	Suggestion string `json:"suggestion"`
}

type contextRouteOutput struct {
	Reasoning      string `json:"reasoning"`
	Classification string `json:"classification"`
}

type solveOutput struct {
	RootCauseAnalysis  string `json:"root_cause_analysis"`
	StepByStepSolution string `json:"step_by_step_solution"`
}

// Summarize condenses a raw failure log into a short summary.
func (c *Client) Summarize(ctx context.Context, message string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following failure log in a few sentences. Focus on what failed and the immediate error.\n\nError log:\n%s", message)

	var out summaryOutput
	if err := c.call(ctx, prompt, summaryTool(), &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// Classify assigns the summary to one of the fixed expert categories.
func (c *Client) Classify(ctx context.Context, summary string) (alert.Category, error) {
	prompt := fmt.Sprintf("Classify the following failure summary to the expert team best placed to handle it.\n\nSummary:\n%s", summary)

	var out classifyOutput
	if err := c.call(ctx, prompt, classifyTool(), &out); err != nil {
		return "", err
	}
	cat := alert.Category(out.Category)
	if !cat.Valid() {
		c.logger.Warn(ctx, "model returned unknown category, using catch-all", "category", out.Category)
		return alert.CategoryOther, nil
	}
	return cat, nil
}

// Route decides whether the solver needs additional context.
func (c *Client) Route(ctx context.Context, summary string) (llm.Decision, error) {
	prompt := fmt.Sprintf("Decide whether a step by step solution can be produced from the summary alone, or whether more context is needed first.\n\nSummary:\n%s", summary)

	var out routeOutput
	if err := c.call(ctx, prompt, routeTool(), &out); err != nil {
		return "", err
	}
	d := llm.Decision(out.Suggestion)
	if !d.Valid() {
		return "", fmt.Errorf("%w: unrecognized route decision %q", llm.ErrGateway, out.Suggestion)
	}
	return d, nil
}

// RouteContext decides whether log-backend retrieval should run on top of
// the knowledge-base context.
func (c *Client) RouteContext(ctx context.Context, summary, kbContext string) (llm.ContextVerdict, error) {
	prompt := fmt.Sprintf("Given the failure summary and the cheat sheet context below, decide whether fetching the surrounding log lines from the log database would help diagnose the failure.\n\nSummary:\n%s\n\nCheat sheet context:\n%s", summary, kbContext)

	var out contextRouteOutput
	if err := c.call(ctx, prompt, contextRouteTool(), &out); err != nil {
		return llm.ContextVerdict{}, err
	}
	d := llm.ContextDecision(out.Classification)
	if d != llm.ContextFetchLogs && d != llm.ContextSkipLogs {
		return llm.ContextVerdict{}, fmt.Errorf("%w: unrecognized context decision %q", llm.ErrGateway, out.Classification)
	}
	return llm.ContextVerdict{Reasoning: out.Reasoning, Decision: d}, nil
}

// Solve produces the final root cause and remediation steps.
func (c *Client) Solve(ctx context.Context, summary, message, contextText string) (llm.Solution, error) {
	prompt := fmt.Sprintf("Produce a root cause analysis and a step by step solution for the failure below.\n\nSummary:\n%s\n\nError log:\n%s", summary, message)
	if contextText != "" {
		prompt += fmt.Sprintf("\n\nAdditional context:\n%s", contextText)
	}

	var out solveOutput
	if err := c.call(ctx, prompt, solveTool(), &out); err != nil {
		return llm.Solution{}, err
	}
	return llm.Solution{RootCause: out.RootCauseAnalysis, Steps: out.StepByStepSolution}, nil
}

// call sends one user message with a single forced tool and decodes the tool
// input into out.
func (c *Client) call(ctx context.Context, prompt string, tool anthropic.ToolParam, out any) error {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: tool.Name},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrGateway, err)
	}

	c.logger.Debug(ctx, "model call completed",
		"tool", tool.Name,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)

	input, err := toolInput(msg, tool.Name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(input, out); err != nil {
		return fmt.Errorf("%w: decode %s output: %v", llm.ErrGateway, tool.Name, err)
	}
	return nil
}

// toolInput extracts the forced tool's input block from the response.
func toolInput(msg *anthropic.Message, name string) (json.RawMessage, error) {
	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == name {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("%w: response carries no %s tool call (stop reason %q)", llm.ErrGateway, name, msg.StopReason)
}

func summaryTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        "record_summary",
		Description: anthropic.String("Record the summary of the failure log."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"summary": map[string]any{"type": "string", "description": "Summary of the log"},
			},
			Required: []string{"summary"},
		},
	}
}

func classifyTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        "record_classification",
		Description: anthropic.String("Record the expert team category for the failure."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"category": map[string]any{
					"type":        "string",
					"enum":        categoryNames(),
					"description": "Category of the log",
				},
			},
			Required: []string{"category"},
		},
	}
}

func routeTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        "record_route",
		Description: anthropic.String("Record whether more context is needed before solving."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"suggestion": map[string]any{
					"type":        "string",
					"enum":        []string{string(llm.DecisionNoMoreContext), string(llm.DecisionNeedMoreContext)},
					"description": "'No More Context Needed' if the solution is straightforward, 'Need More Context' if the solution is complex",
				},
			},
			Required: []string{"suggestion"},
		},
	}
}

func contextRouteTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        "record_context_route",
		Description: anthropic.String("Record whether to fetch surrounding log lines from the log database."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"reasoning": map[string]any{"type": "string", "description": "the reasoning for the decision"},
				"classification": map[string]any{
					"type":        "string",
					"enum":        []string{string(llm.ContextFetchLogs), string(llm.ContextSkipLogs)},
					"description": "determines if we need to fetch more context from the log database",
				},
			},
			Required: []string{"reasoning", "classification"},
		},
	}
}

func solveTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        "record_solution",
		Description: anthropic.String("Record the root cause analysis and the step by step solution."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"root_cause_analysis": map[string]any{
					"type":        "string",
					"description": "Root Cause Analysis of the error, this should be a detailed analysis of the error and the root cause",
				},
				"step_by_step_solution": map[string]any{
					"type":        "string",
					"description": "A multi-step by step solution to the error",
				},
			},
			Required: []string{"root_cause_analysis", "step_by_step_solution"},
		},
	}
}

func categoryNames() []string {
	cats := alert.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}
