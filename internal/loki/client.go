// Package loki is the HTTP gateway to the Loki log aggregation backend. It
// exposes a bounded range query and returns raw labeled streams; ordering
// across streams is the caller's concern (see logstream).
package loki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/logstream"
	"github.com/linnemanlabs/remedy/internal/logtime"
)

const (
	// MaxQueryLimit is the hard cap on entries per query. Callers asking for
	// more get the capped amount silently; the clamp is logged, not errored.
	MaxQueryLimit = 5000

	// DefaultLimit applies when a caller passes a non-positive limit.
	DefaultLimit = 100

	httpTimeout   = 30 * time.Second
	maxResponseMB = 16
)

// Querier is the contract the retrieval layer depends on. *Client implements
// it; tests substitute fakes.
type Querier interface {
	Query(ctx context.Context, p Params) (*Result, error)
}

// Params describes one bounded range query. Start and End accept anything
// logtime.ResolveInput accepts: RFC3339, epoch strings, or relative offsets
// resolved against Reference (or passed through for the backend when
// Reference is absent).
type Params struct {
	Query     string
	Start     string
	End       string
	Limit     int
	Direction logstream.Direction
	Reference string
}

// Result is the raw outcome of one query: per-stream entries plus the
// backend-reported execution time.
type Result struct {
	Streams    []logstream.Stream
	EntryCount int
	ExecTimeMS float64
}

// Client queries Loki over its HTTP range API.
type Client struct {
	endpoint   string
	tenantID   string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a Loki client for the given endpoint. tenantID may be empty
// for single-tenant deployments.
func New(endpoint, tenantID string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		endpoint:   endpoint,
		tenantID:   tenantID,
		httpClient: &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

type rawStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type rawResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string      `json:"resultType"`
		Result     []rawStream `json:"result"`
		Stats      struct {
			Summary struct {
				ExecTime float64 `json:"execTime"`
			} `json:"summary"`
		} `json:"stats"`
	} `json:"data"`
}

const successStatus = "success"

// clampLimit normalizes the requested limit into (0, MaxQueryLimit].
func (c *Client) clampLimit(ctx context.Context, limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxQueryLimit:
		c.logger.Warn(ctx, "query limit capped", "requested", limit, "applied", MaxQueryLimit)
		return MaxQueryLimit
	default:
		return limit
	}
}

// Query executes one range query and returns the labeled streams as the
// backend delivered them, each internally ordered per the requested
// direction.
func (c *Client) Query(ctx context.Context, p Params) (*Result, error) {
	if p.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := c.clampLimit(ctx, p.Limit)
	direction := p.Direction
	if direction == "" {
		direction = logstream.Backward
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, "loki/api/v1/query_range")

	q := u.Query()
	q.Set("query", p.Query)
	q.Set("start", logtime.ResolveInput(p.Start, p.Reference))
	q.Set("end", logtime.ResolveInput(p.End, p.Reference))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("direction", string(direction))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Scope-OrgID", c.tenantID)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704 - endpoint is set at construction from config; caller inputs are query-string encoded via url.Values.Set().
	if err != nil {
		return nil, fmt.Errorf("loki query failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseMB<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loki returned %d: %s", resp.StatusCode, string(body))
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if raw.Status != successStatus {
		return nil, fmt.Errorf("loki query failed: %s", string(body))
	}

	res := &Result{
		Streams:    make([]logstream.Stream, 0, len(raw.Data.Result)),
		ExecTimeMS: raw.Data.Stats.Summary.ExecTime * 1000,
	}
	for _, rs := range raw.Data.Result {
		s := logstream.Stream{
			Labels:  rs.Stream,
			Entries: make([]alert.LogEntry, 0, len(rs.Values)),
		}
		labels := typedLabels(rs.Stream)
		for _, v := range rs.Values {
			if len(v) < 2 {
				continue
			}
			s.Entries = append(s.Entries, alert.LogEntry{
				Timestamp: v[0],
				Labels:    labels,
				Message:   v[1],
			})
			res.EntryCount++
		}
		res.Streams = append(res.Streams, s)
	}
	return res, nil
}

func typedLabels(m map[string]string) alert.Labels {
	return alert.Labels{
		DetectedLevel: m["detected_level"],
		Filename:      m["filename"],
		Job:           m["job"],
		ServiceName:   m["service_name"],
	}
}
