package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const (
	httpTimeout   = 60 * time.Second
	maxResponseMB = 4
)

// ServiceLabeler calls the external clustering service, which holds the
// trained embedding and cluster model.
type ServiceLabeler struct {
	endpoint   string
	httpClient *http.Client
	logger     log.Logger
}

// NewServiceLabeler creates a labeler client for the clustering service
// endpoint.
func NewServiceLabeler(endpoint string, logger log.Logger) *ServiceLabeler {
	if logger == nil {
		logger = log.Nop()
	}
	return &ServiceLabeler{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

type labelRequest struct {
	Messages []string `json:"messages"`
}

type labelResponse struct {
	Labels []int `json:"labels"`
}

// Label sends the messages to the clustering service and returns one label
// per message. Outlier labels are normalized to singleton clusters before
// returning.
func (s *ServiceLabeler) Label(ctx context.Context, messages []string) ([]string, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(labelRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshal label request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/api/v1/label", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create label request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clustering service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseMB<<20))
	if err != nil {
		return nil, fmt.Errorf("read label response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clustering service returned %d: %s", resp.StatusCode, raw)
	}

	var decoded labelResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode label response: %w", err)
	}
	if len(decoded.Labels) != len(messages) {
		return nil, fmt.Errorf("clustering service returned %d labels for %d messages", len(decoded.Labels), len(messages))
	}

	s.logger.Debug(ctx, "messages labeled",
		"count", len(messages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return labelStrings(NormalizeOutliers(decoded.Labels)), nil
}
