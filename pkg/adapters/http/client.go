package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/keel/internal/logging"
	"github.com/aretw0/keel/pkg/policy"
	"github.com/aretw0/keel/pkg/ports"
)

// DefaultDryRunPath is where the evaluator accepts dry-run requests.
const DefaultDryRunPath = "/api/v1/meta/policies/dry-run"

// DryRunClient forwards dry-run requests to the external evaluator.
type DryRunClient struct {
	endpoint string
	path     string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.DryRunner = (*DryRunClient)(nil)

// ClientOption configures a DryRunClient.
type ClientOption func(*DryRunClient)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(d *DryRunClient) {
		d.client = c
	}
}

// WithPath overrides DefaultDryRunPath.
func WithPath(path string) ClientOption {
	return func(d *DryRunClient) {
		d.path = path
	}
}

// WithClientLogger configures a logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(d *DryRunClient) {
		d.logger = logger
	}
}

// NewDryRunClient creates a client for the evaluator at baseURL.
func NewDryRunClient(baseURL string, opts ...ClientOption) *DryRunClient {
	d := &DryRunClient{
		path:   DefaultDryRunPath,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.endpoint = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(d.path, "/")
	return d
}

// DryRun sends req and decodes the evaluator's verdict.
func (d *DryRunClient) DryRun(ctx context.Context, req policy.DryRunRequest) (policy.DryRunResult, error) {
	var result policy.DryRunResult

	if req.Context == nil {
		req.Context = map[string]any{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return result, fmt.Errorf("dry-run: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("dry-run: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("dry-run: %w", err)
	}
	defer resp.Body.Close()

	d.logger.Debug("Dry-run completed", "status", resp.StatusCode, "duration", time.Since(start), "rules", len(req.Policy.Rules))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result, fmt.Errorf("dry-run: evaluator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("dry-run: decode response: %w", err)
	}
	return result, nil
}
