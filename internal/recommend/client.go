// Package recommend provides the HTTP client for the action recommendation
// service. Recommendations are synchronous; feedback posts are fire-and-forget
// and dispatched through the feedback package.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"plancore/pkg/domain"
)

// ServiceName is the identifier carried by ExternalServiceError values.
const ServiceName = "recommendation service"

const defaultTimeout = 10 * time.Second

// Context carries the organizational fields the model conditions on.
type Context struct {
	HazardFamily    string `json:"hazard_family,omitempty"`
	SectionTitle    string `json:"section_title,omitempty"`
	Area            string `json:"area,omitempty"`
	Company         string `json:"company,omitempty"`
	Vicepresidencia string `json:"vicepresidencia,omitempty"`
}

// Request asks for proposed corrective actions for one observation.
type Request struct {
	QuestionText    string  `json:"question_text"`
	CurrentResponse string  `json:"current_response,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	Context         Context `json:"context"`
}

// Response carries ranked action suggestions, best first.
type Response struct {
	Priority           string   `json:"priority,omitempty"`
	ImprovementGap     float64  `json:"improvement_gap,omitempty"`
	RecommendedActions []string `json:"recommended_actions"`
}

// FeedbackPayload reports back which action a user kept for an observation.
type FeedbackPayload struct {
	Question        string   `json:"question"`
	AssumedResponse string   `json:"assumed_response,omitempty"`
	Description     string   `json:"description"`
	ChosenAction    string   `json:"chosen_action"`
	HazardFamily    string   `json:"hazard_family,omitempty"`
	Area            string   `json:"area,omitempty"`
	Company         string   `json:"company,omitempty"`
	Vicepresidencia string   `json:"vicepresidencia,omitempty"`
	FromModel       bool     `json:"from_model"`
	ChosenIndex     int      `json:"chosen_index"`
	Suggestions     []string `json:"suggestions,omitempty"`
	Score           float64  `json:"score"`
	Type            string   `json:"type"`
}

// Client is a thin JSON-over-HTTP client for the recommendation service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenFromEnv constructs a client from PLANCORE_RECOMMEND_URL. Returns nil
// when the variable is unset; recommendation features are then disabled.
func OpenFromEnv() *Client {
	url := os.Getenv("PLANCORE_RECOMMEND_URL")
	if url == "" {
		return nil
	}
	return NewClient(url)
}

// Recommend requests action suggestions for one observation. Transport and
// server failures surface as ExternalServiceError.
func (c *Client) Recommend(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if err := c.post(ctx, "/recommend", req, &resp); err != nil {
		return Response{}, domain.ExternalServiceError{Service: ServiceName, Err: err}
	}
	return resp, nil
}

// Feedback posts a feedback record. The caller decides whether the error is
// worth surfacing; the dispatcher logs and swallows it.
func (c *Client) Feedback(ctx context.Context, payload FeedbackPayload) error {
	if err := c.post(ctx, "/feedback", payload, nil); err != nil {
		return domain.ExternalServiceError{Service: ServiceName, Err: err}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
