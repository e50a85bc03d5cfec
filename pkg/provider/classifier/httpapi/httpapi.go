// Package httpapi implements [classifier.Model] against an HTTP prediction
// endpoint. The request is a JSON object with a "features" array of 17
// floats; the response carries a "probability" field in [0, 1].
//
// This mirrors the common model-serving shape (a Flask/FastAPI sidecar
// exposing POST /predict) so the classifier can run out of process.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kavachapp/kavach/pkg/provider/classifier"
)

// defaultTimeout bounds a single prediction round trip. Predictions run on
// a ~0.5 s cadence; a slow endpoint must cause skipped cycles, not backlog.
const defaultTimeout = 2 * time.Second

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-prediction timeout. Default: 2 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// Client implements [classifier.Model] against a prediction endpoint.
// Safe for concurrent use.
type Client struct {
	endpoint string
	hc       *http.Client
	timeout  time.Duration
}

// Compile-time interface check.
var _ classifier.Model = (*Client)(nil)

// New creates a Client for the given prediction URL
// (e.g. "http://127.0.0.1:5000/predict").
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("httpapi: endpoint must not be empty")
	}
	c := &Client{
		endpoint: endpoint,
		hc:       http.DefaultClient,
		timeout:  defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// predictRequest is the JSON request body.
type predictRequest struct {
	Features []float64 `json:"features"`
}

// predictResponse is the JSON response body.
type predictResponse struct {
	Probability float64 `json:"probability"`
}

// Predict posts the feature vector and returns the reported probability.
func (c *Client) Predict(ctx context.Context, features []float64) (float64, error) {
	if len(features) != classifier.FeatureDim {
		return 0, fmt.Errorf("httpapi: got %d features, want %d", len(features), classifier.FeatureDim)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("httpapi: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("httpapi: predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("httpapi: predict: unexpected status %s", resp.Status)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("httpapi: decode response: %w", err)
	}
	if pr.Probability < 0 || pr.Probability > 1 {
		return 0, fmt.Errorf("httpapi: probability %g out of range", pr.Probability)
	}
	return pr.Probability, nil
}
