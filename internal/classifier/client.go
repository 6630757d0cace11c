// Package classifier wraps the external classification service behind a
// one-shot request/response call. The model itself is an opaque collaborator;
// the only contract here is the /predict endpoint's JSON shapes.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"disaster-alerts/internal/model"
)

// UpstreamError is a non-success response from the classification service.
// The HTTP layer echoes Status and Detail back to the submitting client.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("classifier predict failed: status %d", e.Status)
}

// Client calls the classification service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the service rooted at baseURL. A nil httpClient
// falls back to http.DefaultClient, whose behavior bounds call duration.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Predict submits the report input and returns the classification result.
// Non-2xx responses surface as *UpstreamError carrying the upstream status
// and response body.
func (c *Client) Predict(ctx context.Context, input model.ReportInput) (*model.MLResult, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &UpstreamError{Status: res.StatusCode, Detail: string(detail)}
	}

	var result model.MLResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	return &result, nil
}
