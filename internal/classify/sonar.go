package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SonarClient calls an HTTP service that wraps a hatesonar-style model.
//
// Request:  POST {"text": "..."}
// Response: {"top_class": "...", "classes": [{"class_name": "...", "confidence": 0.1}, ...]}
type SonarClient struct {
	URL    string
	client *http.Client
}

// NewSonarClient creates a client for the service at url.
func NewSonarClient(url string, timeout time.Duration) *SonarClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SonarClient{URL: url, client: &http.Client{Timeout: timeout}}
}

type sonarResponse struct {
	Text     string       `json:"text"`
	TopClass string       `json:"top_class"`
	Classes  []ClassScore `json:"classes"`
}

// Classify sends text to the service and returns its class confidences.
func (c *SonarClient) Classify(ctx context.Context, text string) ([]ClassScore, error) {
	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sonar API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sonar API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result sonarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Classes) == 0 {
		return nil, fmt.Errorf("sonar response has no classes")
	}
	return result.Classes, nil
}
