package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client calls the hosted document intelligence API.
type Client struct {
	http *resty.Client
}

// NewClient builds a Client for the given base URL. The API key is sent as a
// bearer token on every request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json")
	return &Client{http: http}
}

type apiError struct {
	Error string `json:"error"`
}

// Analyze uploads the document and blocks until the service returns the full
// analysis. OCR on a long record can take minutes; the client timeout set at
// construction is the only bound.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("empty document body")
	}

	var result Result
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", req.FileName, bytes.NewReader(req.Data)).
		SetFormData(map[string]string{
			"content_type":       req.ContentType,
			"document_type_hint": req.TypeHint,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/analyze")
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("analyzer returned %d: %s", resp.StatusCode(), apiErr.Error)
		}
		return nil, fmt.Errorf("analyzer returned %d", resp.StatusCode())
	}

	return &result, nil
}
