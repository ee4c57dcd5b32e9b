package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"signalscore/internal/application/dto"
)

const (
	// userAgent is the User-Agent header value sent with all API requests.
	userAgent = "signalscore-client/1.0"

	// contentTypeJSON is the Content-Type header value for JSON requests.
	contentTypeJSON = "application/json"

	// maxErrorBodyBytes bounds how much of an error response is read.
	maxErrorBodyBytes = 64 << 10

	// API endpoint paths.
	pathHealth = "/health"
	pathScores = "/api/v1/scores"
)

// Client provides methods for interacting with the SignalScore API.
// It satisfies outbound.ScoringService so it can drive an acquisition.Machine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with the given configuration.
// Returns an error if the configuration is nil or invalid.
func NewClient(config *Config) (*Client, error) {
	return NewClientWithHTTPClient(config, nil)
}

// NewClientWithHTTPClient creates a new API client with the given configuration and HTTP client.
// If httpClient is nil, a default HTTP client with the configured timeout will be used.
func NewClientWithHTTPClient(config *Config, httpClient *http.Client) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		baseURL:    config.APIURL,
		httpClient: httpClient,
	}, nil
}

// doRequest performs an HTTP request with the given parameters and decodes the response.
// If body is non-nil, it will be JSON-encoded and sent with Content-Type: application/json.
// If result is non-nil, the response body will be JSON-decoded into it.
// Non-2xx responses are returned as *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Health performs a health check against the API server.
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var result dto.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, pathHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateJob submits a URL for scoring. A known company is answered with its completed score;
// otherwise the result reports the processing job.
func (c *Client) CreateJob(ctx context.Context, targetURL string) (*dto.JobResult, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodPost, pathScores, dto.ScoreRequest{URL: targetURL}, &raw); err != nil {
		return nil, err
	}
	return dto.ParseJobResult(raw)
}

// GetJobStatus retrieves the current state of the scoring job for companyName.
// An unknown company yields an *APIError for which IsNotFound reports true.
func (c *Client) GetJobStatus(ctx context.Context, companyName string) (*dto.JobResult, error) {
	if companyName == "" {
		return nil, errors.New("company name cannot be empty")
	}

	var raw json.RawMessage
	path := pathScores + "/" + url.PathEscape(companyName)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return dto.ParseJobResult(raw)
}

// ListScores retrieves every stored company score.
func (c *Client) ListScores(ctx context.Context) (*dto.ScoreListResponse, error) {
	var result dto.ScoreListResponse
	if err := c.doRequest(ctx, http.MethodGet, pathScores, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
