// Package inference implements the inference collaborator boundary: send a
// fully-substituted prompt to an Ollama-compatible service and return the
// generated text. A lightweight reachability check precedes every generation
// call so connectivity problems surface with a clear error instead of a slow
// request timeout.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pagewatch/pagewatch/internal/logger"
)

const (
	// generatePath is the completion endpoint relative to the service address.
	generatePath = "/api/generate"
	// defaultTimeout bounds one generation call.
	defaultTimeout = 120 * time.Second
	// reachabilityTimeout bounds the pre-flight connectivity probe.
	reachabilityTimeout = 5 * time.Second
)

var (
	// ErrUnreachable means the inference service did not answer the
	// reachability probe.
	ErrUnreachable = errors.New("inference service unreachable")
	// ErrEmptyResponse means the service answered with no generated text.
	ErrEmptyResponse = errors.New("inference service returned an empty response")
)

// Client is the inference collaborator interface.
type Client interface {
	// Generate sends the prompt to the service and returns the generated text.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request carries one generation call.
type Request struct {
	Address string // service base URL, e.g. http://localhost:11434
	Model   string // model name
	Prompt  string // fully-substituted prompt
}

// Config controls the HTTP client.
type Config struct {
	TimeoutSeconds int
}

// HTTPClient talks to an Ollama-compatible HTTP API.
type HTTPClient struct {
	client *http.Client
	probe  *http.Client
	logger *logger.Logger
}

// generateRequest is the wire format of the completion endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the wire format of the completion response.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewHTTPClient creates an inference client.
func NewHTTPClient(cfg Config, log *logger.Logger) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		probe:  &http.Client{Timeout: reachabilityTimeout},
		logger: log,
	}
}

// ValidAddress reports whether addr is a well-formed http(s) base URL.
func ValidAddress(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Generate probes the service, then requests a completion. Connectivity
// failures return ErrUnreachable; an error field or empty completion in the
// response returns ErrEmptyResponse.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.checkReachable(ctx, req.Address); err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(req.Address, "/") + generatePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.ErrorCtx(ctx, "inference request failed", err,
			logger.Field{Key: "address", Value: req.Address})
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.ErrorCtx(ctx, "inference service returned error status", nil,
			logger.Field{Key: "status_code", Value: httpResp.StatusCode},
			logger.Field{Key: "response_body", Value: string(respBody)})
		return "", fmt.Errorf("inference service returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.Error != "" {
		return "", fmt.Errorf("inference service error: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", ErrEmptyResponse
	}

	return resp.Response, nil
}

// checkReachable performs a cheap GET against the service base URL.
func (c *HTTPClient) checkReachable(ctx context.Context, address string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	resp, err := c.probe.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	return nil
}
