// Package client provides a typed HTTP client SDK for the pxeboot-hpilo API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

const (
	defaultTimeout = 5 * time.Minute

	pxeBootPath = "/boot/v1/pxe-boot"
	healthPath  = "/health"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the root URL of the API (for example: http://localhost:27780).
	BaseURL string
	// Token is the bearer token used for API requests.
	Token string
	// Timeout is the per-request timeout. The operation blocks through the
	// device cooldown, so the default is generous.
	Timeout time.Duration
	// HTTPClient optionally overrides the underlying client.
	HTTPClient *http.Client
}

// Client is the typed HTTP SDK for the PXE boot API.
type Client struct {
	httpc   *http.Client
	baseURL string
	token   string
}

// OperationError is returned when the API reports a failed operation. It
// carries the message and the partially-populated result fields.
type OperationError struct {
	StatusCode int
	Message    string
	Result     types.Result
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("pxe boot failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// New creates a new PXE boot API client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpc := cfg.HTTPClient
	if httpc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpc = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpc:   httpc,
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
	}, nil
}

// wireBootRequest is the on-the-wire payload. The password travels as its
// real value here; types.Secret redacts itself in every serialized form, so
// the request body is assembled from Reveal explicitly.
type wireBootRequest struct {
	Host       string `json:"host"`
	Login      string `json:"login,omitempty"`
	Password   string `json:"password,omitempty"`
	SSLVersion string `json:"ssl_version,omitempty"`
	Device     string `json:"device,omitempty"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// PXEBoot runs one boot-mode operation and returns the final observed result.
// API-reported failures come back as *OperationError with the partial result.
func (c *Client) PXEBoot(ctx context.Context, req types.BootRequest) (types.Result, error) {
	payload := wireBootRequest{
		Host:       req.Host,
		Login:      req.Login,
		Password:   req.Password.Reveal(),
		SSLVersion: req.SSLVersion,
		Device:     req.Device,
		DryRun:     req.DryRun,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewResult(), fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pxeBootPath, bytes.NewReader(body))
	if err != nil {
		return types.NewResult(), fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return types.NewResult(), fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.NewResult(), fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var result types.Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return types.NewResult(), fmt.Errorf("decoding result: %w", err)
		}
		return result, nil
	}

	var failure types.BootFailure
	if err := json.Unmarshal(raw, &failure); err != nil || strings.TrimSpace(failure.Message) == "" {
		return types.NewResult(), &OperationError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
			Result:     types.NewResult(),
		}
	}

	partial := types.Result{
		Changed:           failure.Changed,
		PowerStatus:       failure.PowerStatus,
		OneTimeBootStatus: failure.OneTimeBootStatus,
	}
	return partial, &OperationError{
		StatusCode: resp.StatusCode,
		Message:    failure.Message,
		Result:     partial,
	}
}

// Health checks service liveness.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status %d", resp.StatusCode)
	}
	return nil
}
