package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"storefront-importer/adapters"
	"storefront-importer/internal/types"
)

const (
	actionSingle = "import_single"
	actionBulk   = "import_bulk"
)

// Client talks to the hosted import backend. It performs exactly one network
// call per import and never retries; every outcome is classified into an
// ImportResult.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	registry *adapters.Registry
	logger   types.Logger

	newRequestID func() string
}

// importRequest is the backend import payload
type importRequest struct {
	Action        string                   `json:"action"`
	Product       *types.CanonicalProduct  `json:"product,omitempty"`
	Products      []types.CanonicalProduct `json:"products,omitempty"`
	Options       types.ImportOptions      `json:"options"`
	DestinationID string                   `json:"destination_id,omitempty"`
}

// importResponse is the raw backend reply, validated once in classify
type importResponse struct {
	Success   *bool  `json:"success"`
	JobID     string `json:"job_id"`
	CreatedID string `json:"created_id"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// NewClient creates a backend client. registry backs DetectPlatform.
func NewClient(config *types.BackendConfig, registry *adapters.Registry, logger types.Logger) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		apiKey:       config.APIKey,
		http:         &http.Client{Timeout: config.Timeout},
		registry:     registry,
		logger:       logger,
		newRequestID: uuid.NewString,
	}

	if config.Breaker.Enabled {
		c.breaker = newBreaker(config.Breaker, logger)
	}

	return c
}

func newBreaker(config types.BreakerConfig, logger types.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "import-backend",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// DetectPlatform returns the platform of rawURL, for callers that only have a URL
func (c *Client) DetectPlatform(rawURL string) types.PlatformID {
	if c.registry == nil {
		return types.PlatformUnknown
	}
	return c.registry.Detect(rawURL)
}

// ImportProduct submits one product
func (c *Client) ImportProduct(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions) types.ImportResult {
	return c.submit(ctx, importRequest{Action: actionSingle, Product: &product, Options: options})
}

// ImportToDestination submits one product into a specific destination store
func (c *Client) ImportToDestination(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions, destinationID string) types.ImportResult {
	return c.submit(ctx, importRequest{Action: actionSingle, Product: &product, Options: options, DestinationID: destinationID})
}

// ImportBulk submits several products in one call
func (c *Client) ImportBulk(ctx context.Context, products []types.CanonicalProduct, options types.ImportOptions) types.ImportResult {
	if len(products) == 0 {
		return types.Failure(types.ErrInvalidURL, "no products to import")
	}
	return c.submit(ctx, importRequest{Action: actionBulk, Products: products, Options: options})
}

func (c *Client) submit(ctx context.Context, req importRequest) types.ImportResult {
	payload, err := json.Marshal(req)
	if err != nil {
		return types.Failure(types.ErrUnexpected, fmt.Sprintf("failed to encode import request: %v", err))
	}

	startTime := time.Now()
	status, body, err := c.call(ctx, http.MethodPost, "/import", payload)
	if err != nil {
		c.logger.Warnf("Import %s failed after %v: %v", req.Action, time.Since(startTime), err)
		return types.Failure(types.ErrNetwork, err.Error())
	}

	result := classify(status, body)
	c.logger.Debugf("Import %s answered %d in %v (ok=%t code=%s)", req.Action, status, time.Since(startTime), result.OK, result.Code)
	return result
}

// classify turns a backend reply into the closed ImportResult type
func classify(status int, body []byte) types.ImportResult {
	var resp importResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Success == nil {
		if status >= http.StatusInternalServerError {
			return types.Failure(types.ErrInternal, fmt.Sprintf("backend returned %d", status))
		}
		return types.Failure(types.ErrUnexpected, fmt.Sprintf("unreadable backend response (status %d)", status))
	}

	if *resp.Success {
		return types.ImportResult{OK: true, JobID: resp.JobID, CreatedID: resp.CreatedID}
	}

	message := resp.Error
	if message == "" {
		message = http.StatusText(status)
	}

	code := types.ParseErrorCode(resp.ErrorCode)
	if resp.ErrorCode == "" && status >= http.StatusInternalServerError {
		code = types.ErrInternal
	}
	return types.Failure(code, message)
}

// call performs one request through the circuit breaker. A non-nil error
// means the backend was not reached or refused service; HTTP error statuses
// are returned with their body.
func (c *Client) call(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var (
		status int
		body   []byte
	)

	do := func() (interface{}, error) {
		var err error
		status, body, err = c.do(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
		if status >= http.StatusInternalServerError {
			return nil, fmt.Errorf("backend returned %d", status)
		}
		return nil, nil
	}

	if c.breaker == nil {
		_, err := do()
		if err != nil && status != 0 {
			return status, body, nil
		}
		return status, body, err
	}

	_, err := c.breaker.Execute(do)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return 0, nil, fmt.Errorf("backend unavailable: %w", err)
	case err != nil && status != 0:
		// server error: counted by the breaker, classified from the body
		return status, body, nil
	default:
		return status, body, err
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s failed: %w", requestID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}
