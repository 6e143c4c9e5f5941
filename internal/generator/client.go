package generator

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

	"shopsmart/internal/config"
	"shopsmart/internal/logger"
	"shopsmart/internal/shopping"

	"go.uber.org/zap"
)

const (
	generatePath = "/generate"
	healthPath   = "/health"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 8 << 20
)

// Generator produces a shopping list or menu for the given constraints.
type Generator interface {
	Generate(ctx context.Context, in shopping.UserInput) (*shopping.GenerationResult, error)
	CheckAvailability(ctx context.Context) bool
}

// Client talks to the remote generation service over HTTP.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.OrNop(l) }
}

// WithTimeout overrides the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for the service at cfg.APIURL.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		timeout:    cfg.APITimeout,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultAPITimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generateRequest is the wire shape of a generation request. Days is only
// sent in menu mode.
type generateRequest struct {
	Supermarkets []string      `json:"supermarkets"`
	Budget       float64       `json:"budget"`
	Preferences  string        `json:"preferences"`
	FamilySize   int           `json:"family_size"`
	Language     string        `json:"language"`
	Mode         shopping.Mode `json:"mode"`
	Days         *int          `json:"days,omitempty"`
}

func newGenerateRequest(in shopping.UserInput) generateRequest {
	req := generateRequest{
		Supermarkets: in.Supermarkets,
		Budget:       in.Budget,
		Preferences:  in.Preferences,
		FamilySize:   in.FamilySize,
		Language:     in.Language,
		Mode:         in.Mode,
	}
	if req.Supermarkets == nil {
		req.Supermarkets = []string{}
	}
	if req.Mode == "" {
		req.Mode = shopping.ModeShopping
	}
	if req.Mode == shopping.ModeMenu {
		days := in.Days
		req.Days = &days
	}
	return req
}

// Generate sends one request to the service. It never retries. The request is
// abandoned once the client timeout elapses or ctx is canceled, whichever
// comes first. Failures are returned as *Error.
func (c *Client) Generate(ctx context.Context, in shopping.UserInput) (*shopping.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jsonBody, err := json.Marshal(newGenerateRequest(in))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.Debug("sending generation request",
		zap.String("mode", string(in.Mode)),
		zap.Strings("supermarkets", in.Supermarkets),
		zap.Float64("budget", in.Budget),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(start, classify(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(start, classify(ctx, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(start, serverError(resp.StatusCode, extractDetail(body)))
	}

	var result shopping.GenerationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, c.fail(start, &Error{Kind: ErrMalformedResponse, Status: resp.StatusCode, Err: err})
	}

	c.logger.Info("generation succeeded",
		zap.Int("items", len(result.Items)),
		zap.Int("menu_days", len(result.Menu)),
		zap.Duration("latency", time.Since(start)),
	)
	return &result, nil
}

// CheckAvailability probes the health endpoint. It reports false on any
// failure and never returns an error.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("health check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (c *Client) fail(start time.Time, e *Error) *Error {
	c.logger.Warn("generation failed",
		zap.String("kind", e.Kind.Error()),
		zap.Int("status", e.Status),
		zap.String("detail", e.Detail),
		zap.NamedError("cause", e.Err),
		zap.Duration("latency", time.Since(start)),
	)
	return e
}

// classify maps a transport error to a failure kind using the request context.
func classify(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: ErrTimeout, Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: ErrCanceled, Err: err}
	default:
		return &Error{Kind: ErrTransport, Err: err}
	}
}

// extractDetail reads the "detail" string of an error body. It returns ""
// when the body is empty, not JSON, or carries no string detail.
func extractDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}
