// Package detector is a client for the remote deepfake-detection service.
//
// A clip becomes a tracked remote job in three steps: request a presigned
// upload slot, PUT the bytes to it, then fetch the job status by id until it
// is terminal. Polling is left to the caller.
package detector

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

	"go.uber.org/zap"

	"github.com/your-org/voicecheck/pkg/metrics"
	"github.com/your-org/voicecheck/pkg/retry"
)

const (
	DefaultBaseURL = "https://api.prd.realitydefender.xyz"

	presignPath = "/api/files/aws-presigned"
	statusPath  = "/api/media/users/"

	defaultCallTimeout = 20 * time.Second
	maxBodyBytes       = 1 << 20
	maxErrorBody       = 512
)

// Config configures a Client. Zero durations fall back to 20s.
type Config struct {
	BaseURL string
	APIKey  string

	PresignPolicy  retry.Policy
	PresignTimeout time.Duration
	UploadTimeout  time.Duration
	FetchTimeout   time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Client talks to the detection service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics

	presign        *retry.Executor
	presignTimeout time.Duration
	uploadTimeout  time.Duration
	fetchTimeout   time.Duration
}

// UploadSlot is a single-use write target returned by the presign call.
type UploadSlot struct {
	SignedURL string
	MediaID   string
	RequestID string
	Raw       json.RawMessage
}

// JobID prefers the media id and falls back to the request id.
func (s *UploadSlot) JobID() string {
	if s.MediaID != "" {
		return s.MediaID
	}
	return s.RequestID
}

// New constructs a Client.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:        base,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		httpClient:     hc,
		logger:         logger,
		metrics:        cfg.Metrics,
		presignTimeout: orDefault(cfg.PresignTimeout),
		uploadTimeout:  orDefault(cfg.UploadTimeout),
		fetchTimeout:   orDefault(cfg.FetchTimeout),
	}
	c.presign = c.newExecutor(cfg.PresignPolicy)
	return c
}

// WithPresignPolicy returns a copy of c that requests upload slots under p.
func (c *Client) WithPresignPolicy(p retry.Policy) *Client {
	cp := *c
	cp.presign = c.newExecutor(p)
	return &cp
}

// SetSleep replaces the backoff sleep. Intended for tests.
func (c *Client) SetSleep(fn func(context.Context, time.Duration) error) {
	c.presign.Sleep = fn
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool { return c.apiKey != "" }

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// CredentialInfo describes the configured key without revealing it.
type CredentialInfo struct {
	Present bool   `json:"hasKey"`
	Length  int    `json:"len"`
	Head    string `json:"head"`
	Tail    string `json:"tail"`
}

// Credential reports the key length and its first and last few characters.
// Keys too short to mask are not echoed at all.
func (c *Client) Credential() CredentialInfo {
	const keep = 6
	info := CredentialInfo{Present: c.apiKey != "", Length: len(c.apiKey)}
	if len(c.apiKey) > 2*keep {
		info.Head = c.apiKey[:keep]
		info.Tail = c.apiKey[len(c.apiKey)-keep:]
	}
	return info
}

func (c *Client) newExecutor(p retry.Policy) *retry.Executor {
	ex := retry.New(p)
	ex.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("presign attempt failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		c.metrics.RecordRetry(context.Background(), "presign")
	}
	return ex
}

// RequestUploadSlot asks the service for a presigned upload URL for name.
// Transient failures are retried under the presign policy; a missing
// credential fails immediately.
func (c *Client) RequestUploadSlot(ctx context.Context, name string) (*UploadSlot, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if name == "" {
		return nil, errors.New("detector: file name is required")
	}

	payload, err := json.Marshal(map[string]string{"fileName": name})
	if err != nil {
		return nil, fmt.Errorf("marshal presign request: %w", err)
	}

	return retry.Do(ctx, c.presign, func(ctx context.Context) (*UploadSlot, error) {
		var body []byte
		err := guard(ctx, "presign", c.presignTimeout, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+presignPath, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("create presign request: %w", err)
			}
			c.authorize(req)
			body, err = c.do(req, "presign")
			return err
		})
		if err != nil {
			return nil, err
		}
		return parseUploadSlot(body)
	})
}

func parseUploadSlot(body []byte) (*UploadSlot, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, fmt.Errorf("%w: presign: %s", ErrMalformedResponse, truncate(body))
	}
	signed, ok := SignedURLRules.Text(doc)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoUploadURL, truncate(body))
	}
	slot := &UploadSlot{SignedURL: signed, Raw: json.RawMessage(body)}
	slot.MediaID, _ = MediaIDRules.Text(doc)
	slot.RequestID, _ = RequestIDRules.Text(doc)
	return slot, nil
}

// UploadBytes PUTs data to a presigned target. The target is single use,
// so no retry is attempted.
func (c *Client) UploadBytes(ctx context.Context, target string, data []byte, mimeType string) error {
	if target == "" {
		return errors.New("detector: upload target is required")
	}
	if len(data) == 0 {
		return errors.New("detector: upload data is required")
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	return guard(ctx, "upload", c.uploadTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create upload request: %w", err)
		}
		req.Header.Set("Content-Type", mimeType)
		req.ContentLength = int64(len(data))
		_, err = c.do(req, "upload")
		return err
	})
}

// FetchStatus GETs the current state of job id. Failures are returned as-is;
// polling callers decide whether to try again.
func (c *Client) FetchStatus(ctx context.Context, id string) (*JobStatus, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if id == "" {
		return nil, errors.New("detector: job id is required")
	}

	var body []byte
	err := guard(ctx, "status", c.fetchTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath+url.PathEscape(id), nil)
		if err != nil {
			return fmt.Errorf("create status request: %w", err)
		}
		c.authorize(req)
		body, err = c.do(req, "status")
		return err
	})
	if err != nil {
		return nil, err
	}
	return ParseJobStatus(body)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
	return body, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultCallTimeout
	}
	return d
}
