package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

const (
	defaultAPIKeyHeader     = "x-goog-api-key"
	defaultResponseTextPath = "candidates.0.content.parts.0.text"
	defaultTimeout          = 20 * time.Second
	maxResponseBytes        = 1 << 20
)

// Config configures the essay evaluation endpoint.
type Config struct {
	Endpoint         string
	APIKey           string
	APIKeyHeader     string
	Model            string
	Timeout          time.Duration
	ResponseTextPath string
}

// Client scores essays through a generateContent-style HTTP endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

var _ grading.EssayEvaluator = (*Client)(nil)

// New constructs a client. An empty endpoint yields a client whose every call fails.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = defaultAPIKeyHeader
	}
	if cfg.ResponseTextPath == "" {
		cfg.ResponseTextPath = defaultResponseTextPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Endpoint != ""
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

// Evaluate sends one essay for scoring. No retries are attempted.
func (c *Client) Evaluate(ctx context.Context, req grading.EssayRequest) (grading.EssayResult, error) {
	if !c.Enabled() {
		return grading.EssayResult{}, failure(nil, "essay evaluator not configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: BuildPrompt(req)}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0,
		},
	})
	if err != nil {
		return grading.EssayResult{}, failure(err, "encode evaluation request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return grading.EssayResult{}, failure(err, "build evaluation request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return grading.EssayResult{}, failure(err, "call evaluation endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return grading.EssayResult{}, failure(err, "read evaluation response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("essay evaluation rejected", zap.Int("status", resp.StatusCode), zap.String("model", c.cfg.Model))
		return grading.EssayResult{}, failure(nil, fmt.Sprintf("evaluation endpoint returned status %d", resp.StatusCode))
	}

	text := gjson.GetBytes(raw, c.cfg.ResponseTextPath)
	if !text.Exists() {
		return grading.EssayResult{}, failure(nil, "evaluation response has no text at "+c.cfg.ResponseTextPath)
	}

	return ParseEvaluation(text.String(), req.MaxPoints)
}

func (c *Client) endpoint() string {
	if c.cfg.Model == "" || !strings.Contains(c.cfg.Endpoint, "{model}") {
		return c.cfg.Endpoint
	}
	return strings.ReplaceAll(c.cfg.Endpoint, "{model}", c.cfg.Model)
}

func failure(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrEvaluationFailed.Code, appErrors.ErrEvaluationFailed.Status, message)
}
