package completion

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/config"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request is the input for one lesson. Only Prompt is required.
type Request struct {
	Prompt      string
	Category    string
	SubCategory string
	UserContext string
}

type Result struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client wraps the chat completion API. It makes exactly one call per
// Generate and never retries.
type Client struct {
	api         chatCompleter
	model       string
	timeout     time.Duration
	temperature float32
	maxTokens   int
	metrics     *Metrics
	logger      *zap.SugaredLogger
}

// NewClient builds a client from cfg. Without an API key the client is
// created but every Generate fails with ErrNotConfigured.
func NewClient(cfg config.CompletionConfig, metrics *Metrics, logger *zap.SugaredLogger) *Client {
	c := &Client{
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		metrics:     metrics,
		logger:      logger,
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warnw("completion client not configured, lesson generation disabled")
		return c
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c.api = openai.NewClientWithConfig(oc)
	return c
}

// Configured reports whether calls can be attempted.
func (c *Client) Configured() bool { return c.api != nil }

// Generate asks the completion service for a lesson. Failures of an
// attempted call are returned as *Error.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	elapsed := time.Since(start)
	latency := elapsed.Milliseconds()

	if err != nil {
		reason := classify(err)
		c.metrics.observe(string(reason), elapsed)
		c.logger.Errorw("completion failed", "model", c.model, "reason", reason, "latency_ms", latency, "err", err)
		return nil, &Error{Reason: reason, LatencyMs: latency, Err: err}
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		c.metrics.observe(string(ReasonEmpty), elapsed)
		c.logger.Errorw("completion returned empty text", "model", c.model, "latency_ms", latency)
		return nil, &Error{Reason: ReasonEmpty, LatencyMs: latency, Err: ErrEmptyCompletion}
	}

	c.metrics.observe(outcomeSuccess, elapsed)
	c.logger.Infow("completion succeeded", "model", c.model, "latency_ms", latency,
		"total_tokens", resp.Usage.TotalTokens)
	return &Result{Text: text, Model: c.model, LatencyMs: latency}, nil
}

type Info struct {
	ModelName     string `json:"model_name"`
	Provider      string `json:"provider"`
	Available     bool   `json:"available"`
	APIConfigured bool   `json:"api_configured"`
}

func (c *Client) Info() Info {
	return Info{ModelName: c.model, Provider: "OpenAI", Available: c.api != nil, APIConfigured: c.api != nil}
}
