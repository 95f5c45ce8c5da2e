package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client provides access to OpenAI-compatible chat completion endpoints.
type Client struct {
	client         *openai.Client
	endpoint       string
	model          string
	maxTokens      int
	requestTimeout time.Duration
	logger         *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint  string // Base URL, e.g., "https://api.openai.com/v1"; empty uses the provider default
	Model     string // Model name, e.g., "gpt-4o"
	APIKey    string
	MaxTokens int

	// RequestTimeout bounds the whole call; ConnectTimeout the TCP/TLS dial;
	// ReadTimeout the wait for response headers after the request is written.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	clientConfig.HTTPClient = newHTTPClient(cfg)

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		endpoint:       clientConfig.BaseURL,
		model:          cfg.Model,
		maxTokens:      cfg.MaxTokens,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger.Named("llm"),
	}, nil
}

// newHTTPClient applies the three independent timeouts and request-id propagation.
func newHTTPClient(cfg *Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ConnectTimeout > 0 {
		dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
		transport.DialContext = dialer.DialContext
		transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	}
	if cfg.ReadTimeout > 0 {
		transport.ResponseHeaderTimeout = cfg.ReadTimeout
	}

	return &http.Client{
		Transport: &contextAwareTransport{base: transport},
		Timeout:   cfg.RequestTimeout,
	}
}

// GenerateResponse generates a chat completion response with usage stats.
func (c *Client) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	conversationID, _ := GetConversationID(ctx)
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.String("conversation_id", conversationID.String()),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	debugPrefix := debugWriteRequest(conversationID.String(), c.model, systemMessage, prompt)
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	})
	elapsed := time.Since(start)
	if err != nil {
		llmErr := ClassifyError(err)
		llmErr.Model = c.model
		llmErr.Endpoint = c.endpoint
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", elapsed),
			zap.String("error_type", string(llmErr.Type)),
			zap.Error(err))
		debugWriteError(debugPrefix, c.model, llmErr.Error(), elapsed.Milliseconds())
		return nil, llmErr
	}

	if len(resp.Choices) == 0 {
		return nil, NewErrorWithContext(ErrorTypeResponse, "no choices in response", false, nil, c.model, c.endpoint, 0)
	}

	content := resp.Choices[0].Message.Content
	debugWriteResponse(debugPrefix, c.model, content, elapsed.Milliseconds())

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", elapsed))

	return &GenerateResponseResult{
		Content:          content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.model
}

// GetProvider returns the provider display name.
func (c *Client) GetProvider() string {
	return "OpenAI"
}

// GetEndpoint returns the configured endpoint.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}
