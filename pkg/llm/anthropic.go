package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// defaultAnthropicMaxTokens is used when Config.MaxTokens is unset; the Messages API requires a value.
const defaultAnthropicMaxTokens = 4096

// AnthropicClient provides access to the Anthropic Messages API.
type AnthropicClient struct {
	client         *anthropic.Client
	endpoint       string
	model          string
	maxTokens      int
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewAnthropicClient creates a Messages API client with the same timeout handling as NewClient.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout is required")
	}

	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(newHTTPClient(cfg))}
	endpoint := "https://api.anthropic.com/v1"
	if cfg.Endpoint != "" {
		endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
		opts = append(opts, anthropic.WithBaseURL(endpoint))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:         anthropic.NewClient(cfg.APIKey, opts...),
		endpoint:       endpoint,
		model:          cfg.Model,
		maxTokens:      maxTokens,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger.Named("llm"),
	}, nil
}

// GenerateResponse sends the system message in the request's system field
// and the prompt as a single user turn, and returns the concatenated text
// blocks of the reply.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	conversationID, _ := GetConversationID(ctx)
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.String("conversation_id", conversationID.String()),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	debugPrefix := debugWriteRequest(conversationID.String(), c.model, systemMessage, prompt)
	start := time.Now()

	temp := float32(temperature)
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
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

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, NewErrorWithContext(ErrorTypeResponse, "no text content in response", false, nil, c.model, c.endpoint, 0)
	}

	content := text.String()
	debugWriteResponse(debugPrefix, c.model, content, elapsed.Milliseconds())

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", elapsed))

	return &GenerateResponseResult{
		Content:          content,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetProvider returns the provider display name.
func (c *AnthropicClient) GetProvider() string {
	return "Anthropic"
}
