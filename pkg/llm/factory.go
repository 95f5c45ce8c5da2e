package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

// NewClientFromConfig builds the process-wide client for the configured provider.
// A missing API key is not fatal here: the key is only needed once a request
// reaches the provider, which then fails with an auth error.
func NewClientFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	if cfg.APIKey() == "" {
		logger.Warn("LLM API key is not set; advice requests will fail",
			zap.String("provider", cfg.Provider),
			zap.Error(apperrors.ErrMissingAPIKey))
	}

	clientCfg := &Config{
		Endpoint:       cfg.BaseURL,
		Model:          cfg.Model,
		APIKey:         cfg.APIKey(),
		MaxTokens:      cfg.MaxTokens,
		RequestTimeout: cfg.RequestTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
	}

	switch cfg.Provider {
	case "openai":
		return NewClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Provider, apperrors.ErrUnsupportedType)
	}
}
