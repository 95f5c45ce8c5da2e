package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/llm"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
	"github.com/ekaya-inc/biometric-advisor/pkg/prompts"
)

// AdviceGenerator turns fetched records into the model's raw reply text.
type AdviceGenerator interface {
	// Generate returns the first completion choice unmodified.
	// participantID is echoed into the requested schema when non-empty.
	Generate(ctx context.Context, records []models.BiometricRecord, participantID string) (string, error)
}

type adviceGenerator struct {
	client      llm.LLMClient
	temperature float64
	logger      *zap.Logger
}

// NewAdviceGenerator creates a generator calling client at the given temperature.
func NewAdviceGenerator(client llm.LLMClient, temperature float64, logger *zap.Logger) AdviceGenerator {
	return &adviceGenerator{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("generator"),
	}
}

func (g *adviceGenerator) Generate(ctx context.Context, records []models.BiometricRecord, participantID string) (string, error) {
	prompt := prompts.BuildAdvicePrompt(records, participantID)
	provider := g.client.GetProvider()

	start := time.Now()
	result, err := g.client.GenerateResponse(ctx, prompt.User, prompt.System, g.temperature)
	if err != nil {
		if llm.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.logger.Warn("Advice generation timed out",
				zap.String("provider", provider),
				zap.Duration("elapsed", time.Since(start)))
			return "", apperrors.NewGenerationTimeoutError(provider, err)
		}
		g.logger.Error("Advice generation failed",
			zap.String("provider", provider),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.String("error", logging.SanitizeError(err)))
		return "", apperrors.NewGenerationError(provider, errors.New(logging.SanitizeError(err)))
	}

	g.logger.Info("Advice generated",
		zap.String("provider", provider),
		zap.String("model", g.client.GetModel()),
		zap.Int("records", len(records)),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result.Content, nil
}

var _ AdviceGenerator = (*adviceGenerator)(nil)
