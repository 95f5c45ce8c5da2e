package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
)

func testLLMConfig(provider string) *config.LLMConfig {
	return &config.LLMConfig{
		Provider:        provider,
		Model:           "test-model",
		Temperature:     0.7,
		OpenAIAPIKey:    "sk-openai",
		AnthropicAPIKey: "sk-ant",
		RequestTimeout:  300 * time.Second,
		ConnectTimeout:  10 * time.Second,
		ReadTimeout:     290 * time.Second,
	}
}

func TestNewClientFromConfig_OpenAI(t *testing.T) {
	client, err := NewClientFromConfig(testLLMConfig("openai"), zap.NewNop())

	require.NoError(t, err)
	_, ok := client.(*Client)
	assert.True(t, ok, "expected *Client for openai")
	assert.Equal(t, "OpenAI", client.GetProvider())
	assert.Equal(t, "test-model", client.GetModel())
}

func TestNewClientFromConfig_Anthropic(t *testing.T) {
	client, err := NewClientFromConfig(testLLMConfig("anthropic"), zap.NewNop())

	require.NoError(t, err)
	_, ok := client.(*AnthropicClient)
	assert.True(t, ok, "expected *AnthropicClient for anthropic")
	assert.Equal(t, "Anthropic", client.GetProvider())
}

func TestNewClientFromConfig_MissingKeyIsNotFatal(t *testing.T) {
	cfg := testLLMConfig("openai")
	cfg.OpenAIAPIKey = ""

	client, err := NewClientFromConfig(cfg, zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClientFromConfig_UnknownProvider(t *testing.T) {
	_, err := NewClientFromConfig(testLLMConfig("gemini"), zap.NewNop())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
}
