package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierStandard))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	config.ProjectID = "firm-prod"
	newConfig := config.WithModel(TierLite, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", newConfig.GetModel(TierStandard))
	assert.Equal(t, "firm-prod", newConfig.ProjectID)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	p, err = ParseProvider("vertex")
	require.NoError(t, err)
	assert.Equal(t, ProviderVertex, p)

	_, err = ParseProvider("openai")
	assert.Error(t, err)
}
