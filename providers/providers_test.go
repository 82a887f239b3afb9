package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"gemini", "mock", "openai"}, Names())
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	gen, err := New(ctx, "MOCK")
	require.NoError(t, err)
	assert.Equal(t, "mock", gen.Name())

	_, err = New(ctx, "claude")
	assert.ErrorContains(t, err, `unknown provider "claude"`)
}

func TestNew_ProviderConfigError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(context.Background(), "openai")
	assert.ErrorContains(t, err, "provider openai")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	gen, err := New(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	gen, err := FromEnv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mock", gen.Name())

	t.Setenv("LLM_PROVIDER", "nope")
	_, err = FromEnv(context.Background())
	assert.Error(t, err)
}
