package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alt-coder/docflow/llm"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeServer struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]any
	reply  string
	tokens int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body map[string]any
	if err := sonic.Unmarshal(raw, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	out, _ := sonic.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": f.reply}},
			},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"totalTokenCount": f.tokens},
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func newTestClient(t *testing.T, fake *fakeServer) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), &Config{
		APIKey:      "test-key",
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		Backend:     genai.BackendGeminiAPI,
		BaseURL:     srv.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), &Config{Model: "gemini-2.0-flash"})
	assert.ErrorContains(t, err, "GOOGLE_API_KEY")
}

func TestClient_Generate(t *testing.T) {
	fake := &fakeServer{reply: "Bonjour", tokens: 21}
	client := newTestClient(t, fake)
	assert.Equal(t, "gemini", client.Name())

	completion, err := client.Generate(context.Background(), llm.Request{
		Prompt:    "Say hello in French",
		System:    "Be brief.",
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", completion.Content)
	assert.Equal(t, 21, completion.TokensUsed)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.paths, 1)
	assert.Contains(t, fake.paths[0], "gemini-2.0-flash")
	assert.Contains(t, fake.bodies[0], "systemInstruction")
}

func TestClient_GenerateModelOverride(t *testing.T) {
	fake := &fakeServer{reply: "ok", tokens: 1}
	client := newTestClient(t, fake)

	_, err := client.Generate(context.Background(), llm.Request{Prompt: "hi", Model: "gemini-1.5-pro"})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.paths[0], "gemini-1.5-pro")
}

func TestClient_BehindPoolKeepsGeminiModel(t *testing.T) {
	fake := &fakeServer{reply: "ok", tokens: 3}
	client := newTestClient(t, fake)

	cfg := llm.DefaultPoolConfig()
	cfg.RateLimit = 0
	pool, err := llm.NewPool(client, cfg)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Generate(context.Background(), llm.Request{Prompt: "hello"})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.paths, 1)
	assert.Contains(t, fake.paths[0], "gemini-2.0-flash")
	assert.NotContains(t, fake.paths[0], "gpt")
}

func TestClient_GenerateTemperature(t *testing.T) {
	fake := &fakeServer{reply: "ok", tokens: 1}
	client := newTestClient(t, fake)

	_, err := client.Generate(context.Background(), llm.Request{Prompt: "hi", Temperature: llm.Float32(0)})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), llm.Request{Prompt: "hi"})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.bodies, 2)
	temperature := func(body map[string]any) any {
		gen, ok := body["generationConfig"].(map[string]any)
		require.True(t, ok)
		return gen["temperature"]
	}
	assert.InDelta(t, 0, temperature(fake.bodies[0]), 1e-6)
	assert.InDelta(t, 0.7, temperature(fake.bodies[1]), 1e-6)
}

func TestClient_GenerateErrors(t *testing.T) {
	client := newTestClient(t, &fakeServer{})

	_, err := client.Generate(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, llm.ErrEmptyPrompt)

	_, err = client.Generate(context.Background(), llm.Request{
		Prompt: "hi",
		Extra:  map[string]any{"stop": 3},
	})
	assert.ErrorContains(t, err, `extra "stop"`)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{APIKey: "k", Model: "gemini-2.0-flash", Temperature: 0.5}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Model = ""
	assert.ErrorContains(t, bad.Validate(), "model name")

	bad = base
	bad.Temperature = 2.5
	assert.ErrorContains(t, bad.Validate(), "temperature")

	bad = base
	bad.MaxTokens = -1
	assert.ErrorContains(t, bad.Validate(), "maxTokens")
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "env-key")
	t.Setenv("CHAT_MODEL", "gemini-1.5-flash")
	t.Setenv("CHAT_TEMPERATURE", "0.2")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.Model)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-6)
	assert.Equal(t, genai.BackendGeminiAPI, cfg.Backend)

	t.Setenv("GOOGLE_API_KEY", "")
	_, err = NewConfigFromEnv()
	assert.Error(t, err)
}
