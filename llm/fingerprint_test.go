package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	base := Request{
		Prompt:      "summarize",
		System:      "be brief",
		Model:       "gpt-4o-mini",
		MaxTokens:   100,
		Temperature: Float32(0.7),
		Extra:       map[string]any{"top_p": 0.9, "stop": []string{"\n"}},
	}

	tests := []struct {
		name   string
		mutate func(r Request) Request
		same   bool
	}{
		{"identical", func(r Request) Request { return r }, true},
		{"extra key order", func(r Request) Request {
			r.Extra = map[string]any{"stop": []string{"\n"}, "top_p": 0.9}
			return r
		}, true},
		{"stream ignored", func(r Request) Request {
			r.Extra = map[string]any{"top_p": 0.9, "stop": []string{"\n"}, "stream": true}
			return r
		}, true},
		{"user ignored", func(r Request) Request {
			r.Extra = map[string]any{"top_p": 0.9, "stop": []string{"\n"}, "user": "u-42"}
			return r
		}, true},
		{"retries ignored", func(r Request) Request { r.MaxRetries = 9; return r }, true},
		{"prompt", func(r Request) Request { r.Prompt = "translate"; return r }, false},
		{"system", func(r Request) Request { r.System = ""; return r }, false},
		{"model", func(r Request) Request { r.Model = "gpt-4o"; return r }, false},
		{"max tokens", func(r Request) Request { r.MaxTokens = 101; return r }, false},
		{"temperature", func(r Request) Request { r.Temperature = Float32(0.2); return r }, false},
		{"temperature unset", func(r Request) Request { r.Temperature = nil; return r }, false},
		{"extra value", func(r Request) Request {
			r.Extra = map[string]any{"top_p": 0.5, "stop": []string{"\n"}}
			return r
		}, false},
	}

	want, err := Fingerprint(base)
	require.NoError(t, err)
	assert.Len(t, want, 16)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fingerprint(tt.mutate(base))
			require.NoError(t, err)
			if tt.same {
				assert.Equal(t, want, got)
			} else {
				assert.NotEqual(t, want, got)
			}
		})
	}
}

func TestFingerprint_OnlyVolatileExtraEqualsNoExtra(t *testing.T) {
	a, err := Fingerprint(Request{Prompt: "p"})
	require.NoError(t, err)
	b, err := Fingerprint(Request{Prompt: "p", Extra: map[string]any{"stream": true}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprint_ZeroTemperatureDiffersFromUnset(t *testing.T) {
	unset, err := Fingerprint(Request{Prompt: "p"})
	require.NoError(t, err)
	greedy, err := Fingerprint(Request{Prompt: "p", Temperature: Float32(0)})
	require.NoError(t, err)
	assert.NotEqual(t, unset, greedy)
}

func TestFingerprint_UnencodableExtra(t *testing.T) {
	_, err := Fingerprint(Request{Prompt: "p", Extra: map[string]any{"fn": func() {}}})
	assert.Error(t, err)
}
