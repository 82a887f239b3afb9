package llm

import (
	"context"
	"time"
)

const (
	// RoleSystem is used for system-level messages
	RoleSystem = "system"
	// RoleUser is used for user messages
	RoleUser = "user"
	// RoleAssistant is used for assistant messages
	RoleAssistant = "assistant"
)

// Request is one text generation call.
type Request struct {
	Prompt      string  // User prompt, required
	System      string  // Optional system instruction
	Model       string  // Empty uses the pool default
	MaxTokens   int     // 0 uses the pool default
	Temperature *float32 // Sampling temperature, nil leaves the provider default

	// MaxRetries overrides the pool attempt count when > 0.
	MaxRetries int

	// Extra holds provider-specific parameters. They take part in the cache
	// fingerprint except "stream" and "user".
	Extra map[string]any
}

// Completion is what a Generator returns for one successful call.
type Completion struct {
	Content    string
	TokensUsed int
}

// Generator is the external text generation capability the pool drives.
type Generator interface {
	// Generate produces text for req. Implementations must honour ctx.
	Generate(ctx context.Context, req Request) (Completion, error)

	// Name returns the name/identifier of the provider
	Name() string
}

// Response is a completed pool call.
type Response struct {
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	TokensUsed   int           `json:"tokens_used"`
	ResponseTime time.Duration `json:"response_time"`
	FromCache    bool          `json:"from_cache"`
	CostEstimate float64       `json:"cost_estimate"`
}

// Float32 returns a pointer to v, for Request.Temperature.
func Float32(v float32) *float32 {
	return &v
}

// BatchRequests builds one request per prompt, each a copy of base.
func BatchRequests(base Request, prompts ...string) []Request {
	reqs := make([]Request, len(prompts))
	for i, p := range prompts {
		reqs[i] = base
		reqs[i].Prompt = p
	}
	return reqs
}
