package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockGenerator implements Generator for testing purposes.
// It provides configurable response patterns and error simulation capabilities
// and is safe for concurrent use.
type MockGenerator struct {
	mu            sync.Mutex
	name          string
	responses     []string
	responseIndex int
	patterns      map[string]string // Pattern-based responses
	simulateError bool
	errorMessage  string
	failTimes     int // Remaining calls that fail before succeeding
	delay         time.Duration
	tokensPerCall int
	callCount     int // Track number of calls for testing
	prompts       []string
}

// NewMockGenerator creates a new mock generator that echoes prompts.
func NewMockGenerator(name string) *MockGenerator {
	return &MockGenerator{
		name:          name,
		patterns:      make(map[string]string),
		tokensPerCall: 10,
	}
}

// Generate simulates a call and returns configured responses or errors.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (Completion, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, req.Prompt)
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failTimes > 0 {
		m.failTimes--
		return Completion{}, fmt.Errorf("transient simulated error from %s", m.name)
	}

	// Simulate immediate error if configured
	if m.simulateError {
		if m.errorMessage != "" {
			return Completion{}, fmt.Errorf("%s", m.errorMessage)
		}
		return Completion{}, fmt.Errorf("simulated API error from %s", m.name)
	}

	// Check for pattern-based responses first
	userInput := strings.ToLower(req.Prompt)
	for pattern, response := range m.patterns {
		if strings.Contains(userInput, strings.ToLower(pattern)) {
			return Completion{Content: response, TokensUsed: m.tokensPerCall}, nil
		}
	}

	if len(m.responses) == 0 {
		return Completion{
			Content:    fmt.Sprintf("Mock response to: %s", req.Prompt),
			TokensUsed: m.tokensPerCall,
		}, nil
	}

	// Cycle through responses for multiple calls
	response := m.responses[m.responseIndex]
	m.responseIndex = (m.responseIndex + 1) % len(m.responses)
	return Completion{Content: response, TokensUsed: m.tokensPerCall}, nil
}

// Name returns the mock provider name
func (m *MockGenerator) Name() string {
	return m.name
}

// SetResponses configures the responses that the mock will cycle through
func (m *MockGenerator) SetResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.responseIndex = 0
}

// SetResponsePattern configures responses based on input patterns.
// For example: {"hello": "Hi there!", "bye": "Goodbye!"}
func (m *MockGenerator) SetResponsePattern(patterns map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = patterns
}

// SetError configures the mock to fail every call
func (m *MockGenerator) SetError(shouldError bool, errorMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateError = shouldError
	m.errorMessage = errorMessage
}

// FailTimes makes the next n calls fail before the mock recovers
func (m *MockGenerator) FailTimes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTimes = n
}

// SetDelay makes every call take d, or until its context is done
func (m *MockGenerator) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetTokensPerCall sets the token usage reported by every successful call
func (m *MockGenerator) SetTokensPerCall(tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensPerCall = tokens
}

// CallCount returns the number of times Generate has been called
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns the prompts received so far, in call order
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset resets the mock generator to its initial state
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.responseIndex = 0
	m.patterns = make(map[string]string)
	m.simulateError = false
	m.errorMessage = ""
	m.failTimes = 0
	m.delay = 0
	m.tokensPerCall = 10
	m.callCount = 0
	m.prompts = nil
}
