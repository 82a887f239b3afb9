// Package providers selects an llm.Generator by name so programs can switch
// between hosted models and the offline mock without code changes.
package providers

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alt-coder/docflow/llm"
	"github.com/alt-coder/docflow/llm/gemini"
	"github.com/alt-coder/docflow/llm/openai"
)

// Factory builds a generator from the environment.
type Factory func(ctx context.Context) (llm.Generator, error)

var factories = map[string]Factory{
	"openai": func(context.Context) (llm.Generator, error) {
		return openai.NewClientFromEnv()
	},
	"gemini": func(ctx context.Context) (llm.Generator, error) {
		return gemini.NewClientFromEnv(ctx)
	},
	"mock": func(context.Context) (llm.Generator, error) {
		return llm.NewMockGenerator("mock"), nil
	},
}

// Names lists the registered provider names.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the generator registered under name.
func New(ctx context.Context, name string) (llm.Generator, error) {
	factory, ok := factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, want one of %s", name, strings.Join(Names(), ", "))
	}
	gen, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	return gen, nil
}

// FromEnv picks the provider named by LLM_PROVIDER, defaulting to mock.
func FromEnv(ctx context.Context) (llm.Generator, error) {
	name := os.Getenv("LLM_PROVIDER")
	if name == "" {
		name = "mock"
	}
	return New(ctx, name)
}
