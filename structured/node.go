package structured

import (
	"context"
	"fmt"
	"strings"

	"github.com/alt-coder/docflow/core"
	"github.com/alt-coder/docflow/llm"
)

// Generator is the slice of *llm.Pool the extractor needs.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Extractor is a node that asks a model to pull a T out of text taken from
// the shared state. Exec fails on responses that do not parse or validate,
// so the node retry policy re-asks the model.
type Extractor[S any, T any] struct {
	Generator Generator

	// Input returns the text to analyse. Required. ctx carries the run
	// params, so batch flows can select the input per item.
	Input func(ctx context.Context, state *S) (string, error)

	// Output stores the value and picks the next action. Nil leaves the
	// state untouched and routes on the default action.
	Output func(ctx context.Context, state *S, value T) (core.Action, error)

	// Validator runs on every decoded value. Optional.
	Validator Validator[T]

	// Request is the template for each call; Prompt is overwritten.
	Request llm.Request

	// Context is appended to the prompt after the input.
	Context []string
}

// NewExtractNode wraps an Extractor in a core.Node.
func NewExtractNode[S any, T any](name string, e *Extractor[S, T], opts ...core.NodeOption) *core.Node[S, llm.Request, T] {
	return core.NewNode[S, llm.Request, T](name, e, opts...)
}

// Prep builds the request from the state.
func (e *Extractor[S, T]) Prep(ctx context.Context, state *S) (llm.Request, error) {
	if e.Input == nil {
		return llm.Request{}, fmt.Errorf("extractor has no input function")
	}
	input, err := e.Input(ctx, state)
	if err != nil {
		return llm.Request{}, err
	}

	req := e.Request
	req.Prompt = BuildPrompt[T](input, e.Context...)
	return req, nil
}

// Exec calls the model and decodes the response.
func (e *Extractor[S, T]) Exec(ctx context.Context, req llm.Request) (T, error) {
	var zero T
	if e.Generator == nil {
		return zero, fmt.Errorf("extractor has no generator")
	}

	// A retry after a malformed answer must not be served from the pool cache.
	if attempt := core.AttemptFromContext(ctx); attempt > 0 {
		extra := make(map[string]any, len(req.Extra)+1)
		for k, v := range req.Extra {
			extra[k] = v
		}
		extra["attempt"] = attempt
		req.Extra = extra
	}

	resp, err := e.Generator.Generate(ctx, req)
	if err != nil {
		return zero, err
	}
	return ParseAndValidate(resp.Content, e.Validator)
}

// Post hands the value to Output.
func (e *Extractor[S, T]) Post(ctx context.Context, state *S, _ llm.Request, value T) (core.Action, error) {
	if e.Output == nil {
		return core.ActionDefault, nil
	}
	return e.Output(ctx, state, value)
}

// BuildPrompt frames input and optional context around the instructions for T.
func BuildPrompt[T any](input string, notes ...string) string {
	var b strings.Builder
	b.WriteString("Analyze the following data and extract the requested information.\n\n")
	b.WriteString("Input:\n```\n")
	b.WriteString(input)
	b.WriteString("\n```\n\n")
	for i, c := range notes {
		fmt.Fprintf(&b, "Additional context %d:\n%s\n\n", i+1, c)
	}
	b.WriteString(Instructions[T]())
	return b.String()
}
