package structured

import (
	"context"
	"testing"
	"time"

	"github.com/alt-coder/docflow/core"
	"github.com/alt-coder/docflow/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docState struct {
	Text    string
	Invoice invoice
}

func newTestPool(t *testing.T, gen llm.Generator) *llm.Pool {
	t.Helper()
	cfg := llm.DefaultPoolConfig()
	cfg.RateLimit = 0
	cfg.RetryUnit = time.Millisecond
	pool, err := llm.NewPool(gen, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newInvoiceNode(pool *llm.Pool, opts ...core.NodeOption) *core.Node[docState, llm.Request, invoice] {
	return NewExtractNode("extract-invoice", &Extractor[docState, invoice]{
		Generator: pool,
		Input: func(_ context.Context, s *docState) (string, error) {
			return s.Text, nil
		},
		Output: func(_ context.Context, s *docState, v invoice) (core.Action, error) {
			s.Invoice = v
			return core.ActionSuccess, nil
		},
		Request: llm.Request{System: "You extract invoices."},
	}, opts...)
}

func TestExtractNode(t *testing.T) {
	gen := llm.NewMockGenerator("mock")
	gen.SetResponses("```yaml\nnumber: INV-1\ntotal: 99.5\n```")
	pool := newTestPool(t, gen)

	node := newInvoiceNode(pool)
	state := &docState{Text: "Invoice INV-1, total due $99.50"}

	action, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, core.ActionSuccess, action)
	assert.Equal(t, "INV-1", state.Invoice.Number)
	assert.InDelta(t, 99.5, state.Invoice.Total, 1e-9)

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Invoice INV-1, total due $99.50")
	assert.Contains(t, prompts[0], "```yaml")
}

func TestExtractNode_RetriesMalformedAnswer(t *testing.T) {
	gen := llm.NewMockGenerator("mock")
	gen.SetResponses("I am not sure.", "```json\n{\"number\": \"INV-2\", \"total\": 1}\n```")
	pool := newTestPool(t, gen)

	node := newInvoiceNode(pool, core.WithMaxRetries(2))
	state := &docState{Text: "Invoice INV-2"}

	_, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "INV-2", state.Invoice.Number)
	assert.Equal(t, 2, gen.CallCount(), "retry must bypass the cached malformed answer")
}

func TestExtractNode_FailsAfterRetries(t *testing.T) {
	gen := llm.NewMockGenerator("mock")
	gen.SetResponses("no idea")
	pool := newTestPool(t, gen)

	node := newInvoiceNode(pool, core.WithMaxRetries(2))
	_, err := node.Run(context.Background(), &docState{Text: "?"})

	var nodeErr *core.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, 2, nodeErr.Attempts)
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestExtractor_MissingPieces(t *testing.T) {
	_, err := (&Extractor[docState, invoice]{}).Prep(context.Background(), &docState{})
	assert.ErrorContains(t, err, "no input function")

	_, err = (&Extractor[docState, invoice]{}).Exec(context.Background(), llm.Request{Prompt: "x"})
	assert.ErrorContains(t, err, "no generator")

	action, err := (&Extractor[docState, invoice]{}).Post(context.Background(), &docState{}, llm.Request{}, invoice{})
	require.NoError(t, err)
	assert.Equal(t, core.ActionDefault, action)
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt[invoice]("raw text", "currency is EUR")
	assert.Contains(t, got, "Input:\n```\nraw text\n```")
	assert.Contains(t, got, "Additional context 1:\ncurrency is EUR")
	assert.Contains(t, got, "- items[].quantity: int")
}
