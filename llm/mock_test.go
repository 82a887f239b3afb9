package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGenerator_Responses(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGenerator("test")
	assert.Equal(t, "test", mock.Name())

	c, err := mock.Generate(ctx, Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", c.Content)
	assert.Equal(t, 10, c.TokensUsed)

	mock.SetResponses("one", "two")
	for _, want := range []string{"one", "two", "one"} {
		c, err := mock.Generate(ctx, Request{Prompt: "x"})
		require.NoError(t, err)
		assert.Equal(t, want, c.Content)
	}

	mock.SetResponsePattern(map[string]string{"weather": "sunny"})
	c, err = mock.Generate(ctx, Request{Prompt: "What is the WEATHER?"})
	require.NoError(t, err)
	assert.Equal(t, "sunny", c.Content)

	assert.Equal(t, 5, mock.CallCount())
	assert.Equal(t, "hello", mock.Prompts()[0])
}

func TestMockGenerator_Errors(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGenerator("test")

	mock.FailTimes(2)
	_, err := mock.Generate(ctx, Request{Prompt: "a"})
	assert.Error(t, err)
	_, err = mock.Generate(ctx, Request{Prompt: "a"})
	assert.Error(t, err)
	_, err = mock.Generate(ctx, Request{Prompt: "a"})
	assert.NoError(t, err)

	mock.SetError(true, "custom failure")
	_, err = mock.Generate(ctx, Request{Prompt: "a"})
	assert.EqualError(t, err, "custom failure")

	mock.Reset()
	assert.Zero(t, mock.CallCount())
	_, err = mock.Generate(ctx, Request{Prompt: "a"})
	assert.NoError(t, err)
}

func TestMockGenerator_DelayHonoursContext(t *testing.T) {
	mock := NewMockGenerator("test")
	mock.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := mock.Generate(ctx, Request{Prompt: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockGenerator_ConcurrentUse(t *testing.T) {
	mock := NewMockGenerator("test")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mock.Generate(context.Background(), Request{Prompt: "p"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, mock.CallCount())
}
