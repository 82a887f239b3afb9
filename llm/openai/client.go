package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/alt-coder/docflow/llm"
	"github.com/sashabaranov/go-openai"
)

// Client implements llm.Generator over the OpenAI chat completions API.
type Client struct {
	client *openai.Client
	config *Config
}

// NewClient creates a new OpenAI client with the provided configuration
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Create OpenAI client configuration
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}
	if config.HTTPTimeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.HTTPTimeout}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewClientFromEnv creates a new OpenAI client using environment variables
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return NewClient(config)
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// Generate implements llm.Generator. Request fields left at their zero value
// fall back to the client configuration.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	request, err := c.buildRequest(req)
	if err != nil {
		return llm.Completion{}, err
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return llm.Completion{}, errors.New("no choices returned from OpenAI API")
	}

	return llm.Completion{
		Content:    response.Choices[0].Message.Content,
		TokensUsed: response.Usage.TotalTokens,
	}, nil
}

func (c *Client) buildRequest(req llm.Request) (openai.ChatCompletionRequest, error) {
	if req.Prompt == "" {
		return openai.ChatCompletionRequest{}, llm.ErrEmptyPrompt
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	request := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if request.Model == "" {
		request.Model = c.config.Model
	}

	// Add optional parameters
	request.Temperature = c.config.Temperature
	if req.Temperature != nil {
		request.Temperature = *req.Temperature
	}
	// The API drops a zero temperature as unset.
	if request.Temperature == 0 {
		request.Temperature = math.SmallestNonzeroFloat32
	}
	request.MaxTokens = req.MaxTokens
	if request.MaxTokens == 0 {
		request.MaxTokens = c.config.MaxTokens
	}
	if c.config.TopP != 1.0 {
		request.TopP = c.config.TopP
	}
	request.FrequencyPenalty = c.config.FrequencyPenalty
	request.PresencePenalty = c.config.PresencePenalty

	if err := applyExtra(&request, req.Extra); err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	return request, nil
}

// applyExtra maps the provider parameters the client understands. Unknown
// keys are ignored.
func applyExtra(request *openai.ChatCompletionRequest, extra map[string]any) error {
	for key, value := range extra {
		switch key {
		case "top_p":
			f, err := toFloat32(key, value)
			if err != nil {
				return err
			}
			request.TopP = f
		case "frequency_penalty":
			f, err := toFloat32(key, value)
			if err != nil {
				return err
			}
			request.FrequencyPenalty = f
		case "presence_penalty":
			f, err := toFloat32(key, value)
			if err != nil {
				return err
			}
			request.PresencePenalty = f
		case "stop":
			switch v := value.(type) {
			case string:
				request.Stop = []string{v}
			case []string:
				request.Stop = v
			default:
				return fmt.Errorf("extra %q: want string or []string, got %T", key, value)
			}
		case "seed":
			n, ok := value.(int)
			if !ok {
				return fmt.Errorf("extra %q: want int, got %T", key, value)
			}
			request.Seed = &n
		case "user":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("extra %q: want string, got %T", key, value)
			}
			request.User = s
		}
	}
	return nil
}

func toFloat32(key string, value any) (float32, error) {
	switch v := value.(type) {
	case float32:
		return v, nil
	case float64:
		return float32(v), nil
	case int:
		return float32(v), nil
	default:
		return 0, fmt.Errorf("extra %q: want number, got %T", key, value)
	}
}
