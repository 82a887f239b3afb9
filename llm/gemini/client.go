package gemini

import (
	"context"
	"fmt"

	"github.com/alt-coder/docflow/llm"
	"google.golang.org/genai"
)

// Client implements llm.Generator for Google's Gemini models.
type Client struct {
	genaiClient *genai.Client
	config      *Config
}

// NewClient creates a new Gemini client with the provided configuration
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: config.Backend,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	genaiClient, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{
		genaiClient: genaiClient,
		config:      config,
	}, nil
}

// NewClientFromEnv creates a new Gemini client using environment variables
func NewClientFromEnv(ctx context.Context) (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return NewClient(ctx, config)
}

// Name returns the provider name
func (c *Client) Name() string {
	return "gemini"
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	if req.Prompt == "" {
		return llm.Completion{}, llm.ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	genConfig, err := c.generateConfig(req)
	if err != nil {
		return llm.Completion{}, err
	}

	resp, err := c.genaiClient.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("failed to generate content: %w", err)
	}

	completion := llm.Completion{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		completion.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}

func (c *Client) generateConfig(req llm.Request) (*genai.GenerateContentConfig, error) {
	temperature := c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	for key, value := range req.Extra {
		switch key {
		case "top_p":
			f, ok := value.(float64)
			if !ok {
				return nil, fmt.Errorf("extra %q: want float64, got %T", key, value)
			}
			cfg.TopP = genai.Ptr(float32(f))
		case "stop":
			switch v := value.(type) {
			case string:
				cfg.StopSequences = []string{v}
			case []string:
				cfg.StopSequences = v
			default:
				return nil, fmt.Errorf("extra %q: want string or []string, got %T", key, value)
			}
		case "seed":
			n, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("extra %q: want int, got %T", key, value)
			}
			cfg.Seed = genai.Ptr(int32(n))
		}
	}
	return cfg, nil
}
