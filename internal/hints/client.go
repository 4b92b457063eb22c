package hints

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/wordbox/backend/internal/config"
	"go.uber.org/zap"
)

// LLMClient is the interface both example generators satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewClient picks the provider named in cfg.
func NewClient(cfg config.HintsConfig, log *zap.Logger) LLMClient {
	if cfg.Provider == "anthropic" {
		log.Info("hints using Anthropic API", zap.String("model", cfg.Model))
		return NewAPIClient(cfg.APIKey, cfg.Model, log)
	}
	log.Info("hints using mock examples")
	return NewMockClient()
}

// ── APIClient ───────────────────────────────────────────

type APIClient struct {
	client  *anthropic.Client
	model   string
	log     *zap.Logger
	backoff time.Duration
}

func NewAPIClient(apiKey, model string, log *zap.Logger) *APIClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &APIClient{client: &client, model: model, log: log, backoff: 2 * time.Second}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   512,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// callWithRetry makes one retry after a backoff.
func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying Anthropic API call",
				zap.Duration("backoff", c.backoff),
				zap.Int("attempt", attempt+1),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("Anthropic API attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient ──────────────────────────────────────────

// MockClient returns a fixed example built from the prompt's word, for
// local development and tests.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(_ context.Context, _ string, userPrompt string) (*LLMResponse, error) {
	word := "word"
	if i := strings.Index(userPrompt, `"`); i >= 0 {
		if j := strings.Index(userPrompt[i+1:], `"`); j >= 0 {
			word = userPrompt[i+1 : i+1+j]
		}
	}
	return &LLMResponse{
		Content: fmt.Sprintf("```json\n{\"sentence\":\"[Mock] I wrote the word %s in my notebook.\",\"translation\":\"[Mock] %s\"}\n```",
			word, word),
		PromptTokens: 80,
		OutputTokens: 40,
	}, nil
}
