package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const extractPromptFormat = `Extract the department name (like IT, HR, Marketing, Finance, Sales) from this query: %q.
Just return one department name without extra text. If no department is mentioned, respond with "General".
Important: If the department is IT or Information Technology, always return "IT" (uppercase).`

// Classifier extracts department names from free text via a bounded chat
// completion. It implements classify.LabelProvider.
type Classifier struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// ClassifierConfig holds the classification provider settings.
type ClassifierConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewClassifier creates an OpenAI-compatible department extractor.
func NewClassifier(cfg *ClassifierConfig) *Classifier {
	return &Classifier{
		client:    newClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// ExtractDepartment asks the model to name the department a text refers
// to. The raw answer is returned un-normalized; the caller owns the
// synonym table.
func (c *Classifier) ExtractDepartment(ctx context.Context, text string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(extractPromptFormat, text),
			},
		},
	})
	if err != nil {
		return "", parseAPIError("classification", err)
	}
	if len(resp.Choices) == 0 {
		return "", parseAPIError("classification", fmt.Errorf("empty response"))
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("department extracted", zap.String("raw", raw))
	return raw, nil
}
