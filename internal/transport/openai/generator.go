package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/metrics"
)

const generatorSystemPrompt = "You are an AI assistant specialized in answering questions " +
	"based on provided document context. Be comprehensive and detailed in your responses."

const answerPromptFormat = `You are an expert assistant designed to answer questions based *only* on the provided context.
Synthesize a comprehensive answer using the details found in the context below.

Context:
-------
%s
-------

Question: %s

Instructions:
1. Base your answer *solely* on the information within the provided context.
2. If the context contains technical details, numbers, links, or codes, include them accurately.
3. If the context doesn't contain the answer, state that the information is not available in the provided documents.
4. Combine relevant information from different parts of the context to form a complete answer.
5. Be detailed and thorough in your response.

Answer:`

// Generator produces grounded answers via chat completion. It implements
// query.Generator.
type Generator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// GeneratorConfig holds the answer generation provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	return &Generator{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		logger:      cfg.Logger,
	}
}

// Generate answers a question from the supplied context documents.
func (g *Generator) Generate(ctx context.Context, contextText, question string) (string, error) {
	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		TopP:        g.topP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(answerPromptFormat, contextText, question)},
		},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("generation", err)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", parseAPIError("generation", fmt.Errorf("empty response"))
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	g.logger.Debug("answer generated",
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
