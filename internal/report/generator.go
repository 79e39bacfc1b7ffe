package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"invoicedesk/internal/logger"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("no response choices from the language model")

// TextGenerator turns a prompt into free text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator implements TextGenerator with the chat completions API.
type OpenAIGenerator struct {
	openaiClient *openai.Client
	model        string
	log          zerolog.Logger
}

// NewOpenAIGenerator creates a generator. An empty model uses GPT-4o mini.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		openaiClient: openai.NewClient(apiKey),
		model:        model,
		log:          logger.WithComponent("report-openai"),
	}
}

// Generate implements TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	const op = "Generate"

	g.log.Debug().
		Str("model", g.model).
		Int("prompt_length", len(prompt)).
		Msg("Sending report prompt")

	resp, err := g.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a finance assistant for a children's therapy organisation. Write short, factual paragraphs in plain English. Do not use markdown.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("%s: completion request failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyCompletion)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
