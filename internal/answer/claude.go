package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// answerMaxTokens caps Claude's response length for tariff answers.
	answerMaxTokens = 1024

	// promptTemplate grounds the model in the retrieved context only.
	promptTemplate = `Answer the question based only on the following context:
%s

---

Answer the question based on the above context: %s

Give detailed responses.`
)

// Generator produces an answer from a context block and a question.
type Generator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
}

// Claude implements Generator using the Anthropic Messages API.
type Claude struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// NewClaude creates a Claude-backed answer generator.
func NewClaude(apiKey, model string, logger *slog.Logger) *Claude {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Claude{
		client: &c,
		model:  model,
		logger: logger,
	}
}

// Generate renders the grounding prompt and returns the model's answer.
func (c *Claude) Generate(ctx context.Context, contextText, question string) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, contextText, question)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: answerMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	var text string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			text = strings.TrimSpace(resp.Content[i].Text)
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("model returned no text content")
	}

	c.logger.Debug("generated answer", "model", c.model, "chars", len(text))
	return text, nil
}
