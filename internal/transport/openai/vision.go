package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/domain"
)

const visionPrompt = "Describe this wine image briefly. Focus on: wine type, color, " +
	"label details, region/origin if visible. Keep it concise."

const visionMaxTokens = 150

// Describer produces short textual descriptions of wine images via a
// vision-capable chat model.
type Describer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewDescriber creates a vision describer.
func NewDescriber(client *openai.Client, model string, logger *zap.Logger) *Describer {
	return &Describer{client: client, model: model, logger: logger}
}

// Describe returns a short description of the image at the given URL.
func (d *Describer) Describe(ctx context.Context, imageURL string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: visionMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("describe image: %w: %v", domain.ErrVisionProviderError, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty vision response: %w", domain.ErrVisionProviderError)
	}

	description := strings.TrimSpace(resp.Choices[0].Message.Content)
	d.logger.Debug("image described", zap.Int("chars", len(description)))
	return description, nil
}
