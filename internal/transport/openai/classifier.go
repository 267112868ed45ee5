package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/domain"
)

const classifierSystemPrompt = `Extract information required to classify the query.
Respond with a JSON object with these fields:
- "type": if the query mentions attributes like country, province, variety, or description, set type="semantic". If it only specifies filters like price, points, or a tasters' name, set type="keyword". If both are present, use "semantic".
- "taster_name": the name of the taster (null if not mentioned).
- "min_points": the minimum points that the wine should have (null if not mentioned).
- "max_points": the maximum points that the wine should have (null if not mentioned).
- "min_price": the minimum price of the wine (null if not mentioned).
- "max_price": the maximum price of the wine (null if not mentioned).`

// Classifier maps free-text queries to a structured filter/intent record
// using an OpenAI chat completion with a JSON response format.
type Classifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClassifier creates a query classifier.
func NewClassifier(client *openai.Client, model string, logger *zap.Logger) *Classifier {
	return &Classifier{client: client, model: model, logger: logger}
}

// Classify extracts the query type and filters from a user query.
// Malformed model output fails with domain.ErrClassifierError.
func (c *Classifier) Classify(ctx context.Context, query string) (domain.QueryClassification, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.QueryClassification{}, fmt.Errorf("classify query: %w: %v", domain.ErrClassifierError, err)
	}
	if len(resp.Choices) == 0 {
		return domain.QueryClassification{}, fmt.Errorf("empty classifier response: %w", domain.ErrClassifierError)
	}

	classification, err := decodeClassification(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("Malformed classifier output",
			zap.String("content", resp.Choices[0].Message.Content), zap.Error(err))
		return domain.QueryClassification{}, err
	}

	c.logger.Debug("query classified",
		zap.String("type", string(classification.Type)),
		zap.Bool("has_filters", classification.HasFilters()),
	)
	return classification, nil
}

// decodeClassification parses the model JSON, tolerating a markdown code fence.
func decodeClassification(content string) (domain.QueryClassification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var classification domain.QueryClassification
	if err := json.Unmarshal([]byte(content), &classification); err != nil {
		return domain.QueryClassification{}, fmt.Errorf("decode classification: %w: %v", domain.ErrClassifierError, err)
	}
	if !classification.Type.IsValid() {
		return domain.QueryClassification{}, fmt.Errorf(
			"unknown classification type %q: %w", classification.Type, domain.ErrClassifierError)
	}
	return classification, nil
}
