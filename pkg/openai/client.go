package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model answers with no usable text
var ErrEmptyResponse = errors.New("no response from OpenAI API")

// Client represents an OpenAI API client
type Client struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

// DishIdea is a dish the model suggests for a pantry
type DishIdea struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	IngredientsMissing []string `json:"ingredients_missing"`
}

// New creates a new OpenAI client
func New(apiKey, apiBase, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		config.BaseURL = apiBase
	}

	client := openai.NewClientWithConfig(config)
	return &Client{
		client: client,
		model:  model,
		logger: logger.New("openai"),
	}
}

// GenerateDailyQuestion asks the model for one question a couple can answer
// together. recent holds previous questions that should not be repeated.
// The caller bounds the call through ctx.
func (c *Client) GenerateDailyQuestion(ctx context.Context, recent []string) (string, error) {
	var avoid string
	if len(recent) > 0 {
		avoid = "\nDo not repeat or paraphrase any of these earlier questions:\n- " + strings.Join(recent, "\n- ") + "\n"
	}

	prompt := fmt.Sprintf(`
You write the "question of the day" for a couple who share a small home app.
Ask one warm, light-hearted question both partners can answer in a sentence or two.
It should help them learn something new about each other. Avoid anything heavy or intimate.
%s
Return the question in the following JSON format:
{"question": "..."}
Only return the JSON, no other text.
`, avoid)

	c.logger.Info("Requesting daily question (%d recent questions to avoid)", len(recent))

	content, err := c.complete(ctx, "You are a thoughtful relationship coach.", prompt, 0.9)
	if err != nil {
		return "", err
	}

	question := parseQuestion(content)
	if question == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("Daily question: %s", truncateString(question, 100))
	return question, nil
}

// GenerateChatMessage generates a chat message for a specific intent
func (c *Client) GenerateChatMessage(ctx context.Context, intent string, contextData map[string]interface{}) (string, error) {
	contextJSON, err := json.Marshal(contextData)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal context")
	}

	prompt := fmt.Sprintf(`
You are a cosy companion bot for a couple's shared home app. Generate a short, friendly message for the following intent: "%s".
Use the context provided below to personalize the message. Keep it concise and mobile-friendly.
Add a few emojis for fun and readability.

Context:
%s

Return only the message text, no explanations or other text.
`, intent, string(contextJSON))

	c.logger.Info("Generating chat message for intent: %s", intent)

	content, err := c.complete(ctx, "", prompt, 0.7)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// SuggestDishes suggests dishes that can be cooked mostly from the given ingredients
func (c *Client) SuggestDishes(ctx context.Context, ingredients []string, count int) ([]DishIdea, error) {
	prompt := fmt.Sprintf(`
You are a home cooking expert. Based on the available ingredients, suggest %d simple dishes.

Available ingredients: %s

Return the suggestions in the following JSON format:
[
  {
    "name": "Dish name",
    "description": "One sentence about the dish",
    "ingredients_missing": ["ingredient1", "ingredient2", ...]
  },
  ...
]

Only return the JSON array, no other text.
`, count, strings.Join(ingredients, ", "))

	c.logger.Info("Requesting %d dish ideas for %d ingredients", count, len(ingredients))

	content, err := c.complete(ctx, "You are a cooking expert who helps couples decide what to cook with what they have.", prompt, 0.7)
	if err != nil {
		return nil, err
	}

	content = cleanJSONResponse(content)

	var ideas []DishIdea
	if err := json.Unmarshal([]byte(content), &ideas); err != nil {
		c.logger.Error("Failed to parse response: %v, Content: %s", err, truncateString(content, 200))
		return nil, errors.Wrap(err, "failed to parse OpenAI response")
	}

	c.logger.Info("Successfully generated %d dish ideas", len(ideas))
	return ideas, nil
}

func (c *Client) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	c.logger.Debug("OpenAI prompt (first 100 chars): %s", truncateString(strings.TrimSpace(prompt), 100))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "OpenAI API error")
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("OpenAI response (first 100 chars): %s", truncateString(content, 100))
	return content, nil
}

// parseQuestion reads {"question": "..."} and falls back to the raw text
// when the model ignored the format
func parseQuestion(content string) string {
	content = cleanJSONResponse(content)

	var payload struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		return strings.TrimSpace(payload.Question)
	}
	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return ""
	}
	return strings.Trim(content, "\" \n")
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// cleanJSONResponse strips the markdown code fence the model sometimes wraps JSON in
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		// first line may be ```json
		if firstLineEnd := strings.Index(s, "\n"); firstLineEnd != -1 {
			s = s[firstLineEnd+1:]
		}
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}

	return s
}
