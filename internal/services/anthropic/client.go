// Package anthropic adapts the llmkit Anthropic prompt API to the text
// generation contract used by script drafting.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// ErrEmptyResponse marks a response without any text block.
var ErrEmptyResponse = errors.New("empty anthropic response")

const systemPrompt = "Eres un guionista de noticieros de radio en español. Respondes solo con el guion solicitado."

// Config captures the llmkit request settings.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// promptFunc returns the first text block of a completion.
type promptFunc func(system, user, apiKey string, settings types.RequestSettings) (string, error)

// Client generates text through Anthropic messages.
type Client struct {
	cfg    Config
	prompt promptFunc
}

// NewClient constructs a client using llmkit's PromptWithSettings.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, prompt: promptWithSettings}
}

func promptWithSettings(system, user, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(system, user, "", apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", nil
	}
	return response.Content[0].Text, nil
}

// GenerateText sends prompt as the user turn. llmkit does not accept a
// context, so cancellation is only observed before the call starts.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("anthropic text: api key required")
	}
	settings := types.RequestSettings{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	response, err := c.prompt(systemPrompt, prompt, c.cfg.APIKey, settings)
	if err != nil {
		return "", fmt.Errorf("anthropic text: %w", err)
	}
	text := strings.TrimSpace(response)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
