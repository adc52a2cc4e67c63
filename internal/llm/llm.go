// Package llm wraps the Anthropic API as the completion service behind the
// agent and assist surfaces.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Apology is returned in place of a completion when the upstream service
// produces no text. Callers display it instead of surfacing an engine error.
const Apology = "I apologize, but I was unable to process your request."

// Client wraps the Anthropic API.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Complete requests a single text completion. An error means the service
// was unreachable or rejected the request; a reachable service that returns
// no text yields the fixed Apology string instead.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return textOrApology(text), nil
}

// textOrApology substitutes the fixed apology when the model returned no
// usable text. Callers display completions verbatim, so an empty string
// would render as a blank assistant message.
func textOrApology(text string) string {
	if strings.TrimSpace(text) == "" {
		return Apology
	}
	return text
}
