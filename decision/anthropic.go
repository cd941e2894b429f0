package decision

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/citymesh/core"
)

// AnthropicOptions configure the Anthropic decision provider (model id,
// temperature, max tokens, API key).
type AnthropicOptions struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// AnthropicProvider selects actions through the Anthropic Messages API.
// Wrap it in a TimeoutProvider before handing it to runners.
type AnthropicProvider struct {
	client *anthropic.Client
	opts   AnthropicOptions
}

// NewAnthropicProvider creates a provider using the official client.
func NewAnthropicProvider(optFns ...func(o *AnthropicOptions)) *AnthropicProvider {
	opts := AnthropicOptions{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &AnthropicProvider{client: &client, opts: opts}
}

// NewAnthropicProviderFromClient creates a provider from an existing client.
func NewAnthropicProviderFromClient(client *anthropic.Client, optFns ...func(o *AnthropicOptions)) *AnthropicProvider {
	opts := AnthropicOptions{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AnthropicProvider{client: client, opts: opts}
}

// Name implements core.DecisionProvider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// SelectAction implements core.DecisionProvider.
func (p *AnthropicProvider) SelectAction(ctx context.Context, c *core.Citizen, state core.LocalState, actions []core.Action) (core.Action, error) {
	system, user := buildPrompt(c, state, actions)

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var reply string
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply += block.AsText().Text
		}
	}
	return matchAction(reply, actions)
}
