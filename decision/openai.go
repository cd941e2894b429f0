package decision

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/citymesh/core"
)

// OpenAIOptions configure the OpenAI decision provider. Fields mirror a
// minimal subset of Chat Completion parameters; extend via functional
// options without breaking callers.
type OpenAIOptions struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// OpenAIProvider selects actions through the OpenAI Chat Completions API.
// Wrap it in a TimeoutProvider before handing it to runners.
type OpenAIProvider struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAIProvider creates a provider using the official client with
// ambient credentials.
func NewOpenAIProvider(optFns ...func(o *OpenAIOptions)) *OpenAIProvider {
	client := openai.NewClient()
	return NewOpenAIProviderFromClient(&client, optFns...)
}

// NewOpenAIProviderFromClient creates a provider from an existing client.
func NewOpenAIProviderFromClient(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAIProvider {
	opts := OpenAIOptions{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAIProvider{client: client, opts: opts}
}

// Name implements core.DecisionProvider.
func (p *OpenAIProvider) Name() string { return "openai" }

// SelectAction implements core.DecisionProvider.
func (p *OpenAIProvider) SelectAction(ctx context.Context, c *core.Citizen, state core.LocalState, actions []core.Action) (core.Action, error) {
	system, user := buildPrompt(c, state, actions)

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	return matchAction(resp.Choices[0].Message.Content, actions)
}
