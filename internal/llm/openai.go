package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAI is the backend for the official OpenAI API.
type OpenAI struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAI builds the backend. The API key falls back to OPENAI_API_KEY.
func NewOpenAI(p Params) (*OpenAI, error) {
	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend: no API key (set OPENAI_API_KEY or openai_api_key)")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by the completion caller
		option.WithMaxRetries(0),
	}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	model := p.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       model,
		maxTokens:   p.MaxTokens,
		temperature: p.Temperature,
	}, nil
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if o.maxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}
	// always sent: 0 is a valid setting, distinct from the server default
	req.Temperature = openai.Float(o.temperature)

	resp, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
				return "", Retryable(err)
			}
			return "", err
		}
		var netErr net.Error
		if errors.As(err, &netErr) && ctx.Err() == nil {
			return "", Retryable(err)
		}
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	return msg.Content, nil
}
