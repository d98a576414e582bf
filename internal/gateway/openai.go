package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// maxCompletionTokensCap caps the forwarded output-token limit. The relay's
// models reject larger values.
const maxCompletionTokensCap = 4096

// OpenAIProvider adapts relay requests to the OpenAI chat completions API
// and reshapes the answer into the canonical candidate form.
type OpenAIProvider struct {
	client       openai.Client
	defaultModel string
}

// NewOpenAIProvider creates the OpenAI adapter.
func NewOpenAIProvider(apiKey, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: defaultModel,
	}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Generate implements Provider. Request parts become chat message content
// blocks; generation knobs translate where the API has an equivalent:
// maxOutputTokens maps to max_completion_tokens (capped), temperature is
// forwarded only at its default of exactly 1 because the target models
// reject other values. Safety settings have no OpenAI equivalent and are
// dropped.
func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := ModelFromEndpoint(req.Endpoint)
	if model == "" {
		model = p.defaultModel
	}

	messages, err := toChatMessages(req.Body.Contents)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if gc := req.Body.GenerationConfig; gc != nil {
		if gc.MaxOutputTokens != nil {
			tokens := int64(*gc.MaxOutputTokens)
			if tokens > maxCompletionTokensCap {
				tokens = maxCompletionTokensCap
			}
			params.MaxCompletionTokens = openai.Int(tokens)
		}
		if gc.Temperature != nil && *gc.Temperature == 1 {
			params.Temperature = openai.Float(1)
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &VendorError{Provider: ProviderOpenAI, Status: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("openai call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := completion.Choices[0]
	out := &Response{
		Provider:     ProviderOpenAI,
		ModelVersion: completion.Model,
		Candidates: []Candidate{{
			Content: Content{
				Role:  "model",
				Parts: []Part{{Text: choice.Message.Content}},
			},
			FinishReason: string(choice.FinishReason),
		}},
		UsageMetadata: &UsageMetadata{
			PromptTokenCount:     int32(completion.Usage.PromptTokens),
			CandidatesTokenCount: int32(completion.Usage.CompletionTokens),
			TotalTokenCount:      int32(completion.Usage.TotalTokens),
		},
	}
	return out, nil
}

func toChatMessages(contents []Content) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(contents))
	for _, c := range contents {
		var blocks []openai.ChatCompletionContentPartUnionParam
		for _, p := range c.Parts {
			switch {
			case p.InlineData != nil:
				dataURL := fmt.Sprintf("data:%s;base64,%s", p.InlineData.MIMEType, p.InlineData.Data)
				blocks = append(blocks, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}))
			case p.Text != "":
				blocks = append(blocks, openai.TextContentPart(p.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		switch c.Role {
		case "model", "assistant":
			// Assistant history turns are text-only in this dialect.
			var text string
			for _, p := range c.Parts {
				text += p.Text
			}
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(blocks))
		}
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("request has no usable content")
	}
	return messages, nil
}
