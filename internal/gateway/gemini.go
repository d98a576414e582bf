package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider adapts relay requests to the Gemini API. The wire dialect
// is already Gemini-shaped, so translation is mostly type mapping.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates the Gemini adapter.
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, defaultModel: defaultModel}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return ProviderGemini }

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := ModelFromEndpoint(req.Endpoint)
	if model == "" {
		model = p.defaultModel
	}

	contents, err := toGenaiContents(req.Body.Contents)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{}
	if gc := req.Body.GenerationConfig; gc != nil {
		if gc.Temperature != nil {
			t := float32(*gc.Temperature)
			cfg.Temperature = &t
		}
		if gc.MaxOutputTokens != nil {
			cfg.MaxOutputTokens = int32(*gc.MaxOutputTokens)
		}
		cfg.ResponseMIMEType = gc.ResponseMIMEType
	}
	for _, ss := range req.Body.SafetySettings {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(ss.Category),
			Threshold: genai.HarmBlockThreshold(ss.Threshold),
		})
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &VendorError{Provider: ProviderGemini, Status: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	out := &Response{
		Provider:     ProviderGemini,
		ModelVersion: resp.ModelVersion,
	}
	if out.ModelVersion == "" {
		out.ModelVersion = model
	}
	for _, c := range resp.Candidates {
		out.Candidates = append(out.Candidates, toCandidate(c))
	}
	if u := resp.UsageMetadata; u != nil {
		out.UsageMetadata = &UsageMetadata{
			PromptTokenCount:     u.PromptTokenCount,
			CandidatesTokenCount: u.CandidatesTokenCount,
			TotalTokenCount:      u.TotalTokenCount,
		}
	}
	return out, nil
}

// toCandidate maps a vendor candidate onto the canonical shape. Text and
// inline-image parts both pass through; inline bytes are re-encoded as
// base64 for the wire.
func toCandidate(c *genai.Candidate) Candidate {
	cand := Candidate{FinishReason: string(c.FinishReason)}
	if c.Content == nil {
		return cand
	}
	cand.Content.Role = c.Content.Role
	for _, part := range c.Content.Parts {
		switch {
		case part == nil:
		case part.InlineData != nil:
			cand.Content.Parts = append(cand.Content.Parts, Part{InlineData: &InlineData{
				MIMEType: part.InlineData.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
			}})
		case part.Text != "":
			cand.Content.Parts = append(cand.Content.Parts, Part{Text: part.Text})
		}
	}
	return cand
}

func toGenaiContents(contents []Content) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		role := c.Role
		if role == "" {
			role = "user"
		}
		gc := &genai.Content{Role: role}
		for _, p := range c.Parts {
			switch {
			case p.InlineData != nil:
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decoding inline image data: %w", err)
				}
				gc.Parts = append(gc.Parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: p.InlineData.MIMEType, Data: data},
				})
			default:
				gc.Parts = append(gc.Parts, &genai.Part{Text: p.Text})
			}
		}
		out = append(out, gc)
	}
	return out, nil
}
