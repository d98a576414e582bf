// Package gateway is the provider-normalizing LLM relay. Clients speak one
// wire dialect (the Gemini generateContent shape) regardless of vendor; the
// gateway adapts requests to the selected vendor and reshapes every vendor's
// answer into the same canonical response.
package gateway

import (
	"fmt"
	"strings"
)

// Provider names accepted on the wire and in LLM_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Request is the relay request body.
type Request struct {
	// Provider optionally pins a vendor for this call. Empty means the
	// service default.
	Provider string `json:"provider,omitempty"`

	// Endpoint identifies the model, e.g. "gemini-2.5-flash" or
	// "models/gemini-2.5-flash:generateContent". Empty means the vendor
	// adapter's default model.
	Endpoint string `json:"endpoint,omitempty"`

	Body Body `json:"body"`
}

// Body carries the generation payload in the Gemini dialect.
type Body struct {
	Contents         []Content         `json:"contents"`
	SafetySettings   []SafetySetting   `json:"safetySettings,omitempty"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`

	// ImageURLs are fetched server-side and appended to the last user
	// content as inline data before vendor dispatch. Clients on the URL
	// pipeline never ship image bytes through the relay.
	ImageURLs []string `json:"imageUrls,omitempty"`
}

// Content is one conversational turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is either text or inline binary data, never both.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is base64-encoded binary content.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig mirrors the Gemini generation knobs the wizard uses.
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

// SafetySetting is forwarded verbatim to Gemini and ignored by vendors
// without an equivalent.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Response is the canonical reply shape for every vendor.
type Response struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion"`
	Provider      string         `json:"provider"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// UsageMetadata reports token accounting in Gemini field names regardless of
// which vendor served the call.
type UsageMetadata struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
	TotalTokenCount      int32 `json:"totalTokenCount"`
}

// Text concatenates the text parts of the first candidate. Empty responses
// return "".
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// VendorError preserves an upstream vendor rejection: the original HTTP
// status and the vendor's own message pass through to the client untouched.
// Network and decode failures are ordinary errors, not VendorErrors, and
// surface as a 502 instead.
type VendorError struct {
	Provider string
	Status   int
	Message  string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Message)
}

// ErrorBody is the relay's JSON failure envelope: a top-level error string,
// the mirrored HTTP status, and optional diagnostic details.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status"`
}

// ModelFromEndpoint extracts a bare model name from an endpoint reference.
// "models/gemini-2.5-flash:generateContent" and "gemini-2.5-flash" both
// yield "gemini-2.5-flash".
func ModelFromEndpoint(endpoint string) string {
	model := strings.TrimPrefix(endpoint, "models/")
	if i := strings.IndexByte(model, ':'); i != -1 {
		model = model[:i]
	}
	return model
}
