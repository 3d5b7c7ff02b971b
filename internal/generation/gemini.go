// internal/generation/gemini.go
package generation

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const ProviderGemini = "gemini"

// contentGenerator is the slice of *genai.Models the generator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator asks Gemini for a JSON response through the genai SDK.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{models: client.Models, model: model}, nil
}

func (g *GeminiGenerator) Name() string { return ProviderGemini }

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	user := req.UserContent()
	payload := map[string]interface{}{
		"model":             g.model,
		"systemInstruction": req.System,
		"contents":          []string{user},
		"responseMimeType":  "application/json",
	}

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return nil, geminiServiceError(err, payload)
	}

	candidates := make([]map[string]interface{}, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		candidates = append(candidates, map[string]interface{}{"index": c.Index, "finish_reason": string(c.FinishReason)})
	}

	return &Response{
		Text:    resp.Text(),
		Payload: payload,
		Meta: map[string]interface{}{
			"model":       resp.ModelVersion,
			"choicesMeta": candidates,
		},
	}, nil
}

func geminiServiceError(err error, payload interface{}) *ServiceError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{Message: apiErr.Message, Code: apiErr.Status, Status: apiErr.Code, Payload: payload}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ServiceError{Message: apiErrPtr.Message, Code: apiErrPtr.Status, Status: apiErrPtr.Code, Payload: payload}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ServiceError{Message: err.Error(), Code: "timeout", Payload: payload}
	}
	return &ServiceError{Message: err.Error(), Payload: payload}
}
