package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func TestGeminiGenerator_Generate(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		ModelVersion: "gemini-2.5-flash",
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(`{"title":"t","fields":[]}`, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}}
	gen := &GeminiGenerator{models: fake, model: "gemini-2.5-flash"}

	resp, err := gen.Generate(context.Background(), Request{System: "sys", User: "ask", Context: "{}"})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"t","fields":[]}`, resp.Text)
	assert.Equal(t, "gemini-2.5-flash", fake.model)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, "sys", fake.config.SystemInstruction.Parts[0].Text)
	require.Len(t, fake.contents, 1)
	assert.Equal(t, "ask\n\nAPPLICANT_CONTEXT:\n{}", fake.contents[0].Parts[0].Text)
	assert.Equal(t, "gemini-2.5-flash", resp.Meta["model"])
}

func TestGeminiGenerator_Generate_APIError(t *testing.T) {
	fake := &fakeModels{err: genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"}}
	gen := &GeminiGenerator{models: fake, model: "gemini-2.5-flash"}

	_, err := gen.Generate(context.Background(), Request{})
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "Resource has been exhausted", svcErr.Message)
	assert.Equal(t, "RESOURCE_EXHAUSTED", svcErr.Code)
	assert.Equal(t, 429, svcErr.Status)
}

func TestGeminiGenerator_Generate_TransportError(t *testing.T) {
	gen := &GeminiGenerator{models: &fakeModels{err: errors.New("dial tcp: connection refused")}, model: "m"}

	_, err := gen.Generate(context.Background(), Request{})
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "dial tcp: connection refused", svcErr.Message)
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	assert.Error(t, err)
}
