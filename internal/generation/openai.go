// internal/generation/openai.go
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpclient "era-intake/internal/common/http"
)

const ProviderOpenAI = "openai"

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	// Timeout applies per HTTP attempt; zero inherits the caller's context.
	Timeout time.Duration
}

// OpenAIGenerator talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIGenerator struct {
	config *OpenAIConfig
	client *httpclient.Client
}

func NewOpenAIGenerator(config *OpenAIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		config: config,
		client: httpclient.NewClient(config.Timeout).WithRetries(config.MaxRetries),
	}
}

func (g *OpenAIGenerator) Name() string { return ProviderOpenAI }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		FinishReason *string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error *struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
		Param   interface{} `json:"param"`
	} `json:"error"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	payload := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.UserContent()},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	url := strings.TrimRight(g.config.BaseURL, "/") + "/chat/completions"
	resp, err := g.client.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		if g.config.APIKey != "" {
			r.Header.Set("Authorization", "Bearer "+g.config.APIKey)
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ServiceError{Message: err.Error(), Code: "timeout", Payload: payload}
		}
		return nil, &ServiceError{Message: err.Error(), Payload: payload}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Message: err.Error(), Status: resp.StatusCode, Payload: payload}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, serviceErrorFrom(resp.StatusCode, raw, payload)
	}

	var completion chatResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, &ServiceError{Message: "decode response: " + err.Error(), Status: resp.StatusCode, Payload: payload}
	}

	text := ""
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}

	choices := make([]map[string]interface{}, 0, len(completion.Choices))
	for _, c := range completion.Choices {
		choices = append(choices, map[string]interface{}{"index": c.Index, "finish_reason": c.FinishReason})
	}

	return &Response{
		Text:    text,
		Payload: payload,
		Meta: map[string]interface{}{
			"id":          completion.ID,
			"created":     completion.Created,
			"model":       completion.Model,
			"choicesMeta": choices,
		},
	}, nil
}

func serviceErrorFrom(status int, body []byte, payload interface{}) *ServiceError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		code := env.Error.Code
		if code == nil && env.Error.Type != "" {
			code = env.Error.Type
		}
		return &ServiceError{Message: env.Error.Message, Code: code, Param: env.Error.Param, Status: status, Payload: payload}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &ServiceError{Message: msg, Status: status, Payload: payload}
}
