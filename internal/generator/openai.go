package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/emailwriter/internal/logging"
)

// OpenAIGenerator talks to Gemini through its OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	baseURL string
}

// NewOpenAI builds an OpenAIGenerator. baseURL is the OpenAI-compatible root, e.g.
// https://generativelanguage.googleapis.com/v1beta/openai.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		baseURL: cfg.BaseURL,
	}
}

func (o *OpenAIGenerator) Name() string { return KindOpenAI }

func (o *OpenAIGenerator) Generate(ctx context.Context, req EmailRequest) (string, error) {
	start := time.Now()
	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	}

	logging.LogRequest("APP->OPENAI", o.baseURL, o.model, chatReq)
	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		callErr := &RemoteCallError{Generator: o.Name(), Err: err}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			callErr.StatusCode = apiErr.HTTPStatusCode
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			callErr.StatusCode = reqErr.HTTPStatusCode
		}
		return "", callErr
	}
	logging.LogRequest("OPENAI->APP", o.baseURL, o.model, resp.Choices)

	if len(resp.Choices) == 0 {
		return "", &RemoteCallError{Generator: o.Name(), Err: fmt.Errorf("%w: no choices returned", ErrMalformedResponse)}
	}

	logging.LogEvent("%s generator took %d ms", o.Name(), time.Since(start).Milliseconds())
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
