package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/emailwriter/internal/logging"
)

// maxResponseBytes caps how much of a remote response body is read.
const maxResponseBytes = 4 << 20

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// responseSchema describes the only part of a generateContent reply we depend on:
// candidates[0].content.parts[0].text.
const responseSchema = `{
  "type": "object",
  "required": ["candidates"],
  "properties": {
    "candidates": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["content"],
        "properties": {
          "content": {
            "type": "object",
            "required": ["parts"],
            "properties": {
              "parts": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["text"],
                  "properties": {"text": {"type": "string"}}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var geminiSchema = mustSchema(responseSchema)

func mustSchema(def string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def))
	if err != nil {
		panic(fmt.Sprintf("generator: invalid response schema: %v", err))
	}
	return schema
}

// geminiEndpoint holds what both net/http strategies need to reach generateContent.
type geminiEndpoint struct {
	URL    string
	APIKey string
	Model  string
}

// apiKeyHeader carries the API key. The key is never placed in the request URL.
const apiKeyHeader = "x-goog-api-key"

// endpointURL validates the configured generateContent URL.
func (e geminiEndpoint) endpointURL() (string, error) {
	u, err := url.Parse(strings.TrimSpace(e.URL))
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("parse api url: %q is not absolute", e.URL)
	}
	return u.String(), nil
}

// redactURLError strips query parameters from the URL of a transport error,
// since a configured URL may still carry a "key" parameter.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	if u, perr := url.Parse(uerr.URL); perr == nil && u.RawQuery != "" {
		u.RawQuery = "redacted"
		return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
	}
	return err
}

func (e geminiEndpoint) host() string {
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" {
		return e.URL
	}
	return u.Host
}

// call performs one generateContent round trip with client on the calling goroutine.
func (e geminiEndpoint) call(ctx context.Context, client *http.Client, name string, req EmailRequest) (string, error) {
	start := time.Now()

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: BuildPrompt(req)}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &RemoteCallError{Generator: name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	endpoint, err := e.endpointURL()
	if err != nil {
		return "", &RemoteCallError{Generator: name, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &RemoteCallError{Generator: name, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		httpReq.Header.Set(apiKeyHeader, e.APIKey)
	}

	logging.LogRequest("APP->GEMINI", e.host(), e.Model, body)
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", &RemoteCallError{Generator: name, Err: redactURLError(err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &RemoteCallError{Generator: name, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	logging.LogRequest("GEMINI->APP", e.host(), e.Model, respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RemoteCallError{Generator: name, StatusCode: resp.StatusCode, Err: apiError(resp.Status, respBody)}
	}

	reply, err := extractReply(respBody)
	if err != nil {
		return "", &RemoteCallError{Generator: name, StatusCode: resp.StatusCode, Err: err}
	}

	logging.LogEvent("%s generator took %d ms", name, time.Since(start).Milliseconds())
	return reply, nil
}

func apiError(status string, body []byte) error {
	var errResp geminiErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("API error: %s", errResp.Error.Message)
	}
	return fmt.Errorf("unexpected status %s", status)
}

// extractReply returns candidates[0].content.parts[0].text, or ErrMalformedResponse
// when the body does not match the expected shape.
func extractReply(body []byte) (string, error) {
	if !json.Valid(body) {
		return "", fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}

	result, err := geminiSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(errs, ", "))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text), nil
}
