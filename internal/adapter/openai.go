// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/modelgate/modelgate/internal/domain"
)

const (
	// DefaultOpenAIBaseURL is the default OpenAI API endpoint. A host
	// override points the same adapter at any OpenAI-compatible upstream
	// (Groq, xAI, local gateways).
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is used when the request names no model and the
	// descriptor configures no default.
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIAdapter implements Adapter for OpenAI-compatible upstreams. The
// unified shape is already OpenAI-compatible, so translation is a field
// subset: tool calling is passed through natively, no emulation needed.
type OpenAIAdapter struct {
	settings
}

// NewOpenAIAdapter creates an OpenAI-compatible adapter.
func NewOpenAIAdapter(opts ...Option) *OpenAIAdapter {
	a := &OpenAIAdapter{
		settings: settings{
			baseURL:      DefaultOpenAIBaseURL,
			defaultModel: DefaultOpenAIModel,
			timeout:      DefaultUpstreamTimeout,
		},
	}

	for _, opt := range opts {
		opt(&a.settings)
	}

	return a
}

// Name returns the adapter kind identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// openAIRequest is the native request payload: the unified fields the
// upstream understands, minus gateway-only ones like Provider.
type openAIRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	Tools       []domain.Tool    `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	User        string           `json:"user,omitempty"`
}

// openAIErrorResponse is the upstream's error envelope.
type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Call performs one chat completion exchange with the given credential.
// The HTTP client is built fresh per call; the credential is attempt-scoped.
func (a *OpenAIAdapter) Call(ctx context.Context, credential string, req domain.ChatRequest) (domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	native := openAIRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Tools:       req.Tools,
		ToolChoice:  req.ToolChoice,
		User:        req.User,
	}

	body, err := json.Marshal(native)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	client := &http.Client{Timeout: a.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to execute openai request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to read openai response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.ChatResponse{}, a.upstreamError(resp.StatusCode, respBody)
	}

	var out domain.ChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to unmarshal openai response: %w", err)
	}
	if out.Model == "" {
		out.Model = model
	}

	if len(out.Choices) == 0 {
		return domain.ChatResponse{}, &UpstreamError{
			Provider: a.Name(),
			Status:   resp.StatusCode,
			Message:  "response contained no choices",
		}
	}

	return out, nil
}

// Usage fetches the upstream's usage report and passes it through opaquely.
// Upstreams without a usage endpoint answer 404/405, reported as unsupported.
func (a *OpenAIAdapter) Usage(ctx context.Context, credential string) (*UsageInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/usage", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	client := &http.Client{Timeout: a.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute usage request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, a.upstreamError(resp.StatusCode, respBody)
	}

	return &UsageInfo{Provider: a.Name(), Raw: respBody}, nil
}

// Classify assigns the retry verdict for an error returned by Call.
func (a *OpenAIAdapter) Classify(err error) ErrorClass {
	return classifyDefault(err)
}

// upstreamError builds an UpstreamError from a non-200 reply, preferring the
// nested error envelope's message over the raw body.
func (a *OpenAIAdapter) upstreamError(status int, body []byte) error {
	message := string(body)
	var envelope openAIErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return &UpstreamError{Provider: a.Name(), Status: status, Message: message}
}
