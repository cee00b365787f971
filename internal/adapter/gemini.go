// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modelgate/modelgate/internal/domain"
)

const (
	// DefaultGeminiBaseURL is the default Gemini API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel is used when the request names no model and the
	// descriptor configures no default.
	DefaultGeminiModel = "gemini-1.5-flash"

	// DefaultUpstreamTimeout bounds a single upstream exchange.
	DefaultUpstreamTimeout = 60 * time.Second
)

// GeminiAdapter implements Adapter for the Google Gemini API. The
// generateContent endpoint on this path accepts free-form text only, so
// structured tool calling is emulated: tool schemas are injected as prompt
// instructions and the reply text is parsed back into the unified shape.
type GeminiAdapter struct {
	settings
	logger *slog.Logger
}

// settings holds construction-time parameters shared by adapter variants.
type settings struct {
	baseURL      string
	defaultModel string
	timeout      time.Duration
	strict       bool
}

// Option is a functional option for configuring an adapter.
type Option func(*settings)

// WithHost sets a custom upstream base URL.
func WithHost(url string) Option {
	return func(s *settings) {
		if url != "" {
			s.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.defaultModel = model
		}
	}
}

// WithTimeout sets the per-call upstream timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithStrictEmulation makes tool-call decode failures hard errors instead of
// degrading to a plain-text assistant message.
func WithStrictEmulation(strict bool) Option {
	return func(s *settings) {
		s.strict = strict
	}
}

// NewGeminiAdapter creates a Gemini adapter.
func NewGeminiAdapter(opts ...Option) *GeminiAdapter {
	g := &GeminiAdapter{
		settings: settings{
			baseURL:      DefaultGeminiBaseURL,
			defaultModel: DefaultGeminiModel,
			timeout:      DefaultUpstreamTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(&g.settings)
	}

	return g
}

// Name returns the adapter kind identifier.
func (g *GeminiAdapter) Name() string {
	return "gemini"
}

// Call performs one generateContent exchange with the given credential.
// The HTTP client is built fresh per call; the credential is attempt-scoped.
func (g *GeminiAdapter) Call(ctx context.Context, credential string, req domain.ChatRequest) (domain.ChatResponse, error) {
	emulating := len(req.Tools) > 0

	// Structured tool turns never survive this wire protocol, with or
	// without tools on the current request.
	messages := flattenToolTurns(req.Messages)
	if emulating {
		messages = injectToolInstructions(messages, req.Tools)
	}

	geminiReq := g.mapRequest(req, messages)

	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, credential)

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: g.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to execute gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var geminiErr geminiErrorResponse
		message := string(respBody)
		if err := json.Unmarshal(respBody, &geminiErr); err == nil && geminiErr.Error.Message != "" {
			message = geminiErr.Error.Message
		}
		return domain.ChatResponse{}, &UpstreamError{
			Provider: g.Name(),
			Status:   resp.StatusCode,
			Message:  message,
		}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to unmarshal gemini response: %w", err)
	}

	return g.mapResponse(geminiResp, model, emulating)
}

// Usage is unsupported by this upstream.
func (g *GeminiAdapter) Usage(_ context.Context, _ string) (*UsageInfo, error) {
	return nil, nil
}

// Classify assigns the retry verdict for an error returned by Call.
func (g *GeminiAdapter) Classify(err error) ErrorClass {
	return classifyDefault(err)
}

// mapRequest converts the unified request into Gemini format. Unified fields
// the wire protocol has no slot for are dropped.
func (g *GeminiAdapter) mapRequest(req domain.ChatRequest, messages []domain.Message) geminiRequest {
	out := geminiRequest{
		Contents: make([]geminiContent, 0, len(messages)),
	}

	var systemParts []string

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			// Gemini carries system text in a dedicated slot.
			systemParts = append(systemParts, msg.Content)
		case domain.RoleUser:
			out.Contents = append(out.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		case domain.RoleAssistant:
			// Unified "assistant" maps to Gemini "model".
			out.Contents = append(out.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	if len(systemParts) > 0 {
		out.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	if req.Temperature != nil {
		out.GenerationConfig.Temperature = req.Temperature
	}
	if req.MaxTokens != nil {
		out.GenerationConfig.MaxOutputTokens = req.MaxTokens
	}
	if req.TopP != nil {
		out.GenerationConfig.TopP = req.TopP
	}
	if len(req.Stop) > 0 {
		out.GenerationConfig.StopSequences = req.Stop
	}

	return out
}

// mapResponse converts a Gemini response into the unified shape. When tool
// emulation is active the candidate text runs through the decode chain
// first; unparseable output degrades to a plain assistant message unless the
// adapter is in strict mode.
func (g *GeminiAdapter) mapResponse(resp geminiResponse, model string, emulating bool) (domain.ChatResponse, error) {
	out := domain.ChatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: make([]domain.Choice, 0, len(resp.Candidates)),
	}

	for i, candidate := range resp.Candidates {
		text := ""
		if len(candidate.Content.Parts) > 0 {
			text = candidate.Content.Parts[0].Text
		}

		choice := domain.Choice{
			Index:        i,
			Message:      domain.Message{Role: domain.RoleAssistant, Content: text},
			FinishReason: mapGeminiFinishReason(candidate.FinishReason),
		}

		if emulating {
			if reply := decodeEmulatedReply(text); reply != nil {
				choice.Message, choice.FinishReason = emulatedMessage(reply)
			} else {
				if g.strict {
					return domain.ChatResponse{}, fmt.Errorf("%w: %q", domain.ErrEmulationDecode, truncateForLog(text))
				}
				g.logger.Debug("tool emulation decode failed, returning raw text",
					slog.String("provider", g.Name()),
					slog.String("reply_prefix", truncateForLog(text)),
				)
			}
		}

		out.Choices = append(out.Choices, choice)
	}

	// The unified contract guarantees at least one choice.
	if len(out.Choices) == 0 {
		out.Choices = append(out.Choices, domain.Choice{
			Index:        0,
			Message:      domain.Message{Role: domain.RoleAssistant},
			FinishReason: domain.FinishStop,
		})
	}

	if resp.UsageMetadata != nil {
		out.Usage = &domain.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	return out, nil
}

// mapGeminiFinishReason converts Gemini finish reasons to the unified set.
func mapGeminiFinishReason(reason string) string {
	switch reason {
	case "MAX_TOKENS":
		return domain.FinishLength
	case "SAFETY", "RECITATION":
		return domain.FinishFiltered
	default:
		return domain.FinishStop
	}
}

// truncateForLog bounds model output quoted in errors and logs.
func truncateForLog(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ============================================================================
// Gemini API Types
// ============================================================================

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
