// Package handler provides the HTTP surface of the gateway.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelgate/modelgate/internal/adapter"
	"github.com/modelgate/modelgate/internal/domain"
	"github.com/modelgate/modelgate/internal/gateway"
	"github.com/modelgate/modelgate/internal/metrics"
)

// ProviderHeader selects the target provider when the request body does not.
const ProviderHeader = "X-Provider"

// GatewayHandler exposes the provider registry over an OpenAI-shaped HTTP
// API. All upstream and routing failures are translated into the OpenAI
// error envelope so clients never see raw upstream payloads.
type GatewayHandler struct {
	registry *gateway.Registry
	logger   *slog.Logger
}

// GatewayHandlerOption is a functional option for configuring GatewayHandler.
type GatewayHandlerOption func(*GatewayHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) GatewayHandlerOption {
	return func(h *GatewayHandler) {
		h.logger = logger
	}
}

// NewGatewayHandler creates a handler over the given registry.
func NewGatewayHandler(registry *gateway.Registry, opts ...GatewayHandlerOption) *GatewayHandler {
	h := &GatewayHandler{
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleChatCompletion handles POST /v1/chat/completions.
// The target provider comes from the request body's "provider" field, or the
// X-Provider header when the body omits it.
func (h *GatewayHandler) HandleChatCompletion(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.CountRequest("", metrics.OutcomeRejected)
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	if req.Provider == "" {
		req.Provider = c.GetHeader(ProviderHeader)
	}
	if req.Provider == "" {
		metrics.CountRequest("", metrics.OutcomeRejected)
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "provider is required (body field or X-Provider header)")
		return
	}
	if len(req.Messages) == 0 {
		metrics.CountRequest(req.Provider, metrics.OutcomeRejected)
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "messages array is required")
		return
	}

	resp, err := h.registry.Send(c.Request.Context(), req.Provider, req)
	if err != nil {
		h.sendUpstreamError(c, req.Provider, err)
		return
	}

	c.Set("provider", req.Provider)
	metrics.CountRequest(req.Provider, metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, resp)
}

// HandleUsage handles GET /v1/usage/:provider.
// Responds 204 when the upstream has no usage reporting.
func (h *GatewayHandler) HandleUsage(c *gin.Context) {
	name := c.Param("provider")

	info, err := h.registry.Usage(c.Request.Context(), name)
	if err != nil {
		h.sendUpstreamError(c, name, err)
		return
	}
	if info == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, info)
}

// HandleProviders handles GET /v1/providers.
// Lists configured providers without exposing any credential material.
func (h *GatewayHandler) HandleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   h.registry.Providers(),
	})
}

// HandleHealth handles GET /health.
func (h *GatewayHandler) HandleHealth(c *gin.Context) {
	providers := h.registry.Providers()

	totalKeys := 0
	for _, p := range providers {
		totalKeys += p.KeyCount
	}

	status := "healthy"
	if totalKeys == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"providers":  providers,
		"total_keys": totalKeys,
	})
}

// sendUpstreamError maps routing and upstream failures onto HTTP statuses:
// unknown provider is the client's mistake (404), a bad adapter kind is a
// configuration mistake (400), an exhausted credential pool means the
// service is temporarily unable to serve (503), everything else is a bad
// gateway (502).
func (h *GatewayHandler) sendUpstreamError(c *gin.Context, provider string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		metrics.CountRequest(provider, metrics.OutcomeRejected)
		h.sendError(c, http.StatusNotFound, "invalid_request_error", err.Error())

	case errors.Is(err, domain.ErrUnknownAdapterKind), errors.Is(err, domain.ErrEmptyCredentialPool):
		metrics.CountRequest(provider, metrics.OutcomeRejected)
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", err.Error())

	case errors.Is(err, domain.ErrAllCredentialsExhausted):
		h.logger.Error("credential pool exhausted",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		metrics.CountRequest(provider, metrics.OutcomeExhausted)
		h.sendError(c, http.StatusServiceUnavailable, "server_error", "All upstream credentials exhausted. Please try again later.")

	default:
		h.logger.Error("upstream request failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		metrics.CountRequest(provider, metrics.OutcomeFatal)

		var upstream *adapter.UpstreamError
		if errors.As(err, &upstream) && upstream.Status >= 400 && upstream.Status < 500 {
			h.sendError(c, upstream.Status, "invalid_request_error", upstream.Message)
			return
		}
		h.sendError(c, http.StatusBadGateway, "server_error", "Upstream provider request failed.")
	}
}

// sendError sends an error response in OpenAI-compatible format.
func (h *GatewayHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
			"param":   nil,
			"code":    nil,
		},
	})
}
