// Package adapter provides implementations for external AI provider
// integrations. It uses the Adapter pattern to abstract provider-specific
// wire protocols behind a common capability contract.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelgate/modelgate/internal/domain"
)

// ErrorClass is the retry verdict an adapter assigns to an upstream failure.
type ErrorClass int

const (
	// ClassFatal means retrying with another credential will not help.
	ClassFatal ErrorClass = iota

	// ClassTransient means the next credential may succeed: quota,
	// rate-limit and 5xx-style upstream conditions.
	ClassTransient
)

// String implements fmt.Stringer for log output.
func (c ErrorClass) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "fatal"
}

// UsageInfo is an opaque pass-through usage document from an upstream.
type UsageInfo struct {
	// Provider is the adapter that produced the document.
	Provider string `json:"provider"`

	// Raw is the upstream's usage payload, passed through unmodified.
	Raw json.RawMessage `json:"raw"`
}

// Adapter is the capability contract every upstream integration satisfies.
// Implementations translate the unified request into the upstream's native
// shape and the native reply back into the unified response. Unified fields
// the upstream does not understand are dropped silently.
//
// Credentials are attempt-scoped: each Call builds a fresh upstream client
// for the credential it was handed. Clients are never cached across calls.
type Adapter interface {
	// Name returns the adapter kind identifier, e.g. "openai" or "gemini".
	Name() string

	// Call performs one upstream exchange with the given credential.
	Call(ctx context.Context, credential string, req domain.ChatRequest) (domain.ChatResponse, error)

	// Usage fetches the upstream's usage report for the given credential.
	// Returns (nil, nil) when the upstream has no usage reporting.
	Usage(ctx context.Context, credential string) (*UsageInfo, error)

	// Classify assigns the retry verdict for an error returned by Call.
	// Classification happens once, close to the upstream exchange; the
	// retry loop only consumes the verdict.
	Classify(err error) ErrorClass
}

// UpstreamError is a failure reported by an upstream API, carrying the HTTP
// status and the provider's own error message.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error [%d]: %s", e.Provider, e.Status, e.Message)
}
