// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"errors"
	"net/http"
	"strings"
)

// transientStatuses are the HTTP status codes that mark an upstream failure
// as worth retrying on the next credential.
var transientStatuses = map[int]struct{}{
	http.StatusTooManyRequests:    {},
	http.StatusBadGateway:         {},
	http.StatusServiceUnavailable: {},
	http.StatusGatewayTimeout:     {},
}

// transientMarkers are substrings that mark an error as transient when the
// status code alone is inconclusive. They are matched case-insensitively
// against the error text, which includes any nested provider error payload.
var transientMarkers = []string{
	"quota",
	"rate limit",
	"too many requests",
	"upstream error",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
}

// classifyDefault is the shared transient-vs-fatal heuristic. An UpstreamError
// is judged by its status first; everything else falls back to substring
// matching on the error text. Unrecognized errors are fatal.
func classifyDefault(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if _, ok := transientStatuses[upstream.Status]; ok {
			return ClassTransient
		}
	}

	text := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return ClassTransient
		}
	}

	return ClassFatal
}
