// Package logger provides structured logging with automatic secret redaction.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. Values stored under these keys are
// extracted by the ContextHandler and added to log records automatically.
const (
	// ContextKeyRequestID identifies the individual gateway request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyDevice identifies the authenticated client device.
	ContextKeyDevice contextKey = "device"

	// ContextKeyProvider identifies the voice provider handling a dispatch.
	ContextKeyProvider contextKey = "provider"
)

// allContextKeys lists the keys the handler extracts for logging.
var allContextKeys = []contextKey{
	ContextKeyRequestID,
	ContextKeyDevice,
	ContextKeyProvider,
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithDevice returns a new context with the device name set.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ContextKeyDevice, device)
}

// WithProvider returns a new context with the voice provider name set.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ContextKeyProvider, provider)
}
