package id

import "context"

type contextKey string

const (
	requestKey contextKey = "quartermaster_request_id"
	sessionKey contextKey = "quartermaster_session_id"
)

// IDs captures the identifiers propagated across request boundaries.
type IDs struct {
	RequestID string
	SessionID string
}

// WithRequestID stores the request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// WithSessionID stores the chat session identifier on the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// RequestIDFromContext extracts the request identifier, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestKey).(string); ok {
		return requestID
	}
	return ""
}

// SessionIDFromContext extracts the session identifier, or "".
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sessionID, ok := ctx.Value(sessionKey).(string); ok {
		return sessionID
	}
	return ""
}

// IDsFromContext collects all known identifiers from the context.
func IDsFromContext(ctx context.Context) IDs {
	return IDs{
		RequestID: RequestIDFromContext(ctx),
		SessionID: SessionIDFromContext(ctx),
	}
}

// EnsureRequestID guarantees a request identifier is present on the context.
// It returns the updated context and the resulting identifier.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if existing := RequestIDFromContext(ctx); existing != "" {
		return ctx, existing
	}
	next := NewRequestID()
	return WithRequestID(ctx, next), next
}
