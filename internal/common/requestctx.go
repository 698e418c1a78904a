package common

import "context"

// RequestContext holds per-request identifiers injected by the HTTP middleware.
type RequestContext struct {
	CorrelationID string
	SessionID     string
}

type contextKey int

const requestContextKey contextKey = iota

// WithRequestContext stores a RequestContext in the context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFromContext retrieves the RequestContext from context, or nil if absent.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// ResolveCorrelationID returns the request's correlation id, or "" outside a request.
func ResolveCorrelationID(ctx context.Context) string {
	if rc := RequestContextFromContext(ctx); rc != nil {
		return rc.CorrelationID
	}
	return ""
}

// ResolveSessionID returns the chat session id bound to the request, if any.
func ResolveSessionID(ctx context.Context) string {
	if rc := RequestContextFromContext(ctx); rc != nil {
		return rc.SessionID
	}
	return ""
}

// WithContext returns a child logger tagged with the request identifiers in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	rc := RequestContextFromContext(ctx)
	if rc == nil {
		return l
	}
	zc := l.Logger.With()
	if rc.CorrelationID != "" {
		zc = zc.Str("correlation_id", rc.CorrelationID)
	}
	if rc.SessionID != "" {
		zc = zc.Str("session_id", rc.SessionID)
	}
	return &Logger{Logger: zc.Logger()}
}
