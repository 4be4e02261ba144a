package kit

import "context"

type contextKey string

const (
	// SessionIDKey scopes the scan single-flight guard: one active scan
	// per session.
	SessionIDKey contextKey = "kit_session_id"
	// RequestIDKey carries the per-request id attached to log lines.
	RequestIDKey contextKey = "kit_request_id"
	// TransportKey records which surface invoked the endpoint: "http",
	// "mcp", "cli".
	TransportKey contextKey = "kit_transport"
)

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}
func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionIDKey).(string)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "cli"
}
