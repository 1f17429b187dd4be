package ctxkey

import "context"

type contextKey string

func (c contextKey) String() string {
	return "lottery " + string(c)
}

var (
	contextKeyRequestID = contextKey("request-id")
)

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestID gets the request id from the context. If none is present
// "-" is returned, matching the placeholder of the access log.
func RequestID(ctx context.Context) string {
	id, ok := ctx.Value(contextKeyRequestID).(string)
	if id == "" || !ok {
		return "-"
	}
	return id
}
