package requestctx

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	originKey    ctxKey = "origin"
)

// Origin describes where a request came from, for audit entries.
type Origin struct {
	IP        string
	UserAgent string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originKey, origin)
}

func GetOrigin(ctx context.Context) Origin {
	if value, ok := ctx.Value(originKey).(Origin); ok {
		return value
	}
	return Origin{}
}
