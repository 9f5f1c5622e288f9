package apiclient

import "context"

type ctxKey uint8

const (
	ctxKeyToken ctxKey = iota
	ctxKeyUnauthorized
	ctxKeyNoRetry
)

// UnauthorizedFunc is invoked when a non-public endpoint answers 401.
type UnauthorizedFunc func(ctx context.Context)

// WithToken attaches the bearer token used for outgoing requests.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyToken, token)
}

// TokenFromContext returns the bearer token attached to ctx.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyToken).(string)
	return v
}

// WithUnauthorizedHandler attaches the callback run on a non-public 401.
func WithUnauthorizedHandler(ctx context.Context, fn UnauthorizedFunc) context.Context {
	return context.WithValue(ctx, ctxKeyUnauthorized, fn)
}

func unauthorizedHandler(ctx context.Context) UnauthorizedFunc {
	fn, _ := ctx.Value(ctxKeyUnauthorized).(UnauthorizedFunc)
	return fn
}

func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyNoRetry, true)
}

func retryAllowed(ctx context.Context) bool {
	noRetry, _ := ctx.Value(ctxKeyNoRetry).(bool)
	return !noRetry
}
