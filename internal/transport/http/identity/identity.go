package identity

import "context"

type contextKey struct{}

// WithAccountID attaches the acting account resolved by the gateway
// middleware. Authentication itself happens upstream.
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, accountID)
}

func AccountID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok && id > 0
}
