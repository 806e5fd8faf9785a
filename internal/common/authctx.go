package common

import "context"

type ctxKey string

const accountIDKey ctxKey = "auth/account-id"

// WithAccountID stores the authenticated account identifier on the provided context.
func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountID extracts the authenticated account identifier from the context if present.
func AccountID(ctx context.Context) (int64, bool) {
	v := ctx.Value(accountIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
