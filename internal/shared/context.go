package shared

import "context"

type userContextKey struct{}

// ContextWithUser stores the authenticated user email in context.
func ContextWithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userContextKey{}, email)
}

// UserFromContext extracts the authenticated user email from context.
func UserFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userContextKey{}).(string)
	return email
}
