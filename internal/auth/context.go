package auth

import "context"

// contextKey keeps request-scoped auth values private to this package; the
// HTTP authentication middleware is the only writer.
type contextKey int

const (
	principalKey contextKey = iota + 1
	tokenKey
)

// ContextWithPrincipal stores the authenticated volunteer, NGO or admin
// identity for the remainder of the request.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext returns the identity attached by the authentication
// middleware. The ok result is false on unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalKey).(Principal)
	return principal, ok
}

// ContextWithToken keeps the raw bearer token available for calls made on
// the caller's behalf. Empty tokens are not stored.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the request's bearer token, if one was attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(tokenKey).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
