package httpapi

import "context"

// Principal is the authenticated identity derived from a request's credential.
// It lives only for the duration of one request.
type Principal struct {
	Email string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Email != ""
}
