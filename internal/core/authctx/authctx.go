// Package authctx carries the bearer token of the current session through a
// context.Context, so the API client can attach it without knowing about the
// session store.
package authctx

import "context"

// Source yields the current bearer token. The session's AuthStore implements it.
type Source interface {
	Token() string
}

type ctxKey struct{}

type staticToken string

func (t staticToken) Token() string { return string(t) }

// WithSource attaches src to ctx.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, ctxKey{}, src)
}

// WithToken pins a fixed token on ctx, overriding any attached Source.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, staticToken(token))
}

// SourceFrom returns the Source attached to ctx, or nil.
func SourceFrom(ctx context.Context) Source {
	src, _ := ctx.Value(ctxKey{}).(Source)
	return src
}

// Token returns the token attached to ctx, or "".
func Token(ctx context.Context) string {
	if src := SourceFrom(ctx); src != nil {
		return src.Token()
	}
	return ""
}
