// Package requestid generates request identifiers and carries them on a context.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used to echo the request identifier.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh UUID v4 string.
func New() string {
	return uuid.NewString()
}

// With stores id on ctx.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the identifier stored on ctx, if any.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Ensure returns ctx unchanged when it already carries an identifier,
// otherwise a derived context with a fresh one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := From(ctx); ok {
		return ctx, id
	}
	id := New()
	return With(ctx, id), id
}
