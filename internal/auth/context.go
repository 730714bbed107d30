// ABOUTME: Session context for carrying the authenticated identity through handlers
// ABOUTME: Provides WithSession/FromContext for propagating sessions via context

package auth

import (
	"context"
)

// sessionContextKey is the key type for storing a Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the Session attached.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves the Session from the context.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}

// MustFromContext retrieves the Session from the context, panicking if not present.
func MustFromContext(ctx context.Context) Session {
	s, ok := FromContext(ctx)
	if !ok {
		panic("auth: Session not found in context")
	}
	return s
}
