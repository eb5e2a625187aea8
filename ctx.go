package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// Actor is the typed authorization context the gates attach to a request.
// A nil User means the request is anonymous (optional-auth gate, no
// credential presented).
type Actor struct {
	User *User
}

// Anonymous reports whether the request carries no authenticated identity.
func (a *Actor) Anonymous() bool {
	return a == nil || a.User == nil
}

// Admin reports whether the actor is an authenticated administrator.
func (a *Actor) Admin() bool {
	return a != nil && a.User != nil && a.User.IsAdmin
}

// AnonymousActor is the context value attached by the optional-auth gate when
// no credential is present.
func AnonymousActor() *Actor {
	return &Actor{}
}

var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithActor sets the Actor in the given context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor in the standard context.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	raw, ok := ctx.Value(actorCtxKey).(*Actor)
	return raw, ok
}

// ActorFromRouter extracts the actor the gates stored in router locals.
func ActorFromRouter(c router.Context, key string) (*Actor, bool) {
	if key == "" {
		key = "user"
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	actor, ok := raw.(*Actor)
	return actor, ok
}
