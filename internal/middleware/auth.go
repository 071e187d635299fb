package middleware

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/savingsgroup/internal/auth"
	"github.com/mmynk/savingsgroup/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ActorKey is the context key for the authenticated actor.
const ActorKey contextKey = "actor"

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFrom extracts the authenticated actor from the context.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(models.Actor)
	return actor, ok
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	actor, _ := ActorFrom(ctx)
	return actor.UserID
}

// RequireAuth returns an interceptor that validates the bearer token and adds
// the actor it describes to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			token, err := auth.BearerToken(req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := jwtManager.Validate(token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithActor(ctx, claims.Actor()), req)
		}
	}
}
