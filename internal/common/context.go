package common

import (
	"context"
)

type contextKey string

// ActorIDKey carries the authenticated actor identifier through request
// contexts. Mutating operations refuse to run without it.
const ActorIDKey contextKey = "actorID"

func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

func GetActorIDFromContext(ctx context.Context) (string, bool) {
	actorID, ok := ctx.Value(ActorIDKey).(string)
	if !ok || actorID == "" {
		return "", false
	}
	return actorID, true
}
