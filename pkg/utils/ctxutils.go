package utils

import (
	"context"

	"workitem-system/internal/entities"
	"workitem-system/pkg/contextkeys"
	apperrors "workitem-system/pkg/errors"
)

func ActorFromCtx(ctx context.Context) (entities.Actor, error) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(entities.Actor)
	if !ok {
		return entities.Actor{}, apperrors.ErrActorNotInContext
	}
	return actor, nil
}

func CtxWithActor(ctx context.Context, actor entities.Actor) context.Context {
	return context.WithValue(ctx, contextkeys.ActorKey, actor)
}
