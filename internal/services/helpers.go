package services

import (
	"context"
	"encoding/json"
	"log"

	"catadmin/internal/common"
)

// actorFrom pulls the acting user from the request context. Every mutation
// requires one so the history log always has an author.
func actorFrom(ctx context.Context) (string, error) {
	actor, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return "", common.NewError(common.CodeValidation, "actor id is required")
	}
	return actor, nil
}

// snapshotJSON serializes an entity for a history record. Entities are plain
// data structs so marshaling cannot realistically fail; a failure is logged
// and recorded as an absent snapshot rather than blocking the mutation.
func snapshotJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal history snapshot: %v", err)
		return nil
	}
	return data
}
