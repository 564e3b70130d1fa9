package models

import (
	"encoding/json"
	"time"
)

// Entity kinds tracked by the history log.
const (
	EntityCategory = "category"
	EntityProduct  = "product"
)

// History actions. Revert entries are appended by a successful revert and can
// never themselves be reverted.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRestore = "restore"
	ActionRevert  = "revert"
)

// HistoryEntry is an immutable audit record. OldData and NewData are full
// entity snapshots kept as opaque JSON so schema evolution in the entities
// does not break historical records.
type HistoryEntry struct {
	ID         int64           `json:"id" db:"id"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   int64           `json:"entity_id" db:"entity_id"`
	Action     string          `json:"action" db:"action"`
	OldData    json.RawMessage `json:"old_data,omitempty" db:"old_data"`
	NewData    json.RawMessage `json:"new_data,omitempty" db:"new_data"`
	ChangedBy  string          `json:"changed_by" db:"changed_by"`
	ChangedAt  time.Time       `json:"changed_at" db:"changed_at"`
	BatchID    *string         `json:"batch_id,omitempty" db:"batch_id"`
	Reverted   bool            `json:"reverted" db:"reverted"`
}
