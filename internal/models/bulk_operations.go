package models

import (
	"time"
)

// Bulk operation types.
const (
	BulkTypeImport = "import"
	BulkTypeNuke   = "nuke"
)

// Bulk operation lifecycle. A preview is created pending, moves to committed
// on commit (even with per-row errors) and to reverted when its tagged
// history entries have been rolled back.
const (
	BulkStatusPendingPreview = "pending_preview"
	BulkStatusCommitted      = "committed"
	BulkStatusReverted       = "reverted"
)

// BulkOperation is the lifecycle record for one import (or nuke) batch.
type BulkOperation struct {
	BatchID      string       `json:"batch_id" db:"batch_id"`
	Type         string       `json:"type" db:"type"`
	Status       string       `json:"status" db:"status"`
	TotalItems   int          `json:"total_items" db:"total_items"`
	SuccessCount int          `json:"success_count" db:"success_count"`
	ErrorCount   int          `json:"error_count" db:"error_count"`
	PreviewData  []PreviewRow `json:"preview_data,omitempty" db:"preview_data"`
	Errors       []string     `json:"errors,omitempty" db:"errors"`
	CreatedBy    string       `json:"created_by" db:"created_by"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	CommittedAt  *time.Time   `json:"committed_at,omitempty" db:"committed_at"`
}

// PreviewRow is one classified, validated CSV row awaiting commit. The
// underscore-prefixed JSON names mark classification fields added by the
// preview, as opposed to values that came from the CSV itself.
type PreviewRow struct {
	Line          int     `json:"line"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	SKU           string  `json:"sku,omitempty"`
	Description   string  `json:"description,omitempty"`
	StockQuantity *int    `json:"stock_quantity,omitempty"` // nil when the CSV omitted it
	CategoryID    int64   `json:"category_id"`
	Action        string  `json:"_action"` // "create" or "update"
	ExistingID    *int64  `json:"_existing_id,omitempty"`
}

// BulkPreviewResult is returned to the UI after a preview is persisted.
// TotalRows counts only the valid classified rows; rows that failed
// validation appear in Errors instead.
type BulkPreviewResult struct {
	BatchID     string       `json:"batch_id"`
	TotalRows   int          `json:"total_rows"`
	Creates     int          `json:"creates"`
	Updates     int          `json:"updates"`
	Errors      []string     `json:"errors"`
	PreviewRows []PreviewRow `json:"preview_rows"`
}

// BulkCommitResult summarizes a finished commit or nuke. Partial success is
// not an error; it is reported through the counters.
type BulkCommitResult struct {
	BatchID      string   `json:"batch_id"`
	TotalItems   int      `json:"total_items"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// BulkRevertResult reports how many tagged history entries a batch revert
// rolled back.
type BulkRevertResult struct {
	BatchID  string `json:"batch_id"`
	Reverted int    `json:"reverted"`
	Failed   int    `json:"failed"`
}

// BulkProgress is handed to the advisory progress sink after each chunk.
type BulkProgress struct {
	Processed    int `json:"processed"`
	Total        int `json:"total"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}
