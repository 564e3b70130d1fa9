package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"catadmin/internal/models"
)

type HistoryRepository interface {
	Insert(ctx context.Context, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id int64) (*models.HistoryEntry, error)
	Recent(ctx context.Context, limit int, entityType string) ([]*models.HistoryEntry, error)
	ByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]*models.HistoryEntry, error)
	ActiveByBatch(ctx context.Context, batchID string) ([]*models.HistoryEntry, error)
	MarkReverted(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	WithTx(tx DB) HistoryRepository
}

type historyRepository struct {
	db DB
}

func NewHistoryRepository(db DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) WithTx(tx DB) HistoryRepository {
	return &historyRepository{db: tx}
}

const historyColumns = `id, entity_type, entity_id, action, old_data, new_data, changed_by, changed_at, batch_id, reverted`

func (r *historyRepository) Insert(ctx context.Context, entry *models.HistoryEntry) error {
	query := `INSERT INTO product_history (entity_type, entity_id, action, old_data, new_data, changed_by, batch_id)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id, changed_at`
	// Empty snapshots go in as SQL NULL, not as empty JSON text.
	return r.db.QueryRow(ctx, query,
		entry.EntityType, entry.EntityID, entry.Action,
		nullableJSON(entry.OldData), nullableJSON(entry.NewData),
		entry.ChangedBy, entry.BatchID,
	).Scan(&entry.ID, &entry.ChangedAt)
}

func (r *historyRepository) GetByID(ctx context.Context, id int64) (*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM product_history WHERE id = $1`
	entry := &models.HistoryEntry{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action,
		&entry.OldData, &entry.NewData, &entry.ChangedBy, &entry.ChangedAt,
		&entry.BatchID, &entry.Reverted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *historyRepository) Recent(ctx context.Context, limit int, entityType string) ([]*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM product_history
              WHERE ($2 = '' OR entity_type = $2)
              ORDER BY id DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit, entityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistoryEntries(rows)
}

func (r *historyRepository) ByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM product_history
              WHERE entity_type = $1 AND entity_id = $2
              ORDER BY id DESC LIMIT $3`
	rows, err := r.db.Query(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistoryEntries(rows)
}

// ActiveByBatch returns the not-yet-reverted entries of a batch newest
// first, which is the order a batch revert must undo them in.
func (r *historyRepository) ActiveByBatch(ctx context.Context, batchID string) ([]*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM product_history
              WHERE batch_id = $1 AND reverted = FALSE
              ORDER BY id DESC`
	rows, err := r.db.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistoryEntries(rows)
}

func (r *historyRepository) MarkReverted(ctx context.Context, id int64) error {
	query := `UPDATE product_history SET reverted = TRUE WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *historyRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM product_history`
	var count int
	err := r.db.QueryRow(ctx, query).Scan(&count)
	return count, err
}

func nullableJSON(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	return data
}

func scanHistoryEntries(rows pgx.Rows) ([]*models.HistoryEntry, error) {
	var entries []*models.HistoryEntry
	for rows.Next() {
		entry := &models.HistoryEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action,
			&entry.OldData, &entry.NewData, &entry.ChangedBy, &entry.ChangedAt,
			&entry.BatchID, &entry.Reverted,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
