package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"catadmin/internal/models"
)

type BulkOperationsRepository interface {
	Create(ctx context.Context, op *models.BulkOperation) error
	GetByBatchID(ctx context.Context, batchID string) (*models.BulkOperation, error)
	List(ctx context.Context, limit int) ([]*models.BulkOperation, error)
	Finalize(ctx context.Context, batchID, status string, successCount, errorCount int, errs []string) error
	SetStatus(ctx context.Context, batchID, status string) error
	WithTx(tx DB) BulkOperationsRepository
}

type bulkOperationsRepository struct {
	db DB
}

func NewBulkOperationsRepository(db DB) BulkOperationsRepository {
	return &bulkOperationsRepository{db: db}
}

func (r *bulkOperationsRepository) WithTx(tx DB) BulkOperationsRepository {
	return &bulkOperationsRepository{db: tx}
}

func (r *bulkOperationsRepository) Create(ctx context.Context, op *models.BulkOperation) error {
	previewJSON, err := json.Marshal(op.PreviewData)
	if err != nil {
		return fmt.Errorf("marshal preview data: %w", err)
	}
	errorsJSON, err := json.Marshal(op.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	query := `INSERT INTO bulk_operations (batch_id, type, status, total_items, success_count, error_count, preview_data, errors, created_by, committed_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		op.BatchID, op.Type, op.Status, op.TotalItems, op.SuccessCount, op.ErrorCount,
		previewJSON, errorsJSON, op.CreatedBy, op.CommittedAt,
	).Scan(&op.CreatedAt)
}

func (r *bulkOperationsRepository) GetByBatchID(ctx context.Context, batchID string) (*models.BulkOperation, error) {
	query := `SELECT batch_id, type, status, total_items, success_count, error_count, preview_data, errors, created_by, created_at, committed_at
              FROM bulk_operations WHERE batch_id = $1`
	op := &models.BulkOperation{}
	var previewJSON, errorsJSON []byte
	err := r.db.QueryRow(ctx, query, batchID).Scan(
		&op.BatchID, &op.Type, &op.Status, &op.TotalItems, &op.SuccessCount, &op.ErrorCount,
		&previewJSON, &errorsJSON, &op.CreatedBy, &op.CreatedAt, &op.CommittedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(previewJSON) > 0 {
		if err := json.Unmarshal(previewJSON, &op.PreviewData); err != nil {
			return nil, fmt.Errorf("unmarshal preview data: %w", err)
		}
	}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &op.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal errors: %w", err)
		}
	}
	return op, nil
}

// List returns recent operations newest first, without their preview
// payloads.
func (r *bulkOperationsRepository) List(ctx context.Context, limit int) ([]*models.BulkOperation, error) {
	query := `SELECT batch_id, type, status, total_items, success_count, error_count, created_by, created_at, committed_at
              FROM bulk_operations
              ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*models.BulkOperation
	for rows.Next() {
		op := &models.BulkOperation{}
		if err := rows.Scan(
			&op.BatchID, &op.Type, &op.Status, &op.TotalItems, &op.SuccessCount, &op.ErrorCount,
			&op.CreatedBy, &op.CreatedAt, &op.CommittedAt,
		); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Finalize records the outcome of a commit and stamps committed_at.
func (r *bulkOperationsRepository) Finalize(ctx context.Context, batchID, status string, successCount, errorCount int, errs []string) error {
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	query := `UPDATE bulk_operations
              SET status = $1, success_count = $2, error_count = $3, errors = $4, committed_at = NOW()
              WHERE batch_id = $5`
	_, err = r.db.Exec(ctx, query, status, successCount, errorCount, errorsJSON, batchID)
	return err
}

func (r *bulkOperationsRepository) SetStatus(ctx context.Context, batchID, status string) error {
	query := `UPDATE bulk_operations SET status = $1 WHERE batch_id = $2`
	_, err := r.db.Exec(ctx, query, status, batchID)
	return err
}
