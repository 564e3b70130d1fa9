package services

import (
	"context"
	"encoding/json"
	"log"

	"catadmin/internal/caching"
	"catadmin/internal/common"
	"catadmin/internal/models"
	"catadmin/internal/repositories"
)

type HistoryService interface {
	Record(ctx context.Context, entry *models.HistoryEntry) error
	GetRecentHistory(ctx context.Context, limit int, entityType string) ([]*models.HistoryEntry, error)
	GetEntityHistory(ctx context.Context, entityType string, entityID int64, limit int) ([]*models.HistoryEntry, error)
	GetBulkOperations(ctx context.Context, limit int) ([]*models.BulkOperation, error)
	RevertChange(ctx context.Context, historyID int64) (*models.HistoryEntry, error)
	RevertBulkOperation(ctx context.Context, batchID string) (*models.BulkRevertResult, error)
}

type historyService struct {
	db           repositories.DB
	historyRepo  repositories.HistoryRepository
	categoryRepo repositories.CategoryRepository
	productRepo  repositories.ProductRepository
	bulkRepo     repositories.BulkOperationsRepository
	cache        caching.CacheService
}

func NewHistoryService(
	db repositories.DB,
	historyRepo repositories.HistoryRepository,
	categoryRepo repositories.CategoryRepository,
	productRepo repositories.ProductRepository,
	bulkRepo repositories.BulkOperationsRepository,
	cache caching.CacheService,
) HistoryService {
	return &historyService{
		db:           db,
		historyRepo:  historyRepo,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		bulkRepo:     bulkRepo,
		cache:        cache,
	}
}

func (s *historyService) Record(ctx context.Context, entry *models.HistoryEntry) error {
	if err := s.historyRepo.Insert(ctx, entry); err != nil {
		return common.WrapStorage("record history entry", err)
	}
	return nil
}

func (s *historyService) GetRecentHistory(ctx context.Context, limit int, entityType string) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.historyRepo.Recent(ctx, limit, entityType)
	if err != nil {
		return nil, common.WrapStorage("load history", err)
	}
	return entries, nil
}

func (s *historyService) GetEntityHistory(ctx context.Context, entityType string, entityID int64, limit int) ([]*models.HistoryEntry, error) {
	if entityType != models.EntityCategory && entityType != models.EntityProduct {
		return nil, common.NewError(common.CodeValidation, "unknown entity type %q", entityType)
	}
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.historyRepo.ByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, common.WrapStorage("load entity history", err)
	}
	return entries, nil
}

func (s *historyService) GetBulkOperations(ctx context.Context, limit int) ([]*models.BulkOperation, error) {
	if limit <= 0 {
		limit = 20
	}
	ops, err := s.bulkRepo.List(ctx, limit)
	if err != nil {
		return nil, common.WrapStorage("load bulk operations", err)
	}
	return ops, nil
}

// RevertChange undoes one history entry: a create is undone by archiving,
// a delete by reactivating, an update by writing the old snapshot back.
// The entry is marked reverted and a fresh revert entry is appended; revert
// entries themselves can never be reverted.
func (s *historyService) RevertChange(ctx context.Context, historyID int64) (*models.HistoryEntry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := s.historyRepo.GetByID(ctx, historyID)
	if err != nil {
		return nil, common.WrapStorage("load history entry", err)
	}
	if entry == nil {
		return nil, common.NewError(common.CodeNotFound, "history entry %d not found", historyID)
	}
	if entry.Reverted {
		return nil, common.NewError(common.CodeStateConflict, "history entry %d was already reverted", historyID)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.applyRevert(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.historyRepo.WithTx(tx).MarkReverted(ctx, historyID); err != nil {
		return nil, common.WrapStorage("mark entry reverted", err)
	}

	newData, err := s.snapshotEntity(ctx, tx, entry.EntityType, entry.EntityID)
	if err != nil {
		return nil, err
	}
	revertEntry := &models.HistoryEntry{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     models.ActionRevert,
		NewData:    newData,
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, revertEntry); err != nil {
		return nil, common.WrapStorage("record revert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateAfterRevert(ctx, entry)
	return revertEntry, nil
}

// applyRevert performs the inverse mutation inside tx.
func (s *historyService) applyRevert(ctx context.Context, tx repositories.DB, entry *models.HistoryEntry) error {
	switch entry.Action {
	case models.ActionCreate:
		return s.setEntityStatus(ctx, tx, entry, models.StatusArchived)
	case models.ActionDelete:
		return s.setEntityStatus(ctx, tx, entry, models.StatusActive)
	case models.ActionUpdate:
		return s.restoreSnapshot(ctx, tx, entry)
	default:
		return common.NewError(common.CodeStateConflict, "%s entries cannot be reverted", entry.Action)
	}
}

func (s *historyService) setEntityStatus(ctx context.Context, tx repositories.DB, entry *models.HistoryEntry, status string) error {
	switch entry.EntityType {
	case models.EntityCategory:
		if err := s.categoryRepo.WithTx(tx).SetStatus(ctx, entry.EntityID, status); err != nil {
			return common.WrapStorage("revert category status", err)
		}
	case models.EntityProduct:
		if err := s.productRepo.WithTx(tx).SetStatus(ctx, entry.EntityID, status); err != nil {
			return common.WrapStorage("revert product status", err)
		}
	default:
		return common.NewError(common.CodeStateConflict, "unknown entity type %q", entry.EntityType)
	}
	return nil
}

func (s *historyService) restoreSnapshot(ctx context.Context, tx repositories.DB, entry *models.HistoryEntry) error {
	if len(entry.OldData) == 0 {
		return common.NewError(common.CodeStateConflict, "history entry %d has no prior snapshot", entry.ID)
	}
	switch entry.EntityType {
	case models.EntityCategory:
		category := &models.Category{}
		if err := json.Unmarshal(entry.OldData, category); err != nil {
			return common.NewError(common.CodeStateConflict, "history entry %d snapshot is unreadable", entry.ID)
		}
		if err := s.categoryRepo.WithTx(tx).Update(ctx, category); err != nil {
			return common.WrapStorage("restore category snapshot", err)
		}
	case models.EntityProduct:
		product := &models.Product{}
		if err := json.Unmarshal(entry.OldData, product); err != nil {
			return common.NewError(common.CodeStateConflict, "history entry %d snapshot is unreadable", entry.ID)
		}
		if err := s.productRepo.WithTx(tx).Update(ctx, product); err != nil {
			return common.WrapStorage("restore product snapshot", err)
		}
	default:
		return common.NewError(common.CodeStateConflict, "unknown entity type %q", entry.EntityType)
	}
	return nil
}

// snapshotEntity reads the entity's post-revert state inside tx so the
// revert entry records what the revert produced.
func (s *historyService) snapshotEntity(ctx context.Context, tx repositories.DB, entityType string, entityID int64) (json.RawMessage, error) {
	switch entityType {
	case models.EntityCategory:
		category, err := s.categoryRepo.WithTx(tx).GetByID(ctx, entityID)
		if err != nil {
			return nil, common.WrapStorage("load category", err)
		}
		return snapshotJSON(category), nil
	case models.EntityProduct:
		product, err := s.productRepo.WithTx(tx).GetByID(ctx, entityID)
		if err != nil {
			return nil, common.WrapStorage("load product", err)
		}
		return snapshotJSON(product), nil
	}
	return nil, nil
}

// RevertBulkOperation undoes every not-yet-reverted entry of a committed
// batch, newest entry first. Each entry gets its own transaction; a failure
// on one entry is counted and the rest still run.
func (s *historyService) RevertBulkOperation(ctx context.Context, batchID string) (*models.BulkRevertResult, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	op, err := s.bulkRepo.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, common.WrapStorage("load bulk operation", err)
	}
	if op == nil {
		return nil, common.NewError(common.CodeNotFound, "bulk operation %s not found", batchID)
	}
	if op.Status != models.BulkStatusCommitted {
		return nil, common.NewError(common.CodeStateConflict, "bulk operation %s is %s, only committed operations can be reverted", batchID, op.Status)
	}

	entries, err := s.historyRepo.ActiveByBatch(ctx, batchID)
	if err != nil {
		return nil, common.WrapStorage("load batch history", err)
	}

	result := &models.BulkRevertResult{BatchID: batchID}
	for _, entry := range entries {
		if _, err := s.RevertChange(ctx, entry.ID); err != nil {
			log.Printf("revert entry %d of batch %s: %v", entry.ID, batchID, err)
			result.Failed++
			continue
		}
		result.Reverted++
	}

	if err := s.bulkRepo.SetStatus(ctx, batchID, models.BulkStatusReverted); err != nil {
		return nil, common.WrapStorage("mark bulk operation reverted", err)
	}
	return result, nil
}

func (s *historyService) invalidateAfterRevert(ctx context.Context, entry *models.HistoryEntry) {
	if entry.EntityType == models.EntityProduct {
		if err := s.cache.DeleteProduct(ctx, entry.EntityID); err != nil {
			log.Printf("product cache invalidation: %v", err)
		}
	}
	if err := s.cache.InvalidateCategoryTree(ctx); err != nil {
		log.Printf("category tree cache invalidation: %v", err)
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		log.Printf("stats cache invalidation: %v", err)
	}
}
