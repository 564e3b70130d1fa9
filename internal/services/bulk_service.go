package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"catadmin/internal/caching"
	"catadmin/internal/common"
	"catadmin/internal/csvio"
	"catadmin/internal/models"
	"catadmin/internal/repositories"
)

// ProgressFunc receives advisory progress after each committed chunk. It
// runs on the import goroutine; panics in the sink are swallowed so a
// broken progress consumer cannot fail the import.
type ProgressFunc func(progress models.BulkProgress)

type BulkService interface {
	CreatePreview(ctx context.Context, csvText string) (*models.BulkPreviewResult, error)
	Commit(ctx context.Context, batchID string, progress ProgressFunc) (*models.BulkCommitResult, error)
	GetOperation(ctx context.Context, batchID string) (*models.BulkOperation, error)
	NukeAllProducts(ctx context.Context) (*models.BulkCommitResult, error)
}

type bulkService struct {
	db           repositories.DB
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	historyRepo  repositories.HistoryRepository
	bulkRepo     repositories.BulkOperationsRepository
	cache        caching.CacheService
	chunkSize    int
	previewLimit int
}

func NewBulkService(
	db repositories.DB,
	productRepo repositories.ProductRepository,
	categoryRepo repositories.CategoryRepository,
	historyRepo repositories.HistoryRepository,
	bulkRepo repositories.BulkOperationsRepository,
	cache caching.CacheService,
	chunkSize int,
	previewLimit int,
) BulkService {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	if previewLimit <= 0 {
		previewLimit = 15
	}
	return &bulkService{
		db:           db,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		historyRepo:  historyRepo,
		bulkRepo:     bulkRepo,
		cache:        cache,
		chunkSize:    chunkSize,
		previewLimit: previewLimit,
	}
}

// CreatePreview parses and validates the CSV, classifies each valid row as
// a create or an update by SKU, and persists the whole validated set under
// a new batch id. Nothing is written to the catalog yet. Rows that fail
// validation are reported and excluded from the batch.
func (s *bulkService) CreatePreview(ctx context.Context, csvText string) (*models.BulkPreviewResult, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, rowErrors := csvio.Parse(csvText)

	categories, err := s.categoryRepo.ListActive(ctx)
	if err != nil {
		return nil, common.WrapStorage("load categories", err)
	}
	byID := make(map[int64]*models.Category, len(categories))
	byName := make(map[string]*models.Category)
	for _, c := range categories {
		byID[c.ID] = c
		// First match wins for duplicate names in different branches.
		key := strings.ToLower(c.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = c
		}
	}

	var previewRows []models.PreviewRow
	creates, updates := 0, 0
	seenSKUs := make(map[string]int)
	for _, row := range rows {
		preview, rowErr := s.validateRow(ctx, row, byID, byName, seenSKUs)
		if rowErr != nil {
			var ce *common.Error
			if errors.As(rowErr, &ce) && ce.Code != common.CodeStorage {
				rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %s", row.Line, ce.Message))
				continue
			}
			return nil, rowErr
		}
		previewRows = append(previewRows, *preview)
		if preview.Action == models.ActionUpdate {
			updates++
		} else {
			creates++
		}
	}

	op := &models.BulkOperation{
		BatchID:     uuid.NewString(),
		Type:        models.BulkTypeImport,
		Status:      models.BulkStatusPendingPreview,
		TotalItems:  len(previewRows),
		PreviewData: previewRows,
		Errors:      rowErrors,
		CreatedBy:   actor,
	}
	if err := s.bulkRepo.Create(ctx, op); err != nil {
		return nil, common.WrapStorage("save import preview", err)
	}

	shown := previewRows
	if len(shown) > s.previewLimit {
		shown = shown[:s.previewLimit]
	}
	return &models.BulkPreviewResult{
		BatchID:     op.BatchID,
		TotalRows:   len(previewRows),
		Creates:     creates,
		Updates:     updates,
		Errors:      rowErrors,
		PreviewRows: shown,
	}, nil
}

// validateRow converts one raw CSV row into a classified preview row.
// Business failures come back as *common.Error and turn into row errors;
// storage failures abort the preview.
func (s *bulkService) validateRow(
	ctx context.Context,
	row csvio.Row,
	byID map[int64]*models.Category,
	byName map[string]*models.Category,
	seenSKUs map[string]int,
) (*models.PreviewRow, error) {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return nil, common.NewError(common.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxProductNameLength {
		return nil, common.NewError(common.CodeValidation, "name exceeds %d characters", maxProductNameLength)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row.Price), 64)
	if err != nil {
		return nil, common.NewError(common.CodeValidation, "invalid price %q", row.Price)
	}
	if price < 0 {
		return nil, common.NewError(common.CodeValidation, "price cannot be negative")
	}

	var stock *int
	if raw := strings.TrimSpace(row.StockQuantity); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < -1 {
			return nil, common.NewError(common.CodeValidation, "invalid stock quantity %q", row.StockQuantity)
		}
		stock = &value
	}

	var category *models.Category
	switch {
	case strings.TrimSpace(row.CategoryID) != "":
		id, err := strconv.ParseInt(strings.TrimSpace(row.CategoryID), 10, 64)
		if err != nil {
			return nil, common.NewError(common.CodeValidation, "invalid category id %q", row.CategoryID)
		}
		category = byID[id]
		if category == nil {
			return nil, common.NewError(common.CodeNotFound, "category %d not found", id)
		}
	case strings.TrimSpace(row.CategoryName) != "":
		category = byName[strings.ToLower(strings.TrimSpace(row.CategoryName))]
		if category == nil {
			return nil, common.NewError(common.CodeNotFound, "category %q not found", strings.TrimSpace(row.CategoryName))
		}
	default:
		return nil, common.NewError(common.CodeValidation, "category is required")
	}

	preview := &models.PreviewRow{
		Line:          row.Line,
		Name:          name,
		Price:         price,
		SKU:           strings.TrimSpace(row.SKU),
		Description:   strings.TrimSpace(row.Description),
		StockQuantity: stock,
		CategoryID:    category.ID,
		Action:        models.ActionCreate,
	}
	if preview.SKU != "" {
		if utf8.RuneCountInString(preview.SKU) > maxSKULength {
			return nil, common.NewError(common.CodeValidation, "sku exceeds %d characters", maxSKULength)
		}
		key := strings.ToLower(preview.SKU)
		if firstLine, ok := seenSKUs[key]; ok {
			return nil, common.NewError(common.CodeDuplicateSKU, "sku %q already appears on row %d", preview.SKU, firstLine)
		}
		seenSKUs[key] = row.Line

		existing, err := s.productRepo.FindActiveBySKU(ctx, preview.SKU)
		if err != nil {
			return nil, common.WrapStorage("check sku", err)
		}
		if existing != nil {
			preview.Action = models.ActionUpdate
			preview.ExistingID = &existing.ID
		}
	}
	return preview, nil
}

// Commit applies a pending preview in chunks, each chunk in its own
// transaction. Row-level business failures are collected and skipped;
// an infrastructure failure voids the whole current chunk. A canceled
// context between chunks stops the commit and leaves the batch pending.
func (s *bulkService) Commit(ctx context.Context, batchID string, progress ProgressFunc) (*models.BulkCommitResult, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	op, err := s.bulkRepo.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, common.WrapStorage("load bulk operation", err)
	}
	if op == nil {
		return nil, common.NewError(common.CodeNotFound, "bulk operation %s not found", batchID)
	}
	if op.Status != models.BulkStatusPendingPreview {
		return nil, common.NewError(common.CodeStateConflict, "bulk operation %s is %s, only pending previews can be committed", batchID, op.Status)
	}

	total := len(op.PreviewData)
	successCount := 0
	var commitErrors []string

	for start := 0; start < total; start += s.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, common.WrapStorage("import interrupted", err)
		}
		end := start + s.chunkSize
		if end > total {
			end = total
		}
		chunk := op.PreviewData[start:end]

		chunkSuccess, chunkErrors, err := s.commitChunk(ctx, chunk, batchID, actor)
		if err != nil {
			// The chunk's transaction rolled back; none of its rows landed.
			log.Printf("import chunk %d-%d of batch %s: %v", start, end, batchID, err)
			for _, row := range chunk {
				commitErrors = append(commitErrors, fmt.Sprintf("Row %d: not imported (%v)", row.Line, err))
			}
		} else {
			successCount += chunkSuccess
			commitErrors = append(commitErrors, chunkErrors...)
		}

		if progress != nil {
			reportProgress(progress, models.BulkProgress{
				Processed:    end,
				Total:        total,
				SuccessCount: successCount,
				ErrorCount:   len(commitErrors),
			})
		}
	}

	// Preview and commit errors are persisted together, so the stored
	// count covers the combined slice.
	allErrors := append(append([]string{}, op.Errors...), commitErrors...)
	if err := s.bulkRepo.Finalize(ctx, batchID, models.BulkStatusCommitted, successCount, len(allErrors), allErrors); err != nil {
		return nil, common.WrapStorage("finalize bulk operation", err)
	}

	s.invalidateCaches(ctx)
	return &models.BulkCommitResult{
		BatchID:      batchID,
		TotalItems:   total,
		SuccessCount: successCount,
		ErrorCount:   len(commitErrors),
		Errors:       commitErrors,
	}, nil
}

func (s *bulkService) commitChunk(ctx context.Context, chunk []models.PreviewRow, batchID, actor string) (int, []string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback(ctx)

	productRepo := s.productRepo.WithTx(tx)
	categoryRepo := s.categoryRepo.WithTx(tx)
	historyRepo := s.historyRepo.WithTx(tx)

	successCount := 0
	var rowErrors []string
	for i := range chunk {
		row := &chunk[i]
		var applyErr error
		if row.Action == models.ActionUpdate && row.ExistingID != nil {
			applyErr = s.applyUpdate(ctx, productRepo, categoryRepo, historyRepo, row, batchID, actor)
		} else {
			applyErr = s.applyCreate(ctx, productRepo, categoryRepo, historyRepo, row, batchID, actor)
		}
		if applyErr != nil {
			var ce *common.Error
			if errors.As(applyErr, &ce) && ce.Code != common.CodeStorage {
				rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %s", row.Line, ce.Message))
				continue
			}
			return 0, nil, applyErr
		}
		successCount++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, nil, err
	}
	return successCount, rowErrors, nil
}

// applyCreate re-checks the leaf and SKU constraints at commit time; the
// catalog may have changed since the preview was taken.
func (s *bulkService) applyCreate(
	ctx context.Context,
	productRepo repositories.ProductRepository,
	categoryRepo repositories.CategoryRepository,
	historyRepo repositories.HistoryRepository,
	row *models.PreviewRow,
	batchID, actor string,
) error {
	if err := requireLeaf(ctx, categoryRepo, row.CategoryID); err != nil {
		return err
	}
	if row.SKU != "" {
		existing, err := productRepo.FindActiveBySKU(ctx, row.SKU)
		if err != nil {
			return common.WrapStorage("check sku", err)
		}
		if existing != nil {
			return common.NewError(common.CodeDuplicateSKU, "sku %q is already in use by product %d", row.SKU, existing.ID)
		}
	}
	sortOrder, err := productRepo.NextSortOrder(ctx, row.CategoryID)
	if err != nil {
		return common.WrapStorage("compute sort order", err)
	}

	stock := -1
	if row.StockQuantity != nil {
		stock = *row.StockQuantity
	}
	product := &models.Product{
		Name:          row.Name,
		Price:         row.Price,
		CategoryID:    row.CategoryID,
		StockQuantity: stock,
		Status:        models.StatusActive,
		SortOrder:     sortOrder,
		CreatedBy:     actor,
	}
	if row.SKU != "" {
		sku := row.SKU
		product.SKU = &sku
	}
	if row.Description != "" {
		description := row.Description
		product.Description = &description
	}
	if err := productRepo.Create(ctx, product); err != nil {
		return common.WrapStorage("create product", err)
	}
	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   product.ID,
		Action:     models.ActionCreate,
		NewData:    snapshotJSON(product),
		ChangedBy:  actor,
		BatchID:    &batchID,
	}
	if err := historyRepo.Insert(ctx, entry); err != nil {
		return common.WrapStorage("record product creation", err)
	}
	return nil
}

func (s *bulkService) applyUpdate(
	ctx context.Context,
	productRepo repositories.ProductRepository,
	categoryRepo repositories.CategoryRepository,
	historyRepo repositories.HistoryRepository,
	row *models.PreviewRow,
	batchID, actor string,
) error {
	product, err := productRepo.GetByID(ctx, *row.ExistingID)
	if err != nil {
		return common.WrapStorage("load product", err)
	}
	if product == nil {
		return common.NewError(common.CodeNotFound, "product %d no longer exists", *row.ExistingID)
	}
	if product.Status == models.StatusArchived {
		return common.NewError(common.CodeArchived, "product %d was archived since the preview", product.ID)
	}

	oldData := snapshotJSON(product)

	product.Name = row.Name
	product.Price = row.Price
	if row.Description != "" {
		description := row.Description
		product.Description = &description
	}
	if row.StockQuantity != nil {
		product.StockQuantity = *row.StockQuantity
	}
	if product.CategoryID != row.CategoryID {
		if err := requireLeaf(ctx, categoryRepo, row.CategoryID); err != nil {
			return err
		}
		product.CategoryID = row.CategoryID
	}

	if err := productRepo.Update(ctx, product); err != nil {
		return common.WrapStorage("update product", err)
	}
	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   product.ID,
		Action:     models.ActionUpdate,
		OldData:    oldData,
		NewData:    snapshotJSON(product),
		ChangedBy:  actor,
		BatchID:    &batchID,
	}
	if err := historyRepo.Insert(ctx, entry); err != nil {
		return common.WrapStorage("record product update", err)
	}
	return nil
}

func (s *bulkService) GetOperation(ctx context.Context, batchID string) (*models.BulkOperation, error) {
	op, err := s.bulkRepo.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, common.WrapStorage("load bulk operation", err)
	}
	if op == nil {
		return nil, common.NewError(common.CodeNotFound, "bulk operation %s not found", batchID)
	}
	return op, nil
}

// NukeAllProducts archives every active product in a single transaction
// and records the whole sweep as one already-committed batch, so it can be
// reverted like an import.
func (s *bulkService) NukeAllProducts(ctx context.Context) (*models.BulkCommitResult, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListActive(ctx)
	if err != nil {
		return nil, common.WrapStorage("list products", err)
	}

	batchID := uuid.NewString()
	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	productRepo := s.productRepo.WithTx(tx)
	historyRepo := s.historyRepo.WithTx(tx)
	for _, product := range products {
		oldData := snapshotJSON(product)
		if err := productRepo.SetStatus(ctx, product.ID, models.StatusArchived); err != nil {
			return nil, common.WrapStorage("archive product", err)
		}
		product.Status = models.StatusArchived
		entry := &models.HistoryEntry{
			EntityType: models.EntityProduct,
			EntityID:   product.ID,
			Action:     models.ActionDelete,
			OldData:    oldData,
			NewData:    snapshotJSON(product),
			ChangedBy:  actor,
			BatchID:    &batchID,
		}
		if err := historyRepo.Insert(ctx, entry); err != nil {
			return nil, common.WrapStorage("record product archive", err)
		}
	}

	op := &models.BulkOperation{
		BatchID:      batchID,
		Type:         models.BulkTypeNuke,
		Status:       models.BulkStatusCommitted,
		TotalItems:   len(products),
		SuccessCount: len(products),
		CreatedBy:    actor,
		CommittedAt:  &now,
	}
	if err := s.bulkRepo.WithTx(tx).Create(ctx, op); err != nil {
		return nil, common.WrapStorage("record bulk operation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	for _, product := range products {
		if err := s.cache.DeleteProduct(ctx, product.ID); err != nil {
			log.Printf("product cache invalidation: %v", err)
		}
	}
	s.invalidateCaches(ctx)
	return &models.BulkCommitResult{
		BatchID:      batchID,
		TotalItems:   len(products),
		SuccessCount: len(products),
	}, nil
}

func requireLeaf(ctx context.Context, categoryRepo repositories.CategoryRepository, categoryID int64) error {
	category, err := categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return common.WrapStorage("load category", err)
	}
	if category == nil {
		return common.NewError(common.CodeNotFound, "category %d not found", categoryID)
	}
	if category.Status != models.StatusActive {
		return common.NewError(common.CodeArchived, "category %d is archived", categoryID)
	}
	children, err := categoryRepo.CountActiveChildren(ctx, categoryID)
	if err != nil {
		return common.WrapStorage("count subcategories", err)
	}
	if children > 0 {
		return common.NewError(common.CodeNotLeaf, "category %d has subcategories", categoryID)
	}
	return nil
}

func reportProgress(progress ProgressFunc, update models.BulkProgress) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("progress sink panic: %v", r)
		}
	}()
	progress(update)
}

func (s *bulkService) invalidateCaches(ctx context.Context) {
	if err := s.cache.InvalidateCategoryTree(ctx); err != nil {
		log.Printf("category tree cache invalidation: %v", err)
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		log.Printf("stats cache invalidation: %v", err)
	}
}
