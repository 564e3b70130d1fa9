package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"catadmin/internal/caching"
	"catadmin/internal/common"
	"catadmin/internal/models"
	"catadmin/internal/repositories"
)

const maxCategoryNameLength = 100

type CategoryService interface {
	GetTree(ctx context.Context, includeArchived bool) ([]*models.CategoryNode, error)
	GetRootCategories(ctx context.Context) ([]*models.Category, error)
	GetSubcategories(ctx context.Context, parentID int64, includeArchived bool) ([]*models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	IsLeaf(ctx context.Context, id int64) (bool, error)
	Add(ctx context.Context, name string, parentID *int64) (*models.Category, error)
	Rename(ctx context.Context, id int64, newName string) (*models.Category, error)
	DeleteImpact(ctx context.Context, id int64) (*models.CategoryDeleteImpact, error)
	Delete(ctx context.Context, id int64) (string, error)
	Restore(ctx context.Context, id int64) (*models.Category, error)
}

type categoryService struct {
	db           repositories.DB
	categoryRepo repositories.CategoryRepository
	productRepo  repositories.ProductRepository
	historyRepo  repositories.HistoryRepository
	cache        caching.CacheService
	treeTTL      time.Duration
}

func NewCategoryService(
	db repositories.DB,
	categoryRepo repositories.CategoryRepository,
	productRepo repositories.ProductRepository,
	historyRepo repositories.HistoryRepository,
	cache caching.CacheService,
	treeTTL time.Duration,
) CategoryService {
	return &categoryService{
		db:           db,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		historyRepo:  historyRepo,
		cache:        cache,
		treeTTL:      treeTTL,
	}
}

// GetTree serves the active tree from cache when possible. Cache failures
// are logged and the database is used instead.
func (s *categoryService) GetTree(ctx context.Context, includeArchived bool) ([]*models.CategoryNode, error) {
	if !includeArchived {
		cached, err := s.cache.GetCategoryTree(ctx)
		if err != nil {
			log.Printf("category tree cache read: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	tree, err := s.categoryRepo.Tree(ctx, includeArchived)
	if err != nil {
		return nil, common.WrapStorage("load category tree", err)
	}
	if !includeArchived {
		if err := s.cache.SetCategoryTree(ctx, tree, s.treeTTL); err != nil {
			log.Printf("category tree cache write: %v", err)
		}
	}
	return tree, nil
}

func (s *categoryService) GetRootCategories(ctx context.Context) ([]*models.Category, error) {
	roots, err := s.categoryRepo.ListRoots(ctx)
	if err != nil {
		return nil, common.WrapStorage("list root categories", err)
	}
	return roots, nil
}

func (s *categoryService) GetSubcategories(ctx context.Context, parentID int64, includeArchived bool) ([]*models.Category, error) {
	children, err := s.categoryRepo.ListChildren(ctx, parentID, includeArchived)
	if err != nil {
		return nil, common.WrapStorage("list subcategories", err)
	}
	return children, nil
}

func (s *categoryService) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("load category", err)
	}
	if category == nil {
		return nil, common.NewError(common.CodeNotFound, "category %d not found", id)
	}
	return category, nil
}

// IsLeaf reports whether a category can hold products: it must be active
// and have no active subcategories.
func (s *categoryService) IsLeaf(ctx context.Context, id int64) (bool, error) {
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if category.Status != models.StatusActive {
		return false, nil
	}
	count, err := s.categoryRepo.CountActiveChildren(ctx, id)
	if err != nil {
		return false, common.WrapStorage("count subcategories", err)
	}
	return count == 0, nil
}

func (s *categoryService) Add(ctx context.Context, name string, parentID *int64) (*models.Category, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	name, err = validateCategoryName(name)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		parent, err := s.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.Status != models.StatusActive {
			return nil, common.NewError(common.CodeArchived, "parent category %d is archived", *parentID)
		}
	}
	exists, err := s.categoryRepo.ActiveSiblingExists(ctx, name, parentID, 0)
	if err != nil {
		return nil, common.WrapStorage("check category name", err)
	}
	if exists {
		return nil, common.NewError(common.CodeDuplicateName, "category %q already exists at this level", name)
	}
	sortOrder, err := s.categoryRepo.NextSortOrder(ctx, parentID)
	if err != nil {
		return nil, common.WrapStorage("compute sort order", err)
	}

	category := &models.Category{
		Name:      name,
		ParentID:  parentID,
		Status:    models.StatusActive,
		SortOrder: sortOrder,
		CreatedBy: actor,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.categoryRepo.WithTx(tx).Create(ctx, category); err != nil {
		return nil, common.WrapStorage("create category", err)
	}
	entry := &models.HistoryEntry{
		EntityType: models.EntityCategory,
		EntityID:   category.ID,
		Action:     models.ActionCreate,
		NewData:    snapshotJSON(category),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record category creation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx)
	return category, nil
}

// Rename changes a category's name in place. Archived categories may be
// renamed too; the duplicate check only looks at active siblings.
func (s *categoryService) Rename(ctx context.Context, id int64, newName string) (*models.Category, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	newName, err = validateCategoryName(newName)
	if err != nil {
		return nil, err
	}
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.categoryRepo.ActiveSiblingExists(ctx, newName, category.ParentID, id)
	if err != nil {
		return nil, common.WrapStorage("check category name", err)
	}
	if exists {
		return nil, common.NewError(common.CodeDuplicateName, "category %q already exists at this level", newName)
	}

	oldData := snapshotJSON(category)
	category.Name = newName

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.categoryRepo.WithTx(tx).Update(ctx, category); err != nil {
		return nil, common.WrapStorage("rename category", err)
	}
	entry := &models.HistoryEntry{
		EntityType: models.EntityCategory,
		EntityID:   id,
		Action:     models.ActionUpdate,
		OldData:    oldData,
		NewData:    snapshotJSON(category),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record category rename", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx)
	return category, nil
}

// DeleteImpact reports what a recursive delete would archive, for the
// confirmation dialog.
func (s *categoryService) DeleteImpact(ctx context.Context, id int64) (*models.CategoryDeleteImpact, error) {
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subcategories, err := s.categoryRepo.CountActiveChildren(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("count subcategories", err)
	}
	ownProducts, err := s.productRepo.CountActiveByCategory(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("count products", err)
	}
	total, err := s.countDescendantProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CategoryDeleteImpact{
		Category:              category,
		SubcategoryCount:      subcategories,
		ProductCount:          ownProducts,
		AllDescendantProducts: total,
	}, nil
}

func (s *categoryService) countDescendantProducts(ctx context.Context, id int64) (int, error) {
	count, err := s.productRepo.CountActiveByCategory(ctx, id)
	if err != nil {
		return 0, common.WrapStorage("count products", err)
	}
	children, err := s.categoryRepo.ListChildren(ctx, id, false)
	if err != nil {
		return 0, common.WrapStorage("list subcategories", err)
	}
	for _, child := range children {
		sub, err := s.countDescendantProducts(ctx, child.ID)
		if err != nil {
			return 0, err
		}
		count += sub
	}
	return count, nil
}

// Delete archives the category together with all its active descendants and
// their products in one transaction. Every archived entity gets a delete
// history entry tagged with a shared batch id, so the whole cascade can be
// reverted in one go. Returns the batch id.
func (s *categoryService) Delete(ctx context.Context, id int64) (string, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if category.Status != models.StatusActive {
		return "", common.NewError(common.CodeArchived, "category %d is already archived", id)
	}

	batchID := uuid.NewString()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	archived, err := s.archiveSubtree(ctx,
		s.categoryRepo.WithTx(tx), s.productRepo.WithTx(tx), s.historyRepo.WithTx(tx),
		category, batchID, actor)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", common.WrapStorage("commit transaction", err)
	}

	for _, productID := range archived {
		if err := s.cache.DeleteProduct(ctx, productID); err != nil {
			log.Printf("product cache invalidation: %v", err)
		}
	}
	s.invalidateCaches(ctx)
	return batchID, nil
}

// archiveSubtree archives post-order: a category's products first, then its
// subtrees, then the category itself. History ids therefore increase from
// leaves to root, and a reverse-id batch revert restores each category
// before the products that live under it.
func (s *categoryService) archiveSubtree(
	ctx context.Context,
	categoryRepo repositories.CategoryRepository,
	productRepo repositories.ProductRepository,
	historyRepo repositories.HistoryRepository,
	category *models.Category,
	batchID string,
	actor string,
) ([]int64, error) {
	var archivedProducts []int64

	products, err := productRepo.ListActiveByCategory(ctx, category.ID)
	if err != nil {
		return nil, common.WrapStorage("list products", err)
	}
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
		archivedProducts = append(archivedProducts, product.ID)
	}

	children, err := categoryRepo.ListChildren(ctx, category.ID, false)
	if err != nil {
		return nil, common.WrapStorage("list subcategories", err)
	}
	for _, child := range children {
		sub, err := s.archiveSubtree(ctx, categoryRepo, productRepo, historyRepo, child, batchID, actor)
		if err != nil {
			return nil, err
		}
		archivedProducts = append(archivedProducts, sub...)
	}

	oldData := snapshotJSON(category)
	if err := categoryRepo.SetStatus(ctx, category.ID, models.StatusArchived); err != nil {
		return nil, common.WrapStorage("archive category", err)
	}
	category.Status = models.StatusArchived
	entry := &models.HistoryEntry{
		EntityType: models.EntityCategory,
		EntityID:   category.ID,
		Action:     models.ActionDelete,
		OldData:    oldData,
		NewData:    snapshotJSON(category),
		ChangedBy:  actor,
		BatchID:    &batchID,
	}
	if err := historyRepo.Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record category archive", err)
	}
	return archivedProducts, nil
}

// Restore reactivates a single archived category. It does not touch
// descendants or products; the archived parent of a restored category stays
// archived, leaving the restored node parked until the parent is restored.
func (s *categoryService) Restore(ctx context.Context, id int64) (*models.Category, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.Status == models.StatusActive {
		return nil, common.NewError(common.CodeStateConflict, "category %d is already active", id)
	}

	oldData := snapshotJSON(category)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.categoryRepo.WithTx(tx).SetStatus(ctx, id, models.StatusActive); err != nil {
		return nil, common.WrapStorage("restore category", err)
	}
	category.Status = models.StatusActive
	entry := &models.HistoryEntry{
		EntityType: models.EntityCategory,
		EntityID:   id,
		Action:     models.ActionRestore,
		OldData:    oldData,
		NewData:    snapshotJSON(category),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record category restore", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx)
	return category, nil
}

func (s *categoryService) invalidateCaches(ctx context.Context) {
	if err := s.cache.InvalidateCategoryTree(ctx); err != nil {
		log.Printf("category tree cache invalidation: %v", err)
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		log.Printf("stats cache invalidation: %v", err)
	}
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.NewError(common.CodeValidation, "category name is required")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLength {
		return "", common.NewError(common.CodeValidation, "category name exceeds %d characters", maxCategoryNameLength)
	}
	return name, nil
}
