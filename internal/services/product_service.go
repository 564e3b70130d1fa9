package services

import (
	"context"
	"log"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"catadmin/internal/caching"
	"catadmin/internal/common"
	"catadmin/internal/models"
	"catadmin/internal/repositories"
)

const (
	maxProductNameLength = 200
	maxSKULength         = 50

	defaultPageSize = 20
	maxPageSize     = 100

	productCacheTTL = 15 * time.Minute
)

// AddProductRequest carries the fields a client may set on creation.
// StockQuantity defaults to -1 (unlimited) when omitted.
type AddProductRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	Price         float64 `json:"price"`
	CategoryID    int64   `json:"category_id"`
	SKU           *string `json:"sku"`
	StockQuantity *int    `json:"stock_quantity"`
	ImageURL      *string `json:"image_url"`
}

// UpdateProductRequest updates only the fields that are present. An empty
// SKU string clears the SKU.
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	CategoryID    *int64   `json:"category_id"`
	SKU           *string  `json:"sku"`
	StockQuantity *int     `json:"stock_quantity"`
	ImageURL      *string  `json:"image_url"`
	Status        *string  `json:"status"`
}

type ProductService interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetWithCategory(ctx context.Context, id int64) (*models.ProductWithCategory, error)
	Search(ctx context.Context, filter *models.ProductSearchFilter) (*models.ProductSearchResult, error)
	Add(ctx context.Context, req *AddProductRequest) (*models.Product, error)
	Update(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*models.Product, error)
}

type productService struct {
	db           repositories.DB
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	historyRepo  repositories.HistoryRepository
	cache        caching.CacheService
}

func NewProductService(
	db repositories.DB,
	productRepo repositories.ProductRepository,
	categoryRepo repositories.CategoryRepository,
	historyRepo repositories.HistoryRepository,
	cache caching.CacheService,
) ProductService {
	return &productService{
		db:           db,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		historyRepo:  historyRepo,
		cache:        cache,
	}
}

func (s *productService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	cached, err := s.cache.GetProduct(ctx, id)
	if err != nil {
		log.Printf("product cache read: %v", err)
	} else if cached != nil {
		return cached, nil
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("load product", err)
	}
	if product == nil {
		return nil, common.NewError(common.CodeNotFound, "product %d not found", id)
	}
	if err := s.cache.SetProduct(ctx, product, productCacheTTL); err != nil {
		log.Printf("product cache write: %v", err)
	}
	return product, nil
}

func (s *productService) GetWithCategory(ctx context.Context, id int64) (*models.ProductWithCategory, error) {
	product, err := s.productRepo.GetWithCategory(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("load product", err)
	}
	if product == nil {
		return nil, common.NewError(common.CodeNotFound, "product %d not found", id)
	}
	return product, nil
}

// Search runs a paginated product query. The page is clamped into the valid
// range, so asking for page 99 of 3 returns the last page instead of
// nothing.
func (s *productService) Search(ctx context.Context, filter *models.ProductSearchFilter) (*models.ProductSearchResult, error) {
	if filter == nil {
		filter = &models.ProductSearchFilter{}
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, err := s.productRepo.CountSearch(ctx, filter)
	if err != nil {
		return nil, common.WrapStorage("count products", err)
	}
	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	products, err := s.productRepo.Search(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, common.WrapStorage("search products", err)
	}
	return &models.ProductSearchResult{
		Products:   products,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		PageSize:   pageSize,
	}, nil
}

func (s *productService) Add(ctx context.Context, req *AddProductRequest) (*models.Product, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	name, err := validateProductName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Price < 0 {
		return nil, common.NewError(common.CodeValidation, "price cannot be negative")
	}
	stock := -1
	if req.StockQuantity != nil {
		if *req.StockQuantity < -1 {
			return nil, common.NewError(common.CodeValidation, "stock quantity must be -1 (unlimited) or non-negative")
		}
		stock = *req.StockQuantity
	}
	if err := s.requireLeafCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	sku, err := s.normalizeSKU(ctx, req.SKU, 0)
	if err != nil {
		return nil, err
	}
	sortOrder, err := s.productRepo.NextSortOrder(ctx, req.CategoryID)
	if err != nil {
		return nil, common.WrapStorage("compute sort order", err)
	}

	product := &models.Product{
		Name:          name,
		Description:   req.Description,
		Price:         req.Price,
		CategoryID:    req.CategoryID,
		SKU:           sku,
		StockQuantity: stock,
		ImageURL:      req.ImageURL,
		Status:        models.StatusActive,
		SortOrder:     sortOrder,
		CreatedBy:     actor,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.productRepo.WithTx(tx).Create(ctx, product); err != nil {
		return nil, common.WrapStorage("create product", err)
	}
	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   product.ID,
		Action:     models.ActionCreate,
		NewData:    snapshotJSON(product),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record product creation", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx, product.ID)
	return product, nil
}

func (s *productService) Update(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("load product", err)
	}
	if product == nil {
		return nil, common.NewError(common.CodeNotFound, "product %d not found", id)
	}
	// Reactivation goes through Restore, which checks the category.
	if product.Status == models.StatusArchived {
		return nil, common.NewError(common.CodeArchived, "product %d is archived; restore it before editing", id)
	}

	oldData := snapshotJSON(product)

	if req.Name != nil {
		name, err := validateProductName(*req.Name)
		if err != nil {
			return nil, err
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, common.NewError(common.CodeValidation, "price cannot be negative")
		}
		product.Price = *req.Price
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < -1 {
			return nil, common.NewError(common.CodeValidation, "stock quantity must be -1 (unlimited) or non-negative")
		}
		product.StockQuantity = *req.StockQuantity
	}
	if req.ImageURL != nil {
		product.ImageURL = req.ImageURL
	}
	if req.CategoryID != nil && *req.CategoryID != product.CategoryID {
		if err := s.requireLeafCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = *req.CategoryID
	}
	if req.SKU != nil {
		sku, err := s.normalizeSKU(ctx, req.SKU, id)
		if err != nil {
			return nil, err
		}
		product.SKU = sku
	}
	if req.Status != nil {
		if *req.Status != models.StatusActive && *req.Status != models.StatusArchived {
			return nil, common.NewError(common.CodeValidation, "status must be active or archived")
		}
		product.Status = *req.Status
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.productRepo.WithTx(tx).Update(ctx, product); err != nil {
		return nil, common.WrapStorage("update product", err)
	}
	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   id,
		Action:     models.ActionUpdate,
		OldData:    oldData,
		NewData:    snapshotJSON(product),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record product update", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx, id)
	return product, nil
}

// Delete soft-deletes one product.
func (s *productService) Delete(ctx context.Context, id int64) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return common.WrapStorage("load product", err)
	}
	if product == nil {
		return common.NewError(common.CodeNotFound, "product %d not found", id)
	}
	if product.Status == models.StatusArchived {
		return common.NewError(common.CodeArchived, "product %d is already archived", id)
	}

	oldData := snapshotJSON(product)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.productRepo.WithTx(tx).SetStatus(ctx, id, models.StatusArchived); err != nil {
		return common.WrapStorage("archive product", err)
	}
	product.Status = models.StatusArchived
	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   id,
		Action:     models.ActionDelete,
		OldData:    oldData,
		NewData:    snapshotJSON(product),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return common.WrapStorage("record product archive", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx, id)
	return nil
}

// Restore reactivates an archived product. The product's category must be
// active first so the product does not reappear under a hidden branch.
func (s *productService) Restore(ctx context.Context, id int64) (*models.Product, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, common.WrapStorage("load product", err)
	}
	if product == nil {
		return nil, common.NewError(common.CodeNotFound, "product %d not found", id)
	}
	if product.Status == models.StatusActive {
		return nil, common.NewError(common.CodeStateConflict, "product %d is already active", id)
	}
	category, err := s.categoryRepo.GetByID(ctx, product.CategoryID)
	if err != nil {
		return nil, common.WrapStorage("load category", err)
	}
	if category == nil || category.Status != models.StatusActive {
		return nil, common.NewError(common.CodeArchived, "category %d is archived; restore the category first", product.CategoryID)
	}

	oldData := snapshotJSON(product)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, common.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.productRepo.WithTx(tx).SetStatus(ctx, id, models.StatusActive); err != nil {
		return nil, common.WrapStorage("restore product", err)
	}
	product.Status = models.StatusActive
	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   id,
		Action:     models.ActionRestore,
		OldData:    oldData,
		NewData:    snapshotJSON(product),
		ChangedBy:  actor,
	}
	if err := s.historyRepo.WithTx(tx).Insert(ctx, entry); err != nil {
		return nil, common.WrapStorage("record product restore", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapStorage("commit transaction", err)
	}

	s.invalidateCaches(ctx, id)
	return product, nil
}

// requireLeafCategory verifies the category exists, is active and holds no
// active subcategories. Products live on leaves only.
func (s *productService) requireLeafCategory(ctx context.Context, categoryID int64) error {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return common.WrapStorage("load category", err)
	}
	if category == nil {
		return common.NewError(common.CodeNotFound, "category %d not found", categoryID)
	}
	if category.Status != models.StatusActive {
		return common.NewError(common.CodeArchived, "category %d is archived", categoryID)
	}
	children, err := s.categoryRepo.CountActiveChildren(ctx, categoryID)
	if err != nil {
		return common.WrapStorage("count subcategories", err)
	}
	if children > 0 {
		return common.NewError(common.CodeNotLeaf, "category %d has subcategories; products can only go on leaf categories", categoryID)
	}
	return nil
}

// normalizeSKU trims and validates a SKU and checks uniqueness among
// non-archived products. An empty string clears the SKU. excludeID skips
// the product being updated.
func (s *productService) normalizeSKU(ctx context.Context, sku *string, excludeID int64) (*string, error) {
	if sku == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*sku)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxSKULength {
		return nil, common.NewError(common.CodeValidation, "sku exceeds %d characters", maxSKULength)
	}
	existing, err := s.productRepo.FindActiveBySKU(ctx, trimmed)
	if err != nil {
		return nil, common.WrapStorage("check sku", err)
	}
	if existing != nil && existing.ID != excludeID {
		return nil, common.NewError(common.CodeDuplicateSKU, "sku %q is already in use by product %d", trimmed, existing.ID)
	}
	return &trimmed, nil
}

func (s *productService) invalidateCaches(ctx context.Context, productID int64) {
	if err := s.cache.DeleteProduct(ctx, productID); err != nil {
		log.Printf("product cache invalidation: %v", err)
	}
	if err := s.cache.InvalidateCategoryTree(ctx); err != nil {
		log.Printf("category tree cache invalidation: %v", err)
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		log.Printf("stats cache invalidation: %v", err)
	}
}

func validateProductName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.NewError(common.CodeValidation, "product name is required")
	}
	if utf8.RuneCountInString(name) > maxProductNameLength {
		return "", common.NewError(common.CodeValidation, "product name exceeds %d characters", maxProductNameLength)
	}
	return name, nil
}
