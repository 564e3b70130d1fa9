package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"catadmin/internal/models"
	"catadmin/internal/repositories"
)

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) WithTx(tx repositories.DB) repositories.CategoryRepository {
	return m
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryRepository) SetStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockCategoryRepository) ListRoots(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.([]*models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCategoryRepository) ListChildren(ctx context.Context, parentID int64, includeArchived bool) ([]*models.Category, error) {
	args := m.Called(ctx, parentID, includeArchived)
	if c := args.Get(0); c != nil {
		return c.([]*models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCategoryRepository) ListActive(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.([]*models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCategoryRepository) CountActiveChildren(ctx context.Context, parentID int64) (int, error) {
	args := m.Called(ctx, parentID)
	return args.Int(0), args.Error(1)
}

func (m *MockCategoryRepository) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockCategoryRepository) ActiveSiblingExists(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error) {
	args := m.Called(ctx, name, parentID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) NextSortOrder(ctx context.Context, parentID *int64) (int, error) {
	args := m.Called(ctx, parentID)
	return args.Int(0), args.Error(1)
}

func (m *MockCategoryRepository) Tree(ctx context.Context, includeArchived bool) ([]*models.CategoryNode, error) {
	args := m.Called(ctx, includeArchived)
	if c := args.Get(0); c != nil {
		return c.([]*models.CategoryNode), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) WithTx(tx repositories.DB) repositories.ProductRepository {
	return m
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) GetWithCategory(ctx context.Context, id int64) (*models.ProductWithCategory, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.ProductWithCategory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) SetStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockProductRepository) FindActiveBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if p := args.Get(0); p != nil {
		return p.(*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) NextSortOrder(ctx context.Context, categoryID int64) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) ListActiveByCategory(ctx context.Context, categoryID int64) ([]*models.Product, error) {
	args := m.Called(ctx, categoryID)
	if p := args.Get(0); p != nil {
		return p.([]*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) ListActive(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]*models.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) CountActiveByCategory(ctx context.Context, categoryID int64) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) Search(ctx context.Context, filter *models.ProductSearchFilter, limit, offset int) ([]*models.ProductWithCategory, error) {
	args := m.Called(ctx, filter, limit, offset)
	if p := args.Get(0); p != nil {
		return p.([]*models.ProductWithCategory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) CountSearch(ctx context.Context, filter *models.ProductSearchFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) ListForExport(ctx context.Context, categoryID *int64) ([]*models.ProductWithCategory, error) {
	args := m.Called(ctx, categoryID)
	if p := args.Get(0); p != nil {
		return p.([]*models.ProductWithCategory), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) WithTx(tx repositories.DB) repositories.HistoryRepository {
	return m
}

func (m *MockHistoryRepository) Insert(ctx context.Context, entry *models.HistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockHistoryRepository) GetByID(ctx context.Context, id int64) (*models.HistoryEntry, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*models.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHistoryRepository) Recent(ctx context.Context, limit int, entityType string) ([]*models.HistoryEntry, error) {
	args := m.Called(ctx, limit, entityType)
	if e := args.Get(0); e != nil {
		return e.([]*models.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHistoryRepository) ByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]*models.HistoryEntry, error) {
	args := m.Called(ctx, entityType, entityID, limit)
	if e := args.Get(0); e != nil {
		return e.([]*models.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHistoryRepository) ActiveByBatch(ctx context.Context, batchID string) ([]*models.HistoryEntry, error) {
	args := m.Called(ctx, batchID)
	if e := args.Get(0); e != nil {
		return e.([]*models.HistoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHistoryRepository) MarkReverted(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockHistoryRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockBulkOperationsRepository struct {
	mock.Mock
}

func (m *MockBulkOperationsRepository) WithTx(tx repositories.DB) repositories.BulkOperationsRepository {
	return m
}

func (m *MockBulkOperationsRepository) Create(ctx context.Context, op *models.BulkOperation) error {
	return m.Called(ctx, op).Error(0)
}

func (m *MockBulkOperationsRepository) GetByBatchID(ctx context.Context, batchID string) (*models.BulkOperation, error) {
	args := m.Called(ctx, batchID)
	if op := args.Get(0); op != nil {
		return op.(*models.BulkOperation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBulkOperationsRepository) List(ctx context.Context, limit int) ([]*models.BulkOperation, error) {
	args := m.Called(ctx, limit)
	if ops := args.Get(0); ops != nil {
		return ops.([]*models.BulkOperation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBulkOperationsRepository) Finalize(ctx context.Context, batchID, status string, successCount, errorCount int, errs []string) error {
	return m.Called(ctx, batchID, status, successCount, errorCount, errs).Error(0)
}

func (m *MockBulkOperationsRepository) SetStatus(ctx context.Context, batchID, status string) error {
	return m.Called(ctx, batchID, status).Error(0)
}

// fakeCache is an in-memory stand-in for the redis layer. Zero value acts
// as an always-miss cache.
type fakeCache struct {
	tree     []*models.CategoryNode
	products map[int64]*models.Product
	stats    *models.Stats

	treeInvalidations  int
	statsInvalidations int
	productDeletions   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{products: make(map[int64]*models.Product)}
}

func (c *fakeCache) GetCategoryTree(ctx context.Context) ([]*models.CategoryNode, error) {
	return c.tree, nil
}

func (c *fakeCache) SetCategoryTree(ctx context.Context, tree []*models.CategoryNode, ttl time.Duration) error {
	c.tree = tree
	return nil
}

func (c *fakeCache) InvalidateCategoryTree(ctx context.Context) error {
	c.tree = nil
	c.treeInvalidations++
	return nil
}

func (c *fakeCache) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return c.products[id], nil
}

func (c *fakeCache) SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	c.products[product.ID] = product
	return nil
}

func (c *fakeCache) DeleteProduct(ctx context.Context, id int64) error {
	delete(c.products, id)
	c.productDeletions++
	return nil
}

func (c *fakeCache) GetStats(ctx context.Context) (*models.Stats, error) {
	return c.stats, nil
}

func (c *fakeCache) SetStats(ctx context.Context, stats *models.Stats, ttl time.Duration) error {
	c.stats = stats
	return nil
}

func (c *fakeCache) InvalidateStats(ctx context.Context) error {
	c.stats = nil
	c.statsInvalidations++
	return nil
}
