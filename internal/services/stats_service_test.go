package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"catadmin/internal/models"
)

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context, bucket string) error {
	return m.Called(ctx, bucket).Error(0)
}

func (m *MockMinioService) UploadObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	return m.Called(ctx, bucket, objectName, data, contentType).Error(0)
}

func (m *MockMinioService) GetPresignedURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucket, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) DeleteObject(ctx context.Context, bucket, objectName string) error {
	return m.Called(ctx, bucket, objectName).Error(0)
}

type StatsServiceTestSuite struct {
	suite.Suite
	categoryRepo *MockCategoryRepository
	productRepo  *MockProductRepository
	historyRepo  *MockHistoryRepository
	cache        *fakeCache
	minio        *MockMinioService
	service      StatsService
	ctx          context.Context
}

func (s *StatsServiceTestSuite) SetupTest() {
	s.categoryRepo = new(MockCategoryRepository)
	s.productRepo = new(MockProductRepository)
	s.historyRepo = new(MockHistoryRepository)
	s.cache = newFakeCache()
	s.minio = new(MockMinioService)
	s.service = NewStatsService(s.categoryRepo, s.productRepo, s.historyRepo, s.cache, s.minio, 5*time.Minute)
	s.ctx = context.Background()
}

func (s *StatsServiceTestSuite) TestGetStatsAggregatesCounters() {
	s.categoryRepo.On("CountActive", mock.Anything).Return(4, nil)
	s.productRepo.On("CountByStatus", mock.Anything, models.StatusActive).Return(12, nil)
	s.productRepo.On("CountByStatus", mock.Anything, models.StatusArchived).Return(3, nil)
	s.historyRepo.On("Count", mock.Anything).Return(40, nil)

	stats, err := s.service.GetStats(s.ctx)

	s.NoError(err)
	s.Equal(4, stats.ActiveCategories)
	s.Equal(12, stats.ActiveProducts)
	s.Equal(3, stats.ArchivedProducts)
	s.Equal(40, stats.HistoryEntries)
	s.Equal(stats, s.cache.stats)
}

func (s *StatsServiceTestSuite) TestGetStatsServesFromCache() {
	s.cache.stats = &models.Stats{ActiveProducts: 99}

	stats, err := s.service.GetStats(s.ctx)

	s.NoError(err)
	s.Equal(99, stats.ActiveProducts)
	s.categoryRepo.AssertNotCalled(s.T(), "CountActive", mock.Anything)
}

func (s *StatsServiceTestSuite) TestExportProductsCSV() {
	sku := "WID-1"
	s.productRepo.On("ListForExport", mock.Anything, (*int64)(nil)).
		Return([]*models.ProductWithCategory{
			{Product: models.Product{Name: "Widget", Price: 9.9, SKU: &sku, StockQuantity: -1},
				CategoryName: "Gadgets"},
		}, nil)

	csv, err := s.service.ExportProductsCSV(s.ctx, nil)

	s.NoError(err)
	s.Contains(csv, "sku,name,description,price,category_name,stock_quantity")
	s.Contains(csv, "WID-1,Widget,,9.90,Gadgets,-1")
}

func (s *StatsServiceTestSuite) TestExportProductsArchiveReturnsPresignedURL() {
	s.productRepo.On("ListForExport", mock.Anything, (*int64)(nil)).
		Return([]*models.ProductWithCategory{}, nil)
	s.minio.On("EnsureBucketExists", mock.Anything, exportBucket).Return(nil)
	s.minio.On("UploadObject", mock.Anything, exportBucket, mock.AnythingOfType("string"),
		mock.Anything, "text/csv").Return(nil)
	s.minio.On("GetPresignedURL", mock.Anything, exportBucket, mock.AnythingOfType("string"),
		exportURLExpiry).Return("https://minio.local/exports/products.csv", nil)

	url, err := s.service.ExportProductsArchive(s.ctx, nil)

	s.NoError(err)
	s.Equal("https://minio.local/exports/products.csv", url)
}

func TestStatsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StatsServiceTestSuite))
}
