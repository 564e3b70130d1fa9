package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"catadmin/internal/caching"
	"catadmin/internal/common"
	"catadmin/internal/csvio"
	"catadmin/internal/models"
	"catadmin/internal/repositories"
)

const (
	exportBucket     = "catalog-exports"
	exportURLExpiry  = time.Hour
	exportObjectTime = "20060102-150405"
)

type StatsService interface {
	GetStats(ctx context.Context) (*models.Stats, error)
	ExportProductsCSV(ctx context.Context, categoryID *int64) (string, error)
	ExportProductsArchive(ctx context.Context, categoryID *int64) (string, error)
}

type statsService struct {
	categoryRepo repositories.CategoryRepository
	productRepo  repositories.ProductRepository
	historyRepo  repositories.HistoryRepository
	cache        caching.CacheService
	minio        MinioService
	statsTTL     time.Duration
}

func NewStatsService(
	categoryRepo repositories.CategoryRepository,
	productRepo repositories.ProductRepository,
	historyRepo repositories.HistoryRepository,
	cache caching.CacheService,
	minio MinioService,
	statsTTL time.Duration,
) StatsService {
	return &statsService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		historyRepo:  historyRepo,
		cache:        cache,
		minio:        minio,
		statsTTL:     statsTTL,
	}
}

func (s *statsService) GetStats(ctx context.Context) (*models.Stats, error) {
	cached, err := s.cache.GetStats(ctx)
	if err != nil {
		log.Printf("stats cache read: %v", err)
	} else if cached != nil {
		return cached, nil
	}

	activeCategories, err := s.categoryRepo.CountActive(ctx)
	if err != nil {
		return nil, common.WrapStorage("count categories", err)
	}
	activeProducts, err := s.productRepo.CountByStatus(ctx, models.StatusActive)
	if err != nil {
		return nil, common.WrapStorage("count active products", err)
	}
	archivedProducts, err := s.productRepo.CountByStatus(ctx, models.StatusArchived)
	if err != nil {
		return nil, common.WrapStorage("count archived products", err)
	}
	historyEntries, err := s.historyRepo.Count(ctx)
	if err != nil {
		return nil, common.WrapStorage("count history entries", err)
	}

	stats := &models.Stats{
		ActiveCategories: activeCategories,
		ActiveProducts:   activeProducts,
		ArchivedProducts: archivedProducts,
		HistoryEntries:   historyEntries,
	}
	if err := s.cache.SetStats(ctx, stats, s.statsTTL); err != nil {
		log.Printf("stats cache write: %v", err)
	}
	return stats, nil
}

// ExportProductsCSV renders the active products (optionally one category)
// in the import-compatible CSV format.
func (s *statsService) ExportProductsCSV(ctx context.Context, categoryID *int64) (string, error) {
	products, err := s.productRepo.ListForExport(ctx, categoryID)
	if err != nil {
		return "", common.WrapStorage("load products for export", err)
	}
	return csvio.WriteProducts(products), nil
}

// ExportProductsArchive uploads the export to the object store and returns
// a presigned download link.
func (s *statsService) ExportProductsArchive(ctx context.Context, categoryID *int64) (string, error) {
	csv, err := s.ExportProductsCSV(ctx, categoryID)
	if err != nil {
		return "", err
	}
	if err := s.minio.EnsureBucketExists(ctx, exportBucket); err != nil {
		return "", common.WrapStorage("prepare export bucket", err)
	}
	objectName := fmt.Sprintf("products-%s.csv", time.Now().UTC().Format(exportObjectTime))
	if err := s.minio.UploadObject(ctx, exportBucket, objectName, []byte(csv), "text/csv"); err != nil {
		return "", common.WrapStorage("upload export", err)
	}
	url, err := s.minio.GetPresignedURL(ctx, exportBucket, objectName, exportURLExpiry)
	if err != nil {
		return "", common.WrapStorage("presign export", err)
	}
	return url, nil
}
