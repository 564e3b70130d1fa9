package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catadmin/internal/models"
)

const (
	treeKey       = "catadmin:tree"
	statsKey      = "catadmin:stats"
	productKeyFmt = "catadmin:product:%d"
)

// CacheService fronts redis for the hot read paths. A cache miss is
// (nil, nil); backend failures bubble up so callers can log and fall
// through to the database.
type CacheService interface {
	GetCategoryTree(ctx context.Context) ([]*models.CategoryNode, error)
	SetCategoryTree(ctx context.Context, tree []*models.CategoryNode, ttl time.Duration) error
	InvalidateCategoryTree(ctx context.Context) error

	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error
	DeleteProduct(ctx context.Context, id int64) error

	GetStats(ctx context.Context) (*models.Stats, error)
	SetStats(ctx context.Context, stats *models.Stats, ttl time.Duration) error
	InvalidateStats(ctx context.Context) error
}

type cacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) CacheService {
	return &cacheService{client: client}
}

func (c *cacheService) GetCategoryTree(ctx context.Context) ([]*models.CategoryNode, error) {
	data, err := c.client.Get(ctx, treeKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tree []*models.CategoryNode
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (c *cacheService) SetCategoryTree(ctx context.Context, tree []*models.CategoryNode, ttl time.Duration) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, treeKey, data, ttl).Err()
}

func (c *cacheService) InvalidateCategoryTree(ctx context.Context) error {
	return c.client.Del(ctx, treeKey).Err()
}

func (c *cacheService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(productKeyFmt, id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	product := &models.Product{}
	if err := json.Unmarshal(data, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (c *cacheService) SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(productKeyFmt, product.ID), data, ttl).Err()
}

func (c *cacheService) DeleteProduct(ctx context.Context, id int64) error {
	return c.client.Del(ctx, fmt.Sprintf(productKeyFmt, id)).Err()
}

func (c *cacheService) GetStats(ctx context.Context) (*models.Stats, error) {
	data, err := c.client.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stats := &models.Stats{}
	if err := json.Unmarshal(data, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *cacheService) SetStats(ctx context.Context, stats *models.Stats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, data, ttl).Err()
}

func (c *cacheService) InvalidateStats(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}
