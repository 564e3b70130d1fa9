package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"catadmin/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetWithCategory(ctx context.Context, id int64) (*models.ProductWithCategory, error)
	Update(ctx context.Context, product *models.Product) error
	SetStatus(ctx context.Context, id int64, status string) error
	FindActiveBySKU(ctx context.Context, sku string) (*models.Product, error)
	NextSortOrder(ctx context.Context, categoryID int64) (int, error)
	ListActiveByCategory(ctx context.Context, categoryID int64) ([]*models.Product, error)
	ListActive(ctx context.Context) ([]*models.Product, error)
	CountActiveByCategory(ctx context.Context, categoryID int64) (int, error)
	Search(ctx context.Context, filter *models.ProductSearchFilter, limit, offset int) ([]*models.ProductWithCategory, error)
	CountSearch(ctx context.Context, filter *models.ProductSearchFilter) (int, error)
	ListForExport(ctx context.Context, categoryID *int64) ([]*models.ProductWithCategory, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	WithTx(tx DB) ProductRepository
}

type productRepository struct {
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) WithTx(tx DB) ProductRepository {
	return &productRepository{db: tx}
}

const productColumns = `id, name, description, price, category_id, sku, stock_quantity, image_url, status, sort_order, created_at, updated_at, created_by`

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	query := `INSERT INTO products (name, description, price, category_id, sku, stock_quantity, image_url, status, sort_order, created_by)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
              RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		product.Name, product.Description, product.Price, product.CategoryID, product.SKU,
		product.StockQuantity, product.ImageURL, product.Status, product.SortOrder, product.CreatedBy,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	product := &models.Product{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.CategoryID,
		&product.SKU, &product.StockQuantity, &product.ImageURL, &product.Status,
		&product.SortOrder, &product.CreatedAt, &product.UpdatedAt, &product.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) GetWithCategory(ctx context.Context, id int64) (*models.ProductWithCategory, error) {
	query := `SELECT p.id, p.name, p.description, p.price, p.category_id, p.sku, p.stock_quantity,
                p.image_url, p.status, p.sort_order, p.created_at, p.updated_at, p.created_by, c.name
              FROM products p
              JOIN categories c ON c.id = p.category_id
              WHERE p.id = $1`
	product := &models.ProductWithCategory{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.CategoryID,
		&product.SKU, &product.StockQuantity, &product.ImageURL, &product.Status,
		&product.SortOrder, &product.CreatedAt, &product.UpdatedAt, &product.CreatedBy,
		&product.CategoryName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	query := `UPDATE products
              SET name = $1, description = $2, price = $3, category_id = $4, sku = $5,
                  stock_quantity = $6, image_url = $7, status = $8, sort_order = $9, updated_at = NOW()
              WHERE id = $10`
	_, err := r.db.Exec(ctx, query,
		product.Name, product.Description, product.Price, product.CategoryID, product.SKU,
		product.StockQuantity, product.ImageURL, product.Status, product.SortOrder, product.ID)
	return err
}

func (r *productRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}

// FindActiveBySKU matches case-insensitively among non-archived products.
// The lowest id wins when historic data holds duplicates.
func (r *productRepository) FindActiveBySKU(ctx context.Context, sku string) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products
              WHERE LOWER(sku) = LOWER($1) AND status <> 'archived'
              ORDER BY id LIMIT 1`, productColumns)
	product := &models.Product{}
	err := r.db.QueryRow(ctx, query, sku).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.CategoryID,
		&product.SKU, &product.StockQuantity, &product.ImageURL, &product.Status,
		&product.SortOrder, &product.CreatedAt, &product.UpdatedAt, &product.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) NextSortOrder(ctx context.Context, categoryID int64) (int, error) {
	query := `SELECT COALESCE(MAX(sort_order), -1) + 1
              FROM products WHERE category_id = $1 AND status = 'active'`
	var next int
	err := r.db.QueryRow(ctx, query, categoryID).Scan(&next)
	return next, err
}

func (r *productRepository) ListActiveByCategory(ctx context.Context, categoryID int64) ([]*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products
              WHERE category_id = $1 AND status = 'active'
              ORDER BY sort_order, id`, productColumns)
	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *productRepository) ListActive(ctx context.Context) ([]*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE status = 'active' ORDER BY id`, productColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *productRepository) CountActiveByCategory(ctx context.Context, categoryID int64) (int, error) {
	query := `SELECT COUNT(*) FROM products WHERE category_id = $1 AND status = 'active'`
	var count int
	err := r.db.QueryRow(ctx, query, categoryID).Scan(&count)
	return count, err
}

func (r *productRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	query := `SELECT COUNT(*) FROM products WHERE status = $1`
	var count int
	err := r.db.QueryRow(ctx, query, status).Scan(&count)
	return count, err
}

// searchWhere builds the WHERE clause shared by Search and CountSearch.
func searchWhere(filter *models.ProductSearchFilter) (string, []any) {
	conditions := []string{"1=1"}
	var args []any
	if filter.Status != "all" {
		status := filter.Status
		if status == "" {
			status = models.StatusActive
		}
		args = append(args, status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.sku ILIKE $%d OR p.description ILIKE $%d)", n, n, n))
	}
	return strings.Join(conditions, " AND "), args
}

func (r *productRepository) Search(ctx context.Context, filter *models.ProductSearchFilter, limit, offset int) ([]*models.ProductWithCategory, error) {
	where, args := searchWhere(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT p.id, p.name, p.description, p.price, p.category_id, p.sku,
                p.stock_quantity, p.image_url, p.status, p.sort_order, p.created_at, p.updated_at,
                p.created_by, c.name
              FROM products p
              JOIN categories c ON c.id = p.category_id
              WHERE %s
              ORDER BY p.sort_order ASC, p.id DESC
              LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProductsWithCategory(rows)
}

func (r *productRepository) CountSearch(ctx context.Context, filter *models.ProductSearchFilter) (int, error) {
	where, args := searchWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM products p WHERE %s`, where)
	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// ListForExport returns active products grouped by category for CSV export.
func (r *productRepository) ListForExport(ctx context.Context, categoryID *int64) ([]*models.ProductWithCategory, error) {
	query := `SELECT p.id, p.name, p.description, p.price, p.category_id, p.sku,
                p.stock_quantity, p.image_url, p.status, p.sort_order, p.created_at, p.updated_at,
                p.created_by, c.name
              FROM products p
              JOIN categories c ON c.id = p.category_id
              WHERE p.status = 'active' AND ($1::bigint IS NULL OR p.category_id = $1)
              ORDER BY c.name, p.sort_order, p.name`
	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProductsWithCategory(rows)
}

func scanProducts(rows pgx.Rows) ([]*models.Product, error) {
	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Description, &product.Price, &product.CategoryID,
			&product.SKU, &product.StockQuantity, &product.ImageURL, &product.Status,
			&product.SortOrder, &product.CreatedAt, &product.UpdatedAt, &product.CreatedBy,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func scanProductsWithCategory(rows pgx.Rows) ([]*models.ProductWithCategory, error) {
	var products []*models.ProductWithCategory
	for rows.Next() {
		product := &models.ProductWithCategory{}
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Description, &product.Price, &product.CategoryID,
			&product.SKU, &product.StockQuantity, &product.ImageURL, &product.Status,
			&product.SortOrder, &product.CreatedAt, &product.UpdatedAt, &product.CreatedBy,
			&product.CategoryName,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
