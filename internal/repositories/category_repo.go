package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"catadmin/internal/models"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	SetStatus(ctx context.Context, id int64, status string) error
	ListRoots(ctx context.Context) ([]*models.Category, error)
	ListChildren(ctx context.Context, parentID int64, includeArchived bool) ([]*models.Category, error)
	ListActive(ctx context.Context) ([]*models.Category, error)
	CountActiveChildren(ctx context.Context, parentID int64) (int, error)
	CountActive(ctx context.Context) (int, error)
	ActiveSiblingExists(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error)
	NextSortOrder(ctx context.Context, parentID *int64) (int, error)
	Tree(ctx context.Context, includeArchived bool) ([]*models.CategoryNode, error)
	WithTx(tx DB) CategoryRepository
}

type categoryRepository struct {
	db DB
}

func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) WithTx(tx DB) CategoryRepository {
	return &categoryRepository{db: tx}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `INSERT INTO categories (name, parent_id, status, sort_order, created_by)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		category.Name, category.ParentID, category.Status, category.SortOrder, category.CreatedBy,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	query := `SELECT id, name, parent_id, status, sort_order, created_at, updated_at, created_by
              FROM categories WHERE id = $1`
	category := &models.Category{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&category.ID, &category.Name, &category.ParentID, &category.Status,
		&category.SortOrder, &category.CreatedAt, &category.UpdatedAt, &category.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `UPDATE categories
              SET name = $1, parent_id = $2, status = $3, sort_order = $4, updated_at = NOW()
              WHERE id = $5`
	_, err := r.db.Exec(ctx, query,
		category.Name, category.ParentID, category.Status, category.SortOrder, category.ID)
	return err
}

func (r *categoryRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE categories SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}

func (r *categoryRepository) ListRoots(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT id, name, parent_id, status, sort_order, created_at, updated_at, created_by
              FROM categories
              WHERE parent_id IS NULL AND status = 'active'
              ORDER BY sort_order, id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

func (r *categoryRepository) ListChildren(ctx context.Context, parentID int64, includeArchived bool) ([]*models.Category, error) {
	query := `SELECT id, name, parent_id, status, sort_order, created_at, updated_at, created_by
              FROM categories
              WHERE parent_id = $1 AND ($2 OR status = 'active')
              ORDER BY sort_order, id`
	rows, err := r.db.Query(ctx, query, parentID, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

// ListActive returns every active category ordered deterministically, so a
// case-insensitive name lookup over the result is first-match-wins.
func (r *categoryRepository) ListActive(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT id, name, parent_id, status, sort_order, created_at, updated_at, created_by
              FROM categories
              WHERE status = 'active'
              ORDER BY parent_id NULLS FIRST, LOWER(name), id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

func (r *categoryRepository) CountActiveChildren(ctx context.Context, parentID int64) (int, error) {
	query := `SELECT COUNT(*) FROM categories WHERE parent_id = $1 AND status = 'active'`
	var count int
	err := r.db.QueryRow(ctx, query, parentID).Scan(&count)
	return count, err
}

func (r *categoryRepository) CountActive(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM categories WHERE status = 'active'`
	var count int
	err := r.db.QueryRow(ctx, query).Scan(&count)
	return count, err
}

// ActiveSiblingExists reports whether an active category with the same name
// (case-insensitive) already exists under the same parent. excludeID skips
// the category being renamed; pass 0 for creates.
func (r *categoryRepository) ActiveSiblingExists(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM categories
                WHERE LOWER(name) = LOWER($1)
                  AND parent_id IS NOT DISTINCT FROM $2
                  AND status = 'active'
                  AND id <> $3)`
	var exists bool
	err := r.db.QueryRow(ctx, query, name, parentID, excludeID).Scan(&exists)
	return exists, err
}

func (r *categoryRepository) NextSortOrder(ctx context.Context, parentID *int64) (int, error) {
	query := `SELECT COALESCE(MAX(sort_order), -1) + 1
              FROM categories
              WHERE parent_id IS NOT DISTINCT FROM $1 AND status = 'active'`
	var next int
	err := r.db.QueryRow(ctx, query, parentID).Scan(&next)
	return next, err
}

// Tree returns the whole category tree flattened in depth-first order with
// per-node active child and product counts. Depth is assigned in Go by
// walking parent pointers over the fetched rows.
func (r *categoryRepository) Tree(ctx context.Context, includeArchived bool) ([]*models.CategoryNode, error) {
	query := `SELECT c.id, c.name, c.parent_id, c.status, c.sort_order, c.created_at, c.updated_at, c.created_by,
                (SELECT COUNT(*) FROM categories ch WHERE ch.parent_id = c.id AND ch.status = 'active'),
                (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.status = 'active')
              FROM categories c
              WHERE ($1 OR c.status = 'active')
              ORDER BY c.sort_order, c.id`
	rows, err := r.db.Query(ctx, query, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []*models.CategoryNode
	for rows.Next() {
		node := &models.CategoryNode{}
		if err := rows.Scan(
			&node.ID, &node.Name, &node.ParentID, &node.Status,
			&node.SortOrder, &node.CreatedAt, &node.UpdatedAt, &node.CreatedBy,
			&node.ChildCount, &node.ProductCount,
		); err != nil {
			return nil, err
		}
		all = append(all, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderTree(all), nil
}

// orderTree arranges nodes depth-first under their parents and fills in
// Depth. Nodes whose parent is absent from the set (archived parent on an
// active-only fetch) are treated as roots.
func orderTree(nodes []*models.CategoryNode) []*models.CategoryNode {
	byID := make(map[int64]*models.CategoryNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	children := make(map[int64][]*models.CategoryNode)
	var roots []*models.CategoryNode
	for _, n := range nodes {
		if n.ParentID != nil {
			if _, ok := byID[*n.ParentID]; ok {
				children[*n.ParentID] = append(children[*n.ParentID], n)
				continue
			}
		}
		roots = append(roots, n)
	}

	ordered := make([]*models.CategoryNode, 0, len(nodes))
	var walk func(n *models.CategoryNode, depth int)
	walk = func(n *models.CategoryNode, depth int) {
		n.Depth = depth
		ordered = append(ordered, n)
		for _, c := range children[n.ID] {
			walk(c, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	return ordered
}

func scanCategories(rows pgx.Rows) ([]*models.Category, error) {
	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(
			&category.ID, &category.Name, &category.ParentID, &category.Status,
			&category.SortOrder, &category.CreatedAt, &category.UpdatedAt, &category.CreatedBy,
		); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}
