package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catadmin/internal/models"
)

func newCategoryRepoMock(t *testing.T) (pgxmock.PgxPoolIface, CategoryRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewCategoryRepository(mock)
}

func TestCategoryCreate(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO categories").
		WithArgs("Electronics", pgxmock.AnyArg(), "active", 0, "tester").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(10), now, now))

	category := &models.Category{Name: "Electronics", Status: models.StatusActive, CreatedBy: "tester"}
	err := repo.Create(context.Background(), category)

	assert.NoError(t, err)
	assert.Equal(t, int64(10), category.ID)
	assert.Equal(t, now, category.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryGetByID(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM categories WHERE id").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "parent_id", "status", "sort_order", "created_at", "updated_at", "created_by",
		}).AddRow(int64(10), "Electronics", (*int64)(nil), "active", 0, now, now, "tester"))

	category, err := repo.GetByID(context.Background(), 10)

	require.NoError(t, err)
	require.NotNil(t, category)
	assert.Equal(t, "Electronics", category.Name)
	assert.Nil(t, category.ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryGetByIDMissingReturnsNil(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)

	mock.ExpectQuery("FROM categories WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "parent_id", "status", "sort_order", "created_at", "updated_at", "created_by",
		}))

	category, err := repo.GetByID(context.Background(), 42)

	assert.NoError(t, err)
	assert.Nil(t, category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategorySetStatus(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)

	mock.ExpectExec("UPDATE categories SET status").
		WithArgs("archived", int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SetStatus(context.Background(), 10, models.StatusArchived)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryActiveSiblingExists(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("Phones", pgxmock.AnyArg(), int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ActiveSiblingExists(context.Background(), "Phones", nil, 0)

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryNextSortOrder(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sort_order\)`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"next"}).AddRow(3))

	next, err := repo.NextSortOrder(context.Background(), nil)

	assert.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryTreeAssignsDepthsAndOrder(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)
	now := time.Now()
	parentID := int64(1)

	rows := pgxmock.NewRows([]string{
		"id", "name", "parent_id", "status", "sort_order", "created_at", "updated_at", "created_by",
		"child_count", "product_count",
	}).
		AddRow(int64(1), "Electronics", (*int64)(nil), "active", 0, now, now, "tester", 1, 0).
		AddRow(int64(3), "Books", (*int64)(nil), "active", 1, now, now, "tester", 0, 4).
		AddRow(int64(2), "Phones", &parentID, "active", 0, now, now, "tester", 0, 2)

	mock.ExpectQuery("FROM categories c").
		WithArgs(false).
		WillReturnRows(rows)

	tree, err := repo.Tree(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, tree, 3)
	// Depth-first: Electronics, then its child Phones, then Books.
	assert.Equal(t, int64(1), tree[0].ID)
	assert.Equal(t, 0, tree[0].Depth)
	assert.Equal(t, int64(2), tree[1].ID)
	assert.Equal(t, 1, tree[1].Depth)
	assert.Equal(t, int64(3), tree[2].ID)
	assert.Equal(t, 0, tree[2].Depth)
	assert.Equal(t, 2, tree[1].ProductCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryTreeOrphanedNodeBecomesRoot(t *testing.T) {
	mock, repo := newCategoryRepoMock(t)
	now := time.Now()
	missingParent := int64(99)

	rows := pgxmock.NewRows([]string{
		"id", "name", "parent_id", "status", "sort_order", "created_at", "updated_at", "created_by",
		"child_count", "product_count",
	}).AddRow(int64(2), "Phones", &missingParent, "active", 0, now, now, "tester", 0, 0)

	mock.ExpectQuery("FROM categories c").
		WithArgs(false).
		WillReturnRows(rows)

	tree, err := repo.Tree(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, 0, tree[0].Depth)
	assert.NoError(t, mock.ExpectationsWereMet())
}
