package services

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"catadmin/internal/common"
	"catadmin/internal/models"
)

type CategoryServiceTestSuite struct {
	suite.Suite
	db           pgxmock.PgxPoolIface
	categoryRepo *MockCategoryRepository
	productRepo  *MockProductRepository
	historyRepo  *MockHistoryRepository
	cache        *fakeCache
	service      CategoryService
	ctx          context.Context
}

func (s *CategoryServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.db = db
	s.categoryRepo = new(MockCategoryRepository)
	s.productRepo = new(MockProductRepository)
	s.historyRepo = new(MockHistoryRepository)
	s.cache = newFakeCache()
	s.service = NewCategoryService(db, s.categoryRepo, s.productRepo, s.historyRepo, s.cache, time.Minute)
	s.ctx = common.WithActorID(context.Background(), "tester")
}

func (s *CategoryServiceTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *CategoryServiceTestSuite) TestAddRootCategory() {
	s.categoryRepo.On("ActiveSiblingExists", mock.Anything, "Electronics", (*int64)(nil), int64(0)).Return(false, nil)
	s.categoryRepo.On("NextSortOrder", mock.Anything, (*int64)(nil)).Return(3, nil)
	s.categoryRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Category")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Category).ID = 10
		}).Return(nil)
	s.historyRepo.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.HistoryEntry) bool {
		return e.EntityType == models.EntityCategory && e.EntityID == 10 &&
			e.Action == models.ActionCreate && e.ChangedBy == "tester" && e.BatchID == nil
	})).Return(nil)
	s.db.ExpectBegin()
	s.db.ExpectCommit()

	category, err := s.service.Add(s.ctx, "  Electronics  ", nil)

	s.NoError(err)
	s.Equal(int64(10), category.ID)
	s.Equal("Electronics", category.Name)
	s.Equal(models.StatusActive, category.Status)
	s.Equal(3, category.SortOrder)
	s.Equal("tester", category.CreatedBy)
	s.Equal(1, s.cache.treeInvalidations)
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *CategoryServiceTestSuite) TestAddRejectsDuplicateSiblingName() {
	s.categoryRepo.On("ActiveSiblingExists", mock.Anything, "Phones", (*int64)(nil), int64(0)).Return(true, nil)

	_, err := s.service.Add(s.ctx, "Phones", nil)

	s.Error(err)
	s.Equal(common.CodeDuplicateName, common.CodeOf(err))
	s.categoryRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestAddRejectsArchivedParent() {
	parentID := int64(5)
	s.categoryRepo.On("GetByID", mock.Anything, parentID).
		Return(&models.Category{ID: parentID, Status: models.StatusArchived}, nil)

	_, err := s.service.Add(s.ctx, "Laptops", &parentID)

	s.Error(err)
	s.Equal(common.CodeArchived, common.CodeOf(err))
}

func (s *CategoryServiceTestSuite) TestAddRequiresActor() {
	_, err := s.service.Add(context.Background(), "Electronics", nil)

	s.Error(err)
	s.Equal(common.CodeValidation, common.CodeOf(err))
}

func (s *CategoryServiceTestSuite) TestAddRejectsOverlongName() {
	name := make([]rune, 101)
	for i := range name {
		name[i] = 'x'
	}

	_, err := s.service.Add(s.ctx, string(name), nil)

	s.Error(err)
	s.Equal(common.CodeValidation, common.CodeOf(err))
}

func (s *CategoryServiceTestSuite) TestRenameWritesHistorySnapshots() {
	existing := &models.Category{ID: 7, Name: "Grocery", Status: models.StatusActive}
	s.categoryRepo.On("GetByID", mock.Anything, int64(7)).Return(existing, nil)
	s.categoryRepo.On("ActiveSiblingExists", mock.Anything, "Groceries", (*int64)(nil), int64(7)).Return(false, nil)
	s.categoryRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.Category) bool {
		return c.ID == 7 && c.Name == "Groceries"
	})).Return(nil)
	s.historyRepo.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.HistoryEntry) bool {
		return e.Action == models.ActionUpdate && len(e.OldData) > 0 && len(e.NewData) > 0
	})).Return(nil)
	s.db.ExpectBegin()
	s.db.ExpectCommit()

	category, err := s.service.Rename(s.ctx, 7, "Groceries")

	s.NoError(err)
	s.Equal("Groceries", category.Name)
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *CategoryServiceTestSuite) TestDeleteArchivesSubtreeUnderOneBatch() {
	root := &models.Category{ID: 1, Name: "Electronics", Status: models.StatusActive}
	child := &models.Category{ID: 2, Name: "Phones", Status: models.StatusActive}
	rootProduct := &models.Product{ID: 100, Name: "Cable", Status: models.StatusActive, CategoryID: 1}
	childProduct := &models.Product{ID: 101, Name: "Handset", Status: models.StatusActive, CategoryID: 2}

	s.categoryRepo.On("GetByID", mock.Anything, int64(1)).Return(root, nil)
	s.productRepo.On("ListActiveByCategory", mock.Anything, int64(1)).Return([]*models.Product{rootProduct}, nil)
	s.productRepo.On("ListActiveByCategory", mock.Anything, int64(2)).Return([]*models.Product{childProduct}, nil)
	s.categoryRepo.On("ListChildren", mock.Anything, int64(1), false).Return([]*models.Category{child}, nil)
	s.categoryRepo.On("ListChildren", mock.Anything, int64(2), false).Return([]*models.Category(nil), nil)
	s.productRepo.On("SetStatus", mock.Anything, int64(100), models.StatusArchived).Return(nil)
	s.productRepo.On("SetStatus", mock.Anything, int64(101), models.StatusArchived).Return(nil)
	s.categoryRepo.On("SetStatus", mock.Anything, int64(1), models.StatusArchived).Return(nil)
	s.categoryRepo.On("SetStatus", mock.Anything, int64(2), models.StatusArchived).Return(nil)

	var batchIDs []string
	s.historyRepo.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.HistoryEntry) bool {
		return e.Action == models.ActionDelete && e.BatchID != nil
	})).Run(func(args mock.Arguments) {
		batchIDs = append(batchIDs, *args.Get(1).(*models.HistoryEntry).BatchID)
	}).Return(nil).Times(4)
	s.db.ExpectBegin()
	s.db.ExpectCommit()

	batchID, err := s.service.Delete(s.ctx, 1)

	s.NoError(err)
	s.NotEmpty(batchID)
	s.Len(batchIDs, 4)
	for _, id := range batchIDs {
		s.Equal(batchID, id)
	}
	s.Equal(2, s.cache.productDeletions)
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *CategoryServiceTestSuite) TestDeleteRejectsAlreadyArchived() {
	s.categoryRepo.On("GetByID", mock.Anything, int64(3)).
		Return(&models.Category{ID: 3, Status: models.StatusArchived}, nil)

	_, err := s.service.Delete(s.ctx, 3)

	s.Error(err)
	s.Equal(common.CodeArchived, common.CodeOf(err))
}

func (s *CategoryServiceTestSuite) TestRestoreReactivatesArchivedCategory() {
	s.categoryRepo.On("GetByID", mock.Anything, int64(4)).
		Return(&models.Category{ID: 4, Name: "Toys", Status: models.StatusArchived}, nil)
	s.categoryRepo.On("SetStatus", mock.Anything, int64(4), models.StatusActive).Return(nil)
	s.historyRepo.On("Insert", mock.Anything, mock.MatchedBy(func(e *models.HistoryEntry) bool {
		return e.Action == models.ActionRestore && e.EntityID == 4
	})).Return(nil)
	s.db.ExpectBegin()
	s.db.ExpectCommit()

	category, err := s.service.Restore(s.ctx, 4)

	s.NoError(err)
	s.Equal(models.StatusActive, category.Status)
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *CategoryServiceTestSuite) TestRestoreRejectsActiveCategory() {
	s.categoryRepo.On("GetByID", mock.Anything, int64(4)).
		Return(&models.Category{ID: 4, Status: models.StatusActive}, nil)

	_, err := s.service.Restore(s.ctx, 4)

	s.Error(err)
	s.Equal(common.CodeStateConflict, common.CodeOf(err))
}

func (s *CategoryServiceTestSuite) TestGetTreeServesFromCache() {
	s.cache.tree = []*models.CategoryNode{{Category: models.Category{ID: 1, Name: "Cached"}}}

	tree, err := s.service.GetTree(s.ctx, false)

	s.NoError(err)
	s.Len(tree, 1)
	s.Equal("Cached", tree[0].Name)
	s.categoryRepo.AssertNotCalled(s.T(), "Tree", mock.Anything, mock.Anything)
}

func (s *CategoryServiceTestSuite) TestGetTreeBypassesCacheForArchivedView() {
	s.cache.tree = []*models.CategoryNode{{Category: models.Category{ID: 1, Name: "Cached"}}}
	s.categoryRepo.On("Tree", mock.Anything, true).
		Return([]*models.CategoryNode{{Category: models.Category{ID: 2, Name: "Fresh"}}}, nil)

	tree, err := s.service.GetTree(s.ctx, true)

	s.NoError(err)
	s.Equal("Fresh", tree[0].Name)
}

func (s *CategoryServiceTestSuite) TestIsLeaf() {
	s.categoryRepo.On("GetByID", mock.Anything, int64(9)).
		Return(&models.Category{ID: 9, Status: models.StatusActive}, nil)
	s.categoryRepo.On("CountActiveChildren", mock.Anything, int64(9)).Return(0, nil)

	leaf, err := s.service.IsLeaf(s.ctx, 9)

	s.NoError(err)
	s.True(leaf)
}

func (s *CategoryServiceTestSuite) TestDeleteImpactCountsDescendants() {
	s.categoryRepo.On("GetByID", mock.Anything, int64(1)).
		Return(&models.Category{ID: 1, Status: models.StatusActive}, nil)
	s.categoryRepo.On("CountActiveChildren", mock.Anything, int64(1)).Return(1, nil)
	s.productRepo.On("CountActiveByCategory", mock.Anything, int64(1)).Return(2, nil)
	s.categoryRepo.On("ListChildren", mock.Anything, int64(1), false).
		Return([]*models.Category{{ID: 2, Status: models.StatusActive}}, nil)
	s.productRepo.On("CountActiveByCategory", mock.Anything, int64(2)).Return(3, nil)
	s.categoryRepo.On("ListChildren", mock.Anything, int64(2), false).Return([]*models.Category(nil), nil)

	impact, err := s.service.DeleteImpact(s.ctx, 1)

	s.NoError(err)
	s.Equal(1, impact.SubcategoryCount)
	s.Equal(2, impact.ProductCount)
	s.Equal(5, impact.AllDescendantProducts)
}

func (s *CategoryServiceTestSuite) TestGetByIDNotFound() {
	s.categoryRepo.On("GetByID", mock.Anything, int64(42)).Return(nil, nil)

	_, err := s.service.GetByID(s.ctx, 42)

	s.Error(err)
	s.Equal(common.CodeNotFound, common.CodeOf(err))
}

func TestCategoryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CategoryServiceTestSuite))
}
