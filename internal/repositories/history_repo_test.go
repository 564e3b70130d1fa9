package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catadmin/internal/models"
)

func newHistoryRepoMock(t *testing.T) (pgxmock.PgxPoolIface, HistoryRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewHistoryRepository(mock)
}

func TestHistoryInsertSendsNullForEmptySnapshots(t *testing.T) {
	mock, repo := newHistoryRepoMock(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO product_history").
		WithArgs("product", int64(20), "create", nil, json.RawMessage(`{"id":20}`), "tester", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "changed_at"}).AddRow(int64(5), now))

	entry := &models.HistoryEntry{
		EntityType: models.EntityProduct,
		EntityID:   20,
		Action:     models.ActionCreate,
		NewData:    json.RawMessage(`{"id":20}`),
		ChangedBy:  "tester",
	}
	err := repo.Insert(context.Background(), entry)

	assert.NoError(t, err)
	assert.Equal(t, int64(5), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryActiveByBatch(t *testing.T) {
	mock, repo := newHistoryRepoMock(t)
	now := time.Now()
	batchID := "batch-1"

	rows := pgxmock.NewRows([]string{
		"id", "entity_type", "entity_id", "action", "old_data", "new_data",
		"changed_by", "changed_at", "batch_id", "reverted",
	}).
		AddRow(int64(12), "product", int64(22), "create", []byte(nil), []byte(`{}`), "tester", now, &batchID, false).
		AddRow(int64(11), "product", int64(21), "create", []byte(nil), []byte(`{}`), "tester", now, &batchID, false)

	mock.ExpectQuery("WHERE batch_id").
		WithArgs(batchID).
		WillReturnRows(rows)

	entries, err := repo.ActiveByBatch(context.Background(), batchID)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(12), entries[0].ID)
	assert.Equal(t, int64(11), entries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryMarkReverted(t *testing.T) {
	mock, repo := newHistoryRepoMock(t)

	mock.ExpectExec("UPDATE product_history SET reverted").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkReverted(context.Background(), 7)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
