package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRepositoryListChildren(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id FROM groups WHERE tenant_id = $1 AND parent_id = ANY($2)")).
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id"}).AddRow("g-2", "g-1").AddRow("g-3", "g-1"))

	nodes, err := repo.ListChildren(context.Background(), "t-1", []string{"g-1"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "g-1", *nodes[0].ParentID)

	none, err := repo.ListChildren(context.Background(), "t-1", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositorySoftDeleteWithChildren(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("AND NOT EXISTS (SELECT 1 FROM groups c")).
		WithArgs("t-1", "g-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "t-1", "g-1"), ErrStaleWrite)
	require.NoError(t, mock.ExpectationsWereMet())
}
