package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduorg-api/internal/models"
)

func TestMembershipRepositoryLocksGroupAndCounts(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMembershipRepository(db)
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM groups WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("t-1", "g-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "type", "max_members"}).AddRow("g-1", "t-1", "Choir", "CLUB", 10))
	mock.ExpectQuery(regexp.QuoteMeta("(end_date IS NULL OR end_date > $4)")).
		WithArgs("t-1", "g-1", models.MembershipStatusActive, asOf).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(store MembershipStore) error {
		group, err := store.LockGroup(context.Background(), "t-1", "g-1")
		require.NoError(t, err)
		require.NotNil(t, group.MaxMembers)
		assert.Equal(t, 10, *group.MaxMembers)

		count, err := store.CountActive(context.Background(), "t-1", "g-1", asOf)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepositoryUpdateStateConditional(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMembershipRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE tenant_id = $1 AND id = $2 AND status = $3")).
		WithArgs("t-1", "m-1", models.MembershipStatusSuspended, models.MembershipStatusActive, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := &models.GroupMembership{ID: "m-1", TenantID: "t-1", Status: models.MembershipStatusActive}
	require.NoError(t, repo.UpdateState(context.Background(), m, models.MembershipStatusSuspended))
	require.NoError(t, mock.ExpectationsWereMet())
}
