package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduorg-api/internal/models"
)

func TestPersonRepositoryListAppliesSearchAndTenant(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "first_name", "last_name", "email", "created_at", "updated_at"}).
		AddRow("p-1", "t-1", "Ada", "Lovelace", "ada@example.com", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM persons WHERE tenant_id = $1 AND deleted_at IS NULL AND (lower(first_name) LIKE $2")).
		WithArgs("t-1", "%ada%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM persons WHERE tenant_id = $1")).
		WithArgs("t-1", "%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	persons, total, err := repo.List(context.Background(), "t-1", models.PersonFilter{Search: "Ada"})
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ada Lovelace", persons[0].FullName())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO persons")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Person{TenantID: "t-1", FirstName: "Ada", LastName: "L", Email: "ada@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositorySoftDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE persons SET deleted_at = $3, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL")).
		WithArgs("t-1", "p-404", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "t-1", "p-404")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("lower(email) = lower($2) AND deleted_at IS NULL AND id::text <> $3")).
		WithArgs("t-1", "ada@example.com", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "t-1", "ada@example.com", "p-1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
