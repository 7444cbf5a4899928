package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

func TestResidentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewResidentRepository(db)

	mock.ExpectExec("INSERT INTO residents").
		WithArgs(sqlmock.AnyArg(), "Juan Dela Cruz", "juan@example.com", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	resident := &models.Resident{Name: "Juan Dela Cruz", Email: "juan@example.com"}
	require.NoError(t, repo.Create(context.Background(), resident))
	assert.NotEmpty(t, resident.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepositoryListOrdersByName(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewResidentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM residents ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "avatar", "created_at", "updated_at"}).
			AddRow("r-1", "Ana Reyes", "ana@example.com", "", now, now).
			AddRow("r-2", "Pedro Mendoza", "pedro@example.com", "", now, now))

	residents, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, residents, 2)
	assert.Equal(t, "Ana Reyes", residents[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewResidentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM residents WHERE email = $1")).
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM residents WHERE email = $1")).
		WithArgs("free@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	exists, err := repo.ExistsByEmail(context.Background(), "taken@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest models.ConcernStats
	err := repo.Get(context.Background(), "concerns:stats", &dest)
	assert.Error(t, err)
	assert.NoError(t, repo.Set(context.Background(), "concerns:stats", dest, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "concerns:stats"))
	assert.NoError(t, repo.Close())
}
