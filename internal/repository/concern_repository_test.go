package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

func newConcernMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var concernRowColumns = []string{"id", "text", "resident_id", "resident_name", "submitted_at", "verification", "created_at", "updated_at"}

func TestConcernRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	mock.ExpectExec("INSERT INTO concerns").
		WithArgs(sqlmock.AnyArg(), "Overflowing bin", "res-1", sqlmock.AnyArg(), []byte(`{"status":"pending","aiSuggestion":null,"aiReason":null,"processedAt":null}`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	concern := &models.Concern{Text: "Overflowing bin", ResidentID: "res-1"}
	require.NoError(t, repo.Create(context.Background(), concern))
	assert.NotEmpty(t, concern.ID)
	assert.False(t, concern.SubmittedAt.IsZero())
	require.NotNil(t, concern.Verification)
	assert.Equal(t, models.VerificationPending, concern.Verification.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcernRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(concernRowColumns).
		AddRow("c-1", "Dead cat on street", "res-1", "Maria Santos", now, []byte(`{"status":"approved","aiSuggestion":"legitimate","aiReason":"Sanitation","confidence":0.9,"category":"dead_animal","processedAt":"2024-05-01T12:00:00Z"}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM concerns c LEFT JOIN residents r ON r.id = c.resident_id WHERE c.id = $1")).
		WithArgs("c-1").
		WillReturnRows(rows)

	concern, err := repo.FindByID(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, concern.ResidentName)
	assert.Equal(t, "Maria Santos", *concern.ResidentName)
	require.NotNil(t, concern.Verification)
	assert.Equal(t, models.VerificationApproved, concern.Verification.Status)
	require.NotNil(t, concern.Verification.Category)
	assert.Equal(t, models.CategoryDeadAnimal, *concern.Verification.Category)
	assert.InDelta(t, 0.9, *concern.Verification.Confidence, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcernRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	mock.ExpectQuery("FROM concerns c").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestConcernRepositoryListFiltersPending(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND (c.verification IS NULL OR c.verification->>'status' = $1) AND c.resident_id = $2 ORDER BY c.created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("pending", "res-1").
		WillReturnRows(sqlmock.NewRows(concernRowColumns).AddRow("c-1", "Missed pickup", "res-1", "Ana Reyes", now, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM concerns c WHERE 1=1 AND (c.verification IS NULL OR c.verification->>'status' = $1) AND c.resident_id = $2")).
		WithArgs("pending", "res-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	concerns, total, err := repo.List(context.Background(), models.ConcernFilter{Status: models.VerificationPending, ResidentID: "res-1", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, concerns, 1)
	assert.Nil(t, concerns[0].Verification)
	assert.True(t, concerns[0].NeedsVerification())
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcernRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.verification IS NULL OR c.verification->>'status' = 'pending'\nORDER BY c.submitted_at ASC")).
		WillReturnRows(sqlmock.NewRows(concernRowColumns).
			AddRow("c-1", "first", "res-1", "Ana Reyes", now, nil, now, now).
			AddRow("c-2", "second", "res-1", "Ana Reyes", now, []byte(`{"status":"pending"}`), now, now))

	concerns, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, concerns, 2)
	assert.Equal(t, "c-1", concerns[0].ID)
	assert.Equal(t, "c-2", concerns[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcernRepositoryReplaceVerification(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	processedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	confidence := 0.8
	category := models.CategoryWasteCollection
	verification := models.VerificationResult{
		Status:       models.VerificationApproved,
		AISuggestion: models.SuggestionLegitimate,
		AIReason:     "Missed pickup",
		Confidence:   &confidence,
		Category:     &category,
		ProcessedAt:  processedAt,
	}.Verification()
	stored, err := verification.Value()
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE concerns SET verification = $1, updated_at = $2 WHERE id = $3 RETURNING")).
		WithArgs(stored, sqlmock.AnyArg(), "c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "resident_id", "submitted_at", "verification", "created_at", "updated_at"}).
			AddRow("c-1", "Missed pickup", "res-1", now, stored, now, now))

	concern, err := repo.ReplaceVerification(context.Background(), "c-1", verification)
	require.NoError(t, err)
	require.NotNil(t, concern.Verification)
	assert.Equal(t, "Missed pickup", *concern.Verification.AIReason)
	assert.True(t, processedAt.Equal(*concern.Verification.ProcessedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcernRepositorySetVerificationStatusKeepsOtherFields(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	processedAt := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("jsonb_set(jsonb_set(COALESCE(verification, '{}'::jsonb), '{status}', to_jsonb($1::text)), '{processedAt}', to_jsonb($2::timestamptz))")).
		WithArgs("rejected", processedAt, sqlmock.AnyArg(), "c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "resident_id", "submitted_at", "verification", "created_at", "updated_at"}).
			AddRow("c-1", "Dead cat", "res-1", now, []byte(`{"status":"rejected","aiSuggestion":"legitimate","aiReason":"Sanitation","confidence":0.9,"category":"dead_animal","processedAt":"2024-05-02T09:00:00+00:00"}`), now, now))

	concern, err := repo.SetVerificationStatus(context.Background(), "c-1", models.VerificationRejected, processedAt)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, concern.Verification.Status)
	assert.Equal(t, models.SuggestionLegitimate, *concern.Verification.AISuggestion)
	assert.True(t, processedAt.Equal(*concern.Verification.ProcessedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcernRepositoryStats(t *testing.T) {
	db, mock, cleanup := newConcernMock(t)
	defer cleanup()
	repo := NewConcernRepository(db)

	mock.ExpectQuery("SELECT COALESCE\\(verification->>'status', 'pending'\\) AS status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "category", "total"}).
			AddRow("pending", "", 3).
			AddRow("approved", "waste_collection", 4).
			AddRow("approved", "other", 1).
			AddRow("rejected", "vague", 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 5, stats.Approved)
	assert.Equal(t, 2, stats.Rejected)
	assert.Equal(t, 4, stats.ByCategory[models.CategoryWasteCollection])
	assert.Equal(t, 2, stats.ByCategory[models.CategoryVague])
	assert.NoError(t, mock.ExpectationsWereMet())
}
