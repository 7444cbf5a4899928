package database

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concern-verifier-api/pkg/config"
)

func TestEnsureSchemaAppliesAllStatements(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.MatchExpectationsInOrder(true)
	mock.ExpectBegin()
	for range schemaStatements {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaRollsBackOnFailure(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS residents").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = EnsureSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "secret", Name: "concern_verifier", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=concern_verifier sslmode=disable", dsn)
}
