package grants

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsAppliesEachInOwnTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range GetMigrations() {
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}

	require.NoError(t, RunMigrations(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsRollsBackFailedMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grant migration 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
