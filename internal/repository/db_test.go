package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

func TestWithinTxCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	tm := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_roles").WithArgs("u1", int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		return NewRoleRepository(tx).AssignToUser(context.Background(), "u1", 2)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	tm := NewTxManager(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := tm.WithinTx(context.Background(), func(tx *sqlx.Tx) error {
		if err := NewUserRepository(tx).Create(context.Background(), &models.User{Username: "a", Email: "a@example.com"}); err != nil {
			return err
		}
		return NewRoleRepository(tx).AssignToUser(context.Background(), "u1", 1)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}
