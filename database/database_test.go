package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-service/logger"
)

func TestInitSchema_CreatesEveryTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, tbl := range []string{"users", "categories", "products", "carts", "orders", "order_items", "payments"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + tbl + " ").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, InitSchema(context.Background(), db, logger.Nop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS categories").WillReturnError(errors.New("denied"))

	err = InitSchema(context.Background(), db, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create categories table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_OrdersKeepTheirUser(t *testing.T) {
	for _, s := range schema {
		if s.table == "orders" {
			assert.Contains(t, s.ddl, "REFERENCES users(id) ON DELETE RESTRICT")
			return
		}
	}
	t.Fatal("orders table missing from schema")
}
