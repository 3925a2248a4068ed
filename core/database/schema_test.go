package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestGetTableColumns(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"field", "type", "null"}).
		AddRow("inventory_id", "TEXT", "NO").
		AddRow("on_hand", "INTEGER", "NO").
		AddRow("version", "INTEGER", "NO")

	mock.ExpectQuery("SELECT column_name AS field").
		WithArgs("stock").
		WillReturnRows(rows)

	columns, err := GetTableColumns(db, "stock")
	assert.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
	}

	assert.Equal(t, "text", colMap["inventory_id"])
	assert.Equal(t, "integer", colMap["on_hand"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTables(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT column_name AS field").
		WithArgs("stock").
		WillReturnRows(sqlmock.NewRows([]string{"field", "type", "null"}).
			AddRow("inventory_id", "text", "NO"))

	mock.ExpectQuery("SELECT column_name AS field").
		WithArgs("missing_table").
		WillReturnRows(sqlmock.NewRows([]string{"field", "type", "null"}))

	missing, err := VerifyTables(db, []string{"stock", "missing_table"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"missing_table"}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}
