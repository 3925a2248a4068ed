package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo describes a single column of a Postgres table.
type ColumnInfo struct {
	Field string
	Type  string
	Null  string
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	err := db.Raw(
		`SELECT column_name AS field, data_type AS type, is_nullable AS null
		 FROM information_schema.columns
		 WHERE table_name = ?
		 ORDER BY ordinal_position`, tableName,
	).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Field = strings.ToLower(columns[i].Field)
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}

// VerifyTables checks that every required table exists and has at least one
// column. It returns the list of missing tables.
func VerifyTables(db *gorm.DB, required []string) ([]string, error) {
	var missing []string
	for _, table := range required {
		columns, err := GetTableColumns(db, table)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
