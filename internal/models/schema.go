package models

import (
	"strings"
	"time"
)

// ColumnInfo describes a column of a relational table.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}

// TableInfo describes a relational table and its columns.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// DatabaseSchemaInfo holds table/column metadata for one relational source.
// It is refreshed by the schema indexer and used both to generate structured
// query text and to validate it.
type DatabaseSchemaInfo struct {
	SourceName  string      `json:"source_name"`
	SourceType  string      `json:"source_type"`
	Tables      []TableInfo `json:"tables"`
	RefreshedAt time.Time   `json:"refreshed_at"`
}

// Table returns the table with the given name (case-insensitive), or nil.
func (s *DatabaseSchemaInfo) Table(name string) *TableInfo {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns true when the table has a column with the given name
// (case-insensitive).
func (t *TableInfo) Column(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
