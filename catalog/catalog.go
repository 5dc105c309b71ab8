// Package catalog implements machdb's system catalog: the pg_catalog
// and pg_indexes tables that persist table and index metadata using
// the same table-storage machinery as ordinary user tables. The
// catalog bootstraps its own schemas by hard-coding them, resolving
// the chicken-and-egg problem of storing table metadata in a table.
package catalog

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nrgarcia/machdb/buffer"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/page"
	"github.com/nrgarcia/machdb/record"
	"github.com/nrgarcia/machdb/table"
)

const (
	// TableName is the catalog's own name, reserved for user tables.
	TableName = "pg_catalog"
	// IndexesTableName is the index registry's reserved name.
	IndexesTableName = "pg_indexes"
)

// Schema returns pg_catalog's hard-coded column layout.
func Schema() record.Schema {
	return record.NewSchema([]record.ColumnInfo{
		{Name: "table_name", Type: record.VarcharType},
		{Name: "column_info", Type: record.VarcharType},
		{Name: "created_at", Type: record.VarcharType},
		{Name: "page_count", Type: record.IntType},
	})
}

// IndexesSchema returns pg_indexes's hard-coded column layout.
func IndexesSchema() record.Schema {
	return record.NewSchema([]record.ColumnInfo{
		{Name: "index_name", Type: record.VarcharType},
		{Name: "table_name", Type: record.VarcharType},
		{Name: "column_name", Type: record.VarcharType},
		{Name: "unique", Type: record.VarcharType},
		{Name: "created_at", Type: record.VarcharType},
	})
}

// columnInfoJSON is the wire shape of pg_catalog.column_info: a JSON
// array of {"name":..., "type": "INT"|"VARCHAR"}.
type columnInfoJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableInfo is one reconstructed pg_catalog row.
type TableInfo struct {
	Name      string
	Schema    record.Schema
	CreatedAt string
	PageCount int32
}

// IndexInfo is one reconstructed pg_indexes row.
type IndexInfo struct {
	IndexName  string
	TableName  string
	ColumnName string
	Unique     bool
	CreatedAt  string
}

// Catalog wraps the two system tables. Both are ordinary table.Store
// instances over the catalog's hard-coded schemas.
type Catalog struct {
	tables  *table.Store
	indexes *table.Store
}

// Open ensures pg_catalog and pg_indexes exist (creating their first
// pages lazily, on first insert) and returns a handle bound to them.
func Open(mgr *page.Manager, cache *buffer.Cache) (*Catalog, error) {
	tables, err := table.Open(TableName, Schema(), mgr, cache)
	if err != nil {
		return nil, dberr.Annotate(err, "open pg_catalog")
	}
	indexes, err := table.Open(IndexesTableName, IndexesSchema(), mgr, cache)
	if err != nil {
		return nil, dberr.Annotate(err, "open pg_indexes")
	}
	return &Catalog{tables: tables, indexes: indexes}, nil
}

// TableExists reports whether name has a live pg_catalog row.
func (c *Catalog) TableExists(name string) (bool, error) {
	rows, err := c.tables.Scan(table.Condition{Column: "table_name", Operator: "=", Value: name})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// RegisterTable inserts name's pg_catalog row. Fails with a
// StorageError if name is already registered.
func (c *Catalog) RegisterTable(name string, schema record.Schema, createdAt time.Time) error {
	exists, err := c.TableExists(name)
	if err != nil {
		return err
	}
	if exists {
		return dberr.New(dberr.StorageError, "table %q already exists", name)
	}

	cols := make([]columnInfoJSON, len(schema.Columns))
	for i, col := range schema.Columns {
		cols[i] = columnInfoJSON{Name: col.Name, Type: col.Type.String()}
	}
	encoded, err := json.Marshal(cols)
	if err != nil {
		return dberr.Annotate(err, "encode column_info for table %q", name)
	}

	_, err = c.tables.Insert(record.Record{Values: map[string]any{
		"table_name":  name,
		"column_info": string(encoded),
		"created_at":  createdAt.UTC().Format(time.RFC3339),
		"page_count":  int32(0),
	}})
	return err
}

// TableInfo reconstructs name's schema from its pg_catalog row.
func (c *Catalog) TableInfo(name string) (TableInfo, bool, error) {
	rows, err := c.tables.Scan(table.Condition{Column: "table_name", Operator: "=", Value: name})
	if err != nil {
		return TableInfo{}, false, err
	}
	if len(rows) == 0 {
		return TableInfo{}, false, nil
	}
	return decodeTableRow(rows[0].Values)
}

// AllTables reconstructs every registered table. pg_catalog and
// pg_indexes themselves are NOT included here (they are not
// self-registered; callers that need to expose them to SELECT do so
// by name, not through this registry).
func (c *Catalog) AllTables() ([]TableInfo, error) {
	rows, err := c.tables.Scan(table.Condition{})
	if err != nil {
		return nil, err
	}
	out := make([]TableInfo, 0, len(rows))
	for _, row := range rows {
		info, ok, err := decodeTableRow(row.Values)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func decodeTableRow(values map[string]any) (TableInfo, bool, error) {
	name, _ := values["table_name"].(string)
	rawCols, _ := values["column_info"].(string)
	createdAt, _ := values["created_at"].(string)
	pageCount, _ := values["page_count"].(int32)

	var cols []columnInfoJSON
	if err := json.Unmarshal([]byte(rawCols), &cols); err != nil {
		return TableInfo{}, false, dberr.Annotate(err, "decode column_info for table %q", name)
	}
	colInfos := make([]record.ColumnInfo, len(cols))
	for i, cj := range cols {
		dt := record.IntType
		if cj.Type == "VARCHAR" {
			dt = record.VarcharType
		}
		colInfos[i] = record.ColumnInfo{Name: cj.Name, Type: dt, Nullable: true}
	}
	return TableInfo{
		Name:      name,
		Schema:    record.NewSchema(colInfos),
		CreatedAt: createdAt,
		PageCount: pageCount,
	}, true, nil
}

// UpdatePageCount overwrites table name's recorded page_count.
func (c *Catalog) UpdatePageCount(name string, count int32) error {
	_, err := c.tables.Update(map[string]any{"page_count": count}, table.Condition{Column: "table_name", Operator: "=", Value: name})
	return err
}

// RegisterIndex inserts indexName's pg_indexes row.
func (c *Catalog) RegisterIndex(indexName, tableName, columnName string, unique bool, createdAt time.Time) error {
	_, err := c.indexes.Insert(record.Record{Values: map[string]any{
		"index_name":  indexName,
		"table_name":  tableName,
		"column_name": columnName,
		"unique":      strconv.FormatBool(unique),
		"created_at":  createdAt.UTC().Format(time.RFC3339),
	}})
	return err
}

// IndexExists reports whether indexName has a live pg_indexes row.
func (c *Catalog) IndexExists(indexName string) (bool, error) {
	rows, err := c.indexes.Scan(table.Condition{Column: "index_name", Operator: "=", Value: indexName})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// DropIndex deletes indexName's pg_indexes row, reporting whether one
// was present.
func (c *Catalog) DropIndex(indexName string) (bool, error) {
	n, err := c.indexes.Delete(table.Condition{Column: "index_name", Operator: "=", Value: indexName})
	return n > 0, err
}

// AllIndexes reconstructs every registered index's metadata, for
// rebuilding the in-memory index.Manager on startup.
func (c *Catalog) AllIndexes() ([]IndexInfo, error) {
	rows, err := c.indexes.Scan(table.Condition{})
	if err != nil {
		return nil, err
	}
	out := make([]IndexInfo, 0, len(rows))
	for _, row := range rows {
		indexName, _ := row.Values["index_name"].(string)
		tableName, _ := row.Values["table_name"].(string)
		columnName, _ := row.Values["column_name"].(string)
		uniqueStr, _ := row.Values["unique"].(string)
		createdAt, _ := row.Values["created_at"].(string)
		unique, _ := strconv.ParseBool(uniqueStr)
		out = append(out, IndexInfo{
			IndexName:  indexName,
			TableName:  tableName,
			ColumnName: columnName,
			Unique:     unique,
			CreatedAt:  createdAt,
		})
	}
	return out, nil
}

// ScanIndexes exposes the raw pg_indexes table store, for SELECT
// against it as an ordinary catalog table.
func (c *Catalog) ScanIndexes(cond table.Condition) ([]table.Row, error) {
	return c.indexes.Scan(cond)
}

// ScanTables exposes the raw pg_catalog table store, for SELECT
// against it as an ordinary catalog table.
func (c *Catalog) ScanTables(cond table.Condition) ([]table.Row, error) {
	return c.tables.Scan(cond)
}
