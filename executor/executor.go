// Package executor interprets a planner.Plan tree against machdb's
// storage layers: page manager, buffer cache, catalog, table stores,
// and indexes. Each statement's execution ends with a cache flush so
// that disk state reflects what the caller was told succeeded.
package executor

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/nrgarcia/machdb/buffer"
	"github.com/nrgarcia/machdb/catalog"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/index"
	"github.com/nrgarcia/machdb/page"
	"github.com/nrgarcia/machdb/planner"
	"github.com/nrgarcia/machdb/record"
	"github.com/nrgarcia/machdb/table"
)

// Result is the uniform value every executed statement returns.
type Result struct {
	Success      bool
	Message      string
	Rows         []map[string]any
	RowsAffected int
	Duration     time.Duration
	Errors       []string
}

// Env bundles every storage handle the executor needs: the page
// manager, buffer cache, catalog, index registry, and a cache of
// already-opened table.Store instances. engine.Database embeds an
// *Env rather than executor depending on engine, avoiding an import
// cycle between the package that owns the public entry point and the
// package that interprets plans.
type Env struct {
	Mgr     *page.Manager
	Cache   *buffer.Cache
	Catalog *catalog.Catalog
	Indexes *index.Manager
	Logger  *log.Logger

	tables map[string]*table.Store
}

// NewEnv constructs an Env over already-open storage handles.
func NewEnv(mgr *page.Manager, cache *buffer.Cache, cat *catalog.Catalog, idx *index.Manager, logger *log.Logger) *Env {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Env{Mgr: mgr, Cache: cache, Catalog: cat, Indexes: idx, Logger: logger, tables: make(map[string]*table.Store)}
}

// Execute interprets plan and returns its Result. It never panics: any
// error surfaces as Success=false with the error's fully-annotated
// message and its annotation trail in Errors.
func (e *Env) Execute(plan planner.Plan) Result {
	start := time.Now()
	rows, affected, msg, err := e.dispatch(plan)
	res := Result{Duration: time.Since(start)}
	if err != nil {
		res.Success = false
		res.Message = err.Error()
		res.Errors = annotationTrail(err)
		return res
	}
	res.Success = true
	res.Message = msg
	res.Rows = rows
	res.RowsAffected = affected
	if err := e.Cache.FlushAll(); err != nil {
		res.Success = false
		res.Message = err.Error()
		res.Errors = annotationTrail(err)
	}
	return res
}

// annotationTrail splits a juju/errors annotation chain on its
// canonical ": " join points, giving callers the per-layer context
// (lexer, parser, planner, executor) as a list instead of one long
// string.
func annotationTrail(err error) []string {
	if err == nil {
		return nil
	}
	return strings.Split(err.Error(), ": ")
}

func (e *Env) dispatch(plan planner.Plan) (rows []map[string]any, affected int, msg string, err error) {
	switch p := plan.(type) {
	case planner.CreateTablePlan:
		err = e.execCreateTable(p)
		return nil, 0, fmt.Sprintf("table %q created", p.TableName), err
	case planner.CreateIndexPlan:
		err = e.execCreateIndex(p)
		return nil, 0, fmt.Sprintf("index %q created", p.IndexName), err
	case planner.DropIndexPlan:
		err = e.execDropIndex(p)
		return nil, 0, fmt.Sprintf("index %q dropped", p.IndexName), err
	case planner.InsertPlan:
		err = e.execInsert(p)
		if err != nil {
			return nil, 0, "", err
		}
		return nil, 1, "1 row inserted", nil
	case planner.UpdatePlan:
		n, uerr := e.execUpdate(p)
		return nil, n, fmt.Sprintf("%d row(s) updated", n), uerr
	case planner.DeletePlan:
		n, derr := e.execDelete(p)
		return nil, n, fmt.Sprintf("%d row(s) deleted", n), derr
	default:
		// Every SELECT plan's outermost node is a ProjectPlan.
		out, serr := e.execPlan(plan)
		if serr != nil {
			return nil, 0, "", serr
		}
		return out, 0, fmt.Sprintf("%d row(s) returned", len(out)), nil
	}
}

// openTable returns (opening and caching, if needed) the table.Store
// for name, failing with a SemanticError if the catalog has no such
// table.
func (e *Env) openTable(name string) (*table.Store, error) {
	if st, ok := e.tables[name]; ok {
		return st, nil
	}
	if name == catalog.TableName || name == catalog.IndexesTableName {
		return nil, dberr.New(dberr.ExecutionError, "table %q is reserved; only SELECT may read it", name)
	}
	info, ok, err := e.Catalog.TableInfo(name)
	if err != nil {
		return nil, dberr.Annotate(err, "open table %q", name)
	}
	if !ok {
		return nil, dberr.New(dberr.SemanticError, "table %q does not exist", name)
	}
	st, err := table.Open(name, info.Schema, e.Mgr, e.Cache)
	if err != nil {
		return nil, dberr.Annotate(err, "open table %q", name)
	}
	e.tables[name] = st
	return st, nil
}

func (e *Env) execCreateTable(p planner.CreateTablePlan) error {
	exists, err := e.Catalog.TableExists(p.TableName)
	if err != nil {
		return dberr.Annotate(err, "CREATE TABLE %q", p.TableName)
	}
	if exists {
		return dberr.New(dberr.SemanticError, "table %q already exists", p.TableName)
	}
	schema := record.NewSchema(p.Columns)
	if err := e.Catalog.RegisterTable(p.TableName, schema, time.Now()); err != nil {
		return dberr.Annotate(err, "CREATE TABLE %q", p.TableName)
	}
	st, err := table.Open(p.TableName, schema, e.Mgr, e.Cache)
	if err != nil {
		return dberr.Annotate(err, "CREATE TABLE %q", p.TableName)
	}
	e.tables[p.TableName] = st
	return nil
}

func (e *Env) execInsert(p planner.InsertPlan) error {
	st, err := e.openTable(p.TableName)
	if err != nil {
		return errors.Annotatef(err, "INSERT INTO %q", p.TableName)
	}
	columns := p.Columns
	if len(columns) == 0 {
		for _, c := range st.Schema.Columns {
			columns = append(columns, c.Name)
		}
	}
	if len(columns) != len(p.Values) {
		return dberr.New(dberr.SemanticError, "INSERT INTO %q: %d columns but %d values", p.TableName, len(columns), len(p.Values))
	}
	values := make(map[string]any, len(columns))
	for i, col := range columns {
		if !st.Schema.Has(col) {
			return dberr.New(dberr.SemanticError, "INSERT INTO %q: unknown column %q", p.TableName, col)
		}
		idx := st.Schema.IndexOf(col)
		v, err := coerceLiteral(p.Values[i], st.Schema.Columns[idx].Type)
		if err != nil {
			return errors.Annotatef(err, "INSERT INTO %q column %q", p.TableName, col)
		}
		values[col] = v
	}
	rid, err := st.Insert(record.Record{Values: values})
	if err != nil {
		return errors.Annotatef(err, "INSERT INTO %q", p.TableName)
	}
	for _, entry := range e.Indexes.ForTable(p.TableName) {
		if key, ok := values[entry.Column]; ok && key != nil {
			entry.Insert(key, index.RID{PageID: rid.PageID, Offset: rid.Offset})
		}
	}
	return nil
}

// coerceLiteral converts a planner.Literal (raw lexical text plus its
// string/number class) into the schema-typed value a column of dt
// expects. Typed coercion happens once here, at the column's declared
// type, rather than the one-directional isdigit coercion used for
// WHERE predicates.
func coerceLiteral(lit planner.Literal, dt record.DataType) (any, error) {
	if dt == record.VarcharType {
		return lit.Text, nil
	}
	n, err := strconv.ParseInt(lit.Text, 10, 32)
	if err != nil {
		return nil, dberr.New(dberr.SemanticError, "value %q is not a valid INT", lit.Text)
	}
	return int32(n), nil
}

func coerceAssignments(assigns []planner.Assignment, schema record.Schema, tableName string) (map[string]any, error) {
	set := make(map[string]any, len(assigns))
	for _, a := range assigns {
		if !schema.Has(a.Column) {
			return nil, dberr.New(dberr.SemanticError, "UPDATE %q: unknown column %q", tableName, a.Column)
		}
		dt := schema.Columns[schema.IndexOf(a.Column)].Type
		v, err := coerceLiteral(a.Value, dt)
		if err != nil {
			return nil, errors.Annotatef(err, "UPDATE %q column %q", tableName, a.Column)
		}
		set[a.Column] = v
	}
	return set, nil
}

func (e *Env) execUpdate(p planner.UpdatePlan) (int, error) {
	st, err := e.openTable(p.TableName)
	if err != nil {
		return 0, errors.Annotatef(err, "UPDATE %q", p.TableName)
	}
	set, err := coerceAssignments(p.Assignments, st.Schema, p.TableName)
	if err != nil {
		return 0, err
	}
	n, err := st.Update(set, p.Cond)
	if err != nil {
		return n, errors.Annotatef(err, "UPDATE %q", p.TableName)
	}
	// Index maintenance on UPDATE is not performed, matching the
	// reference design: indexed columns may go stale until a CREATE
	// INDEX rebuild.
	return n, nil
}

func (e *Env) execDelete(p planner.DeletePlan) (int, error) {
	st, err := e.openTable(p.TableName)
	if err != nil {
		return 0, errors.Annotatef(err, "DELETE FROM %q", p.TableName)
	}
	n, err := st.Delete(p.Cond)
	if err != nil {
		return n, errors.Annotatef(err, "DELETE FROM %q", p.TableName)
	}
	return n, nil
}

func (e *Env) execCreateIndex(p planner.CreateIndexPlan) error {
	st, err := e.openTable(p.TableName)
	if err != nil {
		return errors.Annotatef(err, "CREATE INDEX %q", p.IndexName)
	}
	if !st.Schema.Has(p.ColumnName) {
		return dberr.New(dberr.SemanticError, "CREATE INDEX %q: table %q has no column %q", p.IndexName, p.TableName, p.ColumnName)
	}
	// An already-indexed column is silently replaced, matching the
	// original storage layer's unconditional overwrite.
	entry := e.Indexes.Create(p.TableName, p.ColumnName, index.BPlusTreeKind, p.Unique)

	rows, err := st.Scan(table.Condition{})
	if err != nil {
		return errors.Annotatef(err, "CREATE INDEX %q: bulk scan", p.IndexName)
	}
	for _, row := range rows {
		key, ok := row.Values[p.ColumnName]
		if !ok || key == nil {
			continue
		}
		entry.Insert(key, index.RID{PageID: row.RID.PageID, Offset: row.RID.Offset})
	}

	if err := e.Catalog.RegisterIndex(p.IndexName, p.TableName, p.ColumnName, p.Unique, time.Now()); err != nil {
		return errors.Annotatef(err, "CREATE INDEX %q", p.IndexName)
	}
	return nil
}

func (e *Env) execDropIndex(p planner.DropIndexPlan) error {
	infos, err := e.Catalog.AllIndexes()
	if err != nil {
		return errors.Annotatef(err, "DROP INDEX %q", p.IndexName)
	}
	var found *catalog.IndexInfo
	for i := range infos {
		if infos[i].IndexName == p.IndexName {
			found = &infos[i]
			break
		}
	}
	if found == nil {
		return dberr.New(dberr.SemanticError, "index %q does not exist", p.IndexName)
	}
	e.Indexes.Drop(found.TableName, found.ColumnName)
	if _, err := e.Catalog.DropIndex(p.IndexName); err != nil {
		return errors.Annotatef(err, "DROP INDEX %q", p.IndexName)
	}
	return nil
}
