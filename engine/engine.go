// Package engine wires machdb's storage layers, SQL front end, and
// planner/executor into the single public entry point this package
// exposes: ExecuteSQL(sql) -> ExecutionResult. Everything outside
// this package (shells, editors, user-binding side files) is an
// external collaborator that only ever calls ExecuteSQL.
package engine

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/kr/pretty"

	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/buffer"
	"github.com/nrgarcia/machdb/catalog"
	"github.com/nrgarcia/machdb/dbconfig"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/executor"
	"github.com/nrgarcia/machdb/format"
	"github.com/nrgarcia/machdb/index"
	"github.com/nrgarcia/machdb/page"
	"github.com/nrgarcia/machdb/parser"
	"github.com/nrgarcia/machdb/planner"
	"github.com/nrgarcia/machdb/table"
	"github.com/nrgarcia/machdb/visitor"
)

// Result is re-exported so callers never need to import executor
// directly for the type of ExecuteSQL's return value.
type Result = executor.Result

// Database owns one heap file plus every in-memory structure built
// over it: the page manager, buffer cache, catalog, index registry,
// and the executor environment that interprets plans against them.
// It is not safe for concurrent use (a single-threaded cooperative
// model); callers serialize their own access.
type Database struct {
	mgr    *page.Manager
	cache  *buffer.Cache
	cat    *catalog.Catalog
	idx    *index.Manager
	env    *executor.Env
	logger *log.Logger
}

// Open opens (creating if absent) the heap file at path, using cfg for
// buffer cache and index tuning. A nil logger defaults to discarding
// output: this is a pure storage/compiler engine, not a service with
// its own log sink.
func Open(path string, cfg dbconfig.Config, logger *log.Logger) (*Database, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	mgr, err := page.Open(path)
	if err != nil {
		return nil, dberr.Annotate(err, "open database %q", path)
	}
	cache, err := buffer.New(cfg.BufferPolicy(), cfg.MaxPages, mgr)
	if err != nil {
		mgr.Close()
		return nil, dberr.Annotate(err, "open database %q: buffer cache", path)
	}
	if cfg.BufferPolicy() == buffer.LRFU {
		cache.SetLRFUDecay(cfg.LRFUDecay)
	}
	cat, err := catalog.Open(mgr, cache)
	if err != nil {
		mgr.Close()
		return nil, dberr.Annotate(err, "open database %q: catalog", path)
	}
	idxMgr := index.NewManager(cfg.IndexOrder)
	if err := rebuildIndexes(cat, idxMgr, mgr, cache); err != nil {
		mgr.Close()
		return nil, dberr.Annotate(err, "open database %q: rebuild indexes", path)
	}
	env := executor.NewEnv(mgr, cache, cat, idxMgr, logger)
	return &Database{mgr: mgr, cache: cache, cat: cat, idx: idxMgr, env: env, logger: logger}, nil
}

// rebuildIndexes reconstructs every pg_indexes-registered index by
// bulk-scanning its owning table, matching CREATE INDEX's own
// bulk-build path. Reopening a file never persists an index's nodes,
// only its metadata row, so every index is rebuilt fresh on open.
func rebuildIndexes(cat *catalog.Catalog, idxMgr *index.Manager, mgr *page.Manager, cache *buffer.Cache) error {
	infos, err := cat.AllIndexes()
	if err != nil {
		return err
	}
	for _, info := range infos {
		tableInfo, ok, err := cat.TableInfo(info.TableName)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		st, err := table.Open(info.TableName, tableInfo.Schema, mgr, cache)
		if err != nil {
			return err
		}
		entry := idxMgr.Create(info.TableName, info.ColumnName, index.BPlusTreeKind, info.Unique)
		rows, err := st.Scan(table.Condition{})
		if err != nil {
			return err
		}
		for _, row := range rows {
			key, ok := row.Values[info.ColumnName]
			if !ok || key == nil {
				continue
			}
			entry.Insert(key, index.RID{PageID: row.RID.PageID, Offset: row.RID.Offset})
		}
	}
	return nil
}

// ExecuteSQL compiles and runs every statement in text in order,
// returning the last statement's Result. A statement that
// fails to parse or execute short-circuits only itself; later
// statements in the same call still run, matching the original
// engine's REPL-style loop which reports per statement and keeps
// going.
func (db *Database) ExecuteSQL(text string) Result {
	stmts := splitStatements(text)
	if len(stmts) == 0 {
		return Result{Success: false, Message: "no SQL statement in input"}
	}
	var last Result
	for _, src := range stmts {
		last = db.executeOne(src)
	}
	return last
}

func (db *Database) executeOne(src string) Result {
	nodes, err := parser.Parse(src)
	if err != nil {
		return Result{Success: false, Message: err.Error(), Errors: []string{err.Error()}}
	}
	if len(nodes) == 0 {
		return Result{Success: false, Message: "empty statement"}
	}
	plan, err := planner.Lower(nodes[0])
	if err != nil {
		return Result{Success: false, Message: err.Error(), Errors: []string{err.Error()}}
	}
	return db.env.Execute(plan)
}

// Explain parses and lowers sql's first statement without executing
// it, returning for debugging the statement re-rendered by format, a
// count of its AST nodes and aggregate calls, and the plan tree
// pretty-printed by kr/pretty in its "%# v" style.
func (db *Database) Explain(sql string) (string, error) {
	nodes, err := parser.Parse(sql)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", dberr.New(dberr.ParseError, "no statement to explain")
	}
	stmt := nodes[0]
	plan, err := planner.Lower(stmt)
	if err != nil {
		return "", err
	}

	nodeCount := 0
	visitor.Inspect(stmt, func(*ast.Node) bool { nodeCount++; return true })
	aggCount := visitor.Count(stmt, ast.AggCall)

	return fmt.Sprintf("%s\n%d AST node(s), %d aggregate call(s)\n%s",
		format.String(stmt), nodeCount, aggCount, pretty.Sprintf("%# v", plan)), nil
}

// Close flushes every dirty page and releases the heap file handle.
func (db *Database) Close() error {
	if err := db.cache.FlushAll(); err != nil {
		return err
	}
	return db.mgr.Close()
}

// splitStatements breaks text into one substring per top-level
// statement, splitting on ';' outside of quoted strings and '--'
// comments, the same lexical classes the lexer itself recognizes, so
// that a parse error in one statement does not
// prevent later, independent statements in the same ExecuteSQL call
// from still running (the parser itself has no error-recovery resync
// point once it fails, so re-parsing must start fresh per statement).
func splitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	var quote byte
	inComment := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inComment {
			cur.WriteByte(c)
			if c == '\n' {
				inComment = false
			}
			continue
		}
		if quote != 0 {
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			cur.WriteByte(c)
			continue
		}
		if c == '-' && i+1 < len(text) && text[i+1] == '-' {
			inComment = true
			cur.WriteByte(c)
			continue
		}
		if c == ';' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				stmts = append(stmts, s)
			}
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
