package executor

import (
	"path/filepath"
	"testing"

	"github.com/nrgarcia/machdb/buffer"
	"github.com/nrgarcia/machdb/catalog"
	"github.com/nrgarcia/machdb/index"
	"github.com/nrgarcia/machdb/page"
	"github.com/nrgarcia/machdb/parser"
	"github.com/nrgarcia/machdb/planner"
)

func newEnv(t *testing.T) *Env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	mgr, err := page.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	cache, err := buffer.New(buffer.LRU, 64, mgr)
	if err != nil {
		t.Fatal(err)
	}
	cat, err := catalog.Open(mgr, cache)
	if err != nil {
		t.Fatal(err)
	}
	idx := index.NewManager(3)
	return NewEnv(mgr, cache, cat, idx, nil)
}

func run(t *testing.T, e *Env, sql string) Result {
	t.Helper()
	nodes, err := parser.Parse(sql)
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	var last Result
	for _, n := range nodes {
		plan, err := planner.Lower(n)
		if err != nil {
			t.Fatalf("lower %q: %v", sql, err)
		}
		last = e.Execute(plan)
	}
	return last
}

// WHERE's full AND/OR tree is evaluated recursively by the executor
// even though table.Condition's single-predicate shape (used by
// UPDATE/DELETE) cannot express it.
func TestFilterCompositeCondition(t *testing.T) {
	e := newEnv(t)
	run(t, e, `CREATE TABLE t(id INT, sal INT);`)
	run(t, e, `INSERT INTO t(id,sal) VALUES (1,100);`)
	run(t, e, `INSERT INTO t(id,sal) VALUES (2,200);`)
	run(t, e, `INSERT INTO t(id,sal) VALUES (3,300);`)

	res := run(t, e, `SELECT id FROM t WHERE id > 1 AND sal < 300;`)
	if !res.Success {
		t.Fatalf("SELECT failed: %s", res.Message)
	}
	if len(res.Rows) != 1 || res.Rows[0]["id"] != int32(2) {
		t.Fatalf("got %#v", res.Rows)
	}

	res = run(t, e, `SELECT id FROM t WHERE id = 1 OR id = 3;`)
	if !res.Success {
		t.Fatalf("SELECT failed: %s", res.Message)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %#v", res.Rows)
	}
}

// Aggregates with no GROUP BY reduce the entire input to one row.
func TestAggregateWithoutGroupBy(t *testing.T) {
	e := newEnv(t)
	run(t, e, `CREATE TABLE t(id INT, sal INT);`)
	run(t, e, `INSERT INTO t(id,sal) VALUES (1,100);`)
	run(t, e, `INSERT INTO t(id,sal) VALUES (2,200);`)

	res := run(t, e, `SELECT COUNT(*), SUM(sal), MIN(sal), MAX(sal) FROM t;`)
	if !res.Success {
		t.Fatalf("SELECT failed: %s", res.Message)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %#v", res.Rows)
	}
	row := res.Rows[0]
	if row["COUNT(*)"] != int32(2) || row["SUM(sal)"] != int32(300) ||
		row["MIN(sal)"] != int32(100) || row["MAX(sal)"] != int32(300) {
		t.Fatalf("got %#v", row)
	}
}

// Aggregates over an empty row set default to 0.
func TestAggregateEmptySet(t *testing.T) {
	e := newEnv(t)
	run(t, e, `CREATE TABLE t(id INT, sal INT);`)

	res := run(t, e, `SELECT COUNT(*), SUM(sal), AVG(sal), MIN(sal), MAX(sal) FROM t;`)
	if !res.Success {
		t.Fatalf("SELECT failed: %s", res.Message)
	}
	row := res.Rows[0]
	if row["COUNT(*)"] != int32(0) || row["SUM(sal)"] != int32(0) ||
		row["AVG(sal)"] != int32(0) || row["MIN(sal)"] != int32(0) || row["MAX(sal)"] != int32(0) {
		t.Fatalf("got %#v", row)
	}
}

// UPDATE and DELETE with a single-comparison WHERE affect exactly the
// matching row.
func TestUpdateAndDelete(t *testing.T) {
	e := newEnv(t)
	run(t, e, `CREATE TABLE t(id INT, name VARCHAR);`)
	run(t, e, `INSERT INTO t(id,name) VALUES (1,'Alice');`)
	run(t, e, `INSERT INTO t(id,name) VALUES (2,'Bob');`)

	upd := run(t, e, `UPDATE t SET name='Carol' WHERE id = 2;`)
	if !upd.Success || upd.RowsAffected != 1 {
		t.Fatalf("UPDATE: success=%v affected=%d msg=%s", upd.Success, upd.RowsAffected, upd.Message)
	}

	sel := run(t, e, `SELECT name FROM t WHERE id = 2;`)
	if !sel.Success || len(sel.Rows) != 1 || sel.Rows[0]["name"] != "Carol" {
		t.Fatalf("got %#v", sel.Rows)
	}

	del := run(t, e, `DELETE FROM t WHERE id = 1;`)
	if !del.Success || del.RowsAffected != 1 {
		t.Fatalf("DELETE: success=%v affected=%d msg=%s", del.Success, del.RowsAffected, del.Message)
	}
}

func TestCreateTableAlreadyExists(t *testing.T) {
	e := newEnv(t)
	run(t, e, `CREATE TABLE t(id INT);`)
	res := run(t, e, `CREATE TABLE t(id INT);`)
	if res.Success {
		t.Fatal("expected CREATE TABLE on an existing table to fail")
	}
}

func TestInsertIntoMissingTable(t *testing.T) {
	e := newEnv(t)
	res := run(t, e, `INSERT INTO nope(id) VALUES (1);`)
	if res.Success {
		t.Fatal("expected INSERT into a missing table to fail")
	}
}

func TestCreateAndDropIndex(t *testing.T) {
	e := newEnv(t)
	run(t, e, `CREATE TABLE t(id INT, sal INT);`)
	run(t, e, `INSERT INTO t(id,sal) VALUES (1,100);`)
	res := run(t, e, `CREATE INDEX idx_sal ON t(sal);`)
	if !res.Success {
		t.Fatalf("CREATE INDEX failed: %s", res.Message)
	}
	entry, ok := e.Indexes.Get("t", "sal")
	if !ok || entry.Len() != 1 {
		t.Fatalf("expected one indexed entry, got ok=%v len=%v", ok, entry)
	}

	res = run(t, e, `DROP INDEX idx_sal;`)
	if !res.Success {
		t.Fatalf("DROP INDEX failed: %s", res.Message)
	}
	if _, ok := e.Indexes.Get("t", "sal"); ok {
		t.Fatal("index should be gone after DROP INDEX")
	}
}
