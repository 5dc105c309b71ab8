package planner

import (
	"testing"

	"github.com/nrgarcia/machdb/parser"
	"github.com/nrgarcia/machdb/record"
)

func mustLower(t *testing.T, sql string) Plan {
	t.Helper()
	stmts, err := parser.Parse(sql)
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("parse %q: got %d statements, want 1", sql, len(stmts))
	}
	plan, err := Lower(stmts[0])
	if err != nil {
		t.Fatalf("lower %q: %v", sql, err)
	}
	return plan
}

func TestLowerCreateTable(t *testing.T) {
	plan := mustLower(t, "CREATE TABLE users (id INT, name VARCHAR);")
	ct, ok := plan.(CreateTablePlan)
	if !ok {
		t.Fatalf("got %T, want CreateTablePlan", plan)
	}
	if ct.TableName != "users" {
		t.Errorf("TableName = %q", ct.TableName)
	}
	want := []record.ColumnInfo{
		{Name: "id", Type: record.IntType, Nullable: true},
		{Name: "name", Type: record.VarcharType, Nullable: true},
	}
	if len(ct.Columns) != len(want) {
		t.Fatalf("Columns = %+v", ct.Columns)
	}
	for i, c := range want {
		if ct.Columns[i] != c {
			t.Errorf("Columns[%d] = %+v, want %+v", i, ct.Columns[i], c)
		}
	}
}

func TestLowerCreateIndex(t *testing.T) {
	plan := mustLower(t, "CREATE UNIQUE INDEX idx_id ON users(id);")
	ci, ok := plan.(CreateIndexPlan)
	if !ok {
		t.Fatalf("got %T, want CreateIndexPlan", plan)
	}
	if ci.IndexName != "idx_id" || ci.TableName != "users" || ci.ColumnName != "id" || !ci.Unique {
		t.Errorf("got %+v", ci)
	}
}

func TestLowerInsertWithColumnList(t *testing.T) {
	plan := mustLower(t, "INSERT INTO users (id, name) VALUES (1, 'Alice');")
	ip, ok := plan.(InsertPlan)
	if !ok {
		t.Fatalf("got %T, want InsertPlan", plan)
	}
	if ip.TableName != "users" {
		t.Errorf("TableName = %q", ip.TableName)
	}
	if len(ip.Columns) != 2 || ip.Columns[0] != "id" || ip.Columns[1] != "name" {
		t.Errorf("Columns = %+v", ip.Columns)
	}
	if len(ip.Values) != 2 || ip.Values[0].IsString || ip.Values[0].Text != "1" {
		t.Errorf("Values[0] = %+v", ip.Values[0])
	}
	if !ip.Values[1].IsString || ip.Values[1].Text != "Alice" {
		t.Errorf("Values[1] = %+v", ip.Values[1])
	}
}

func TestLowerInsertWithoutColumnList(t *testing.T) {
	plan := mustLower(t, "INSERT INTO users VALUES (1, 'Alice');")
	ip := plan.(InsertPlan)
	if len(ip.Columns) != 0 {
		t.Errorf("Columns = %+v, want none", ip.Columns)
	}
}

func TestLowerDeleteFlattensCompositeWhere(t *testing.T) {
	plan := mustLower(t, "DELETE FROM users WHERE id = 1 AND name = 'Alice';")
	dp := plan.(DeletePlan)
	if dp.TableName != "users" {
		t.Errorf("TableName = %q", dp.TableName)
	}
	if dp.Cond.Column != "id" || dp.Cond.Operator != "=" || dp.Cond.Value != int32(1) {
		t.Errorf("Cond = %+v, want the first comparison only", dp.Cond)
	}
}

func TestLowerUpdateWithWhere(t *testing.T) {
	plan := mustLower(t, "UPDATE users SET name = 'Bob' WHERE id = 2;")
	up := plan.(UpdatePlan)
	if len(up.Assignments) != 1 || up.Assignments[0].Column != "name" || up.Assignments[0].Value.Text != "Bob" {
		t.Errorf("Assignments = %+v", up.Assignments)
	}
	if up.Cond.Column != "id" || up.Cond.Value != int32(2) {
		t.Errorf("Cond = %+v", up.Cond)
	}
}

func TestLowerSelectStarBuildsSeqScanAndProject(t *testing.T) {
	plan := mustLower(t, "SELECT * FROM users;")
	pp, ok := plan.(ProjectPlan)
	if !ok {
		t.Fatalf("got %T, want ProjectPlan", plan)
	}
	if len(pp.Items) != 1 || pp.Items[0].Kind != ItemStar {
		t.Fatalf("Items = %+v", pp.Items)
	}
	scan, ok := pp.Input.(SeqScanPlan)
	if !ok || scan.TableName != "users" {
		t.Fatalf("Input = %+v", pp.Input)
	}
}

func TestLowerSelectWithWhereGroupOrderLimit(t *testing.T) {
	plan := mustLower(t, "SELECT name, COUNT(*) AS total FROM users WHERE id > 0 "+
		"GROUP BY name ORDER BY total DESC LIMIT 5;")
	pp := plan.(ProjectPlan)
	if len(pp.Items) != 2 || pp.Items[0].Column != "name" || pp.Items[1].Agg != "COUNT" || pp.Items[1].Alias != "total" {
		t.Fatalf("Items = %+v", pp.Items)
	}

	limit, ok := pp.Input.(LimitPlan)
	if !ok || limit.Count != 5 {
		t.Fatalf("Input = %+v, want LimitPlan(5)", pp.Input)
	}
	order, ok := limit.Input.(OrderByPlan)
	if !ok || len(order.Keys) != 1 || order.Keys[0].Column != "total" || !order.Keys[0].Desc {
		t.Fatalf("Input = %+v, want OrderByPlan(total DESC)", limit.Input)
	}
	group, ok := order.Input.(GroupByPlan)
	if !ok || len(group.Keys) != 1 || group.Keys[0] != "name" {
		t.Fatalf("Input = %+v, want GroupByPlan(name)", order.Input)
	}
	filter, ok := group.Input.(FilterPlan)
	if !ok || filter.Cond == nil {
		t.Fatalf("Input = %+v, want FilterPlan", group.Input)
	}
	if _, ok := filter.Input.(SeqScanPlan); !ok {
		t.Fatalf("innermost input = %+v, want SeqScanPlan", filter.Input)
	}
}

func TestHasAggregates(t *testing.T) {
	plan := mustLower(t, "SELECT SUM(amount) FROM orders;")
	pp := plan.(ProjectPlan)
	if !HasAggregates(pp.Items) {
		t.Fatal("HasAggregates = false, want true")
	}

	plan2 := mustLower(t, "SELECT amount FROM orders;")
	pp2 := plan2.(ProjectPlan)
	if HasAggregates(pp2.Items) {
		t.Fatal("HasAggregates = true, want false")
	}
}
