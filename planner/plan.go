// Package planner lowers a parsed ast.Node into a tree of logical
// operators the executor interprets directly. The lowering is a single
// pass over the AST, one case per ast.Kind, the same shape as the
// visitor package's generic traversal, specialized here to build a
// plan instead of rewriting the tree it walks.
package planner

import (
	"github.com/nrgarcia/machdb/ast"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/record"
	"github.com/nrgarcia/machdb/table"
)

// Plan is any node of the logical operator tree.
type Plan interface {
	planNode()
}

// CreateTablePlan registers a new table's schema.
type CreateTablePlan struct {
	TableName string
	Columns   []record.ColumnInfo
}

// CreateIndexPlan builds a new index over (TableName, ColumnName).
type CreateIndexPlan struct {
	IndexName  string
	TableName  string
	ColumnName string
	Unique     bool
}

// DropIndexPlan removes a previously created index.
type DropIndexPlan struct {
	IndexName string
}

// Literal is a parsed literal value awaiting schema-typed coercion:
// the executor, not the planner, knows each column's declared type,
// so the literal is carried as text plus its lexical class until then.
type Literal struct {
	Text string
	// IsString is true for a STRING token, false for NUMBER.
	IsString bool
}

// InsertPlan appends one row. Columns is empty when the statement
// omitted an explicit column list, meaning "every column, in schema
// order".
type InsertPlan struct {
	TableName string
	Columns   []string
	Values    []Literal
}

// Assignment is one `col = literal` pair of an UPDATE's SET clause.
type Assignment struct {
	Column string
	Value  Literal
}

// UpdatePlan overwrites matching rows. Cond is flattened to (at most)
// one comparison: the table store's mutation path cannot express
// AND/OR, so a composite WHERE degrades to its first comparison,
// matching the reference engine's documented behavior.
type UpdatePlan struct {
	TableName   string
	Assignments []Assignment
	Cond        table.Condition
}

// DeletePlan removes matching rows, with the same flattening as
// UpdatePlan.
type DeletePlan struct {
	TableName string
	Cond      table.Condition
}

// SeqScanPlan yields every live record of a table.
type SeqScanPlan struct {
	TableName string
}

// FilterPlan forwards rows from Input matching Cond, evaluated
// recursively against the full AND/OR/comparison tree (unlike
// UpdatePlan/DeletePlan, SELECT's WHERE is never flattened).
type FilterPlan struct {
	Input Plan
	Cond  *ast.Node
}

// ItemKind distinguishes the three shapes a select-list entry can take.
type ItemKind int

const (
	ItemStar ItemKind = iota
	ItemColumn
	ItemAgg
)

// SelectItem is one projected output column.
type SelectItem struct {
	Kind   ItemKind
	Column string // ItemColumn, or ItemAgg's argument column ("" means "*")
	Agg    string // ItemAgg only: COUNT|SUM|AVG|MIN|MAX
	Alias  string // from "AS alias", else ""
}

// OutputName is the select item's result column name absent an alias.
func (i SelectItem) OutputName() string {
	if i.Alias != "" {
		return i.Alias
	}
	switch i.Kind {
	case ItemAgg:
		col := i.Column
		if col == "" {
			col = "*"
		}
		return i.Agg + "(" + col + ")"
	case ItemStar:
		return "*"
	default:
		return i.Column
	}
}

// HasAggregates reports whether any item is an aggregate call.
func HasAggregates(items []SelectItem) bool {
	for _, it := range items {
		if it.Kind == ItemAgg {
			return true
		}
	}
	return false
}

// GroupByPlan partitions Input by Keys and computes Items per group.
type GroupByPlan struct {
	Input Plan
	Keys  []string
	Items []SelectItem
}

// OrderKey is one ORDER BY column plus direction.
type OrderKey struct {
	Column string
	Desc   bool
}

// OrderByPlan stably sorts Input by Keys.
type OrderByPlan struct {
	Input Plan
	Keys  []OrderKey
}

// LimitPlan takes the first Count rows of Input.
type LimitPlan struct {
	Input Plan
	Count int
}

// ProjectPlan narrows each row of Input to Items. When Input's chain
// passes through a GroupByPlan (possibly under OrderBy/Limit), each
// group's row already carries Items and passes through. When Items
// contains aggregates over an ungrouped input, Project instead reduces
// Input's full row set to one row.
type ProjectPlan struct {
	Input Plan
	Items []SelectItem
}

func (CreateTablePlan) planNode() {}
func (CreateIndexPlan) planNode() {}
func (DropIndexPlan) planNode()   {}
func (InsertPlan) planNode()     {}
func (UpdatePlan) planNode()     {}
func (DeletePlan) planNode()     {}
func (SeqScanPlan) planNode()    {}
func (FilterPlan) planNode()     {}
func (GroupByPlan) planNode()    {}
func (OrderByPlan) planNode()    {}
func (LimitPlan) planNode()      {}
func (ProjectPlan) planNode()    {}

// wrapError annotates lowering failures with a SemanticError kind,
// matching the error taxonomy for AST-to-plan problems that
// are not lexical or parse errors.
func wrapError(format string, args ...any) error {
	return dberr.New(dberr.SemanticError, format, args...)
}
