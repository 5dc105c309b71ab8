// Package ast defines machdb's AST: a single uniform node shape (kind,
// value, children), rather than one Go type per grammar
// production. A statement's clauses are found by Kind (see Child);
// smaller pieces such as a Cond's operands or a ColumnDef's type leaf
// sit in the fixed positions documented on each Kind below.
package ast

import "github.com/nrgarcia/machdb/token"

// Kind identifies what a Node represents.
type Kind int

const (
	Invalid Kind = iota

	// Statements
	CreateTable
	CreateIndex
	DropIndex
	Insert
	Select
	Update
	Delete

	// CreateTable / CreateIndex pieces
	ColumnDef // Value = column name; Children[0] = type leaf (Int/Varchar)
	Int       // leaf, Value = "INT"
	Varchar   // leaf, Value = "VARCHAR"
	TableName // leaf, Value = table name

	// Insert pieces
	ColumnList // Children = ColumnRef leaves, insertion order
	ValueList  // Children = Literal leaves, insertion order

	// Select pieces
	SelectList // Children = SelectItem (or Star)
	SelectItem // Value = alias ("" if none); Children[0] = Star|ColumnRef|AggCall
	Star       // leaf, "*"
	AggCall    // Value = COUNT|SUM|AVG|MIN|MAX; Children[0] = Star|ColumnRef
	Where      // Children[0] = boolean expression root (Cond)
	GroupBy    // Children = ColumnRef leaves
	OrderBy    // Children = OrderKey
	OrderKey   // Value = ASC|DESC; Children[0] = ColumnRef
	Limit      // leaf, Value = count text

	// Update pieces
	AssignList // Children = Assignment
	Assignment // Value = column name; Children[0] = Literal

	// Shared expression pieces
	ColumnRef // leaf, Value = column name
	Literal   // leaf, Value = literal text; Tok = NUMBER|STRING
	Cond      // Value = "=" "!=" "<" "<=" ">" ">=" "AND" "OR"; Children = [left, right]
)

// Node is machdb's uniform AST node.
type Node struct {
	Kind     Kind
	Value    string
	Children []*Node
	Pos      token.Pos
	Tok      token.Token // meaningful only for Literal leaves
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Invalid"
}

var kindNames = [...]string{
	CreateTable: "CreateTable",
	CreateIndex: "CreateIndex",
	DropIndex:   "DropIndex",
	Insert:      "Insert",
	Select:      "Select",
	Update:      "Update",
	Delete:      "Delete",
	ColumnDef:   "ColumnDef",
	Int:         "Int",
	Varchar:     "Varchar",
	TableName:   "TableName",
	ColumnList:  "ColumnList",
	ValueList:   "ValueList",
	SelectList:  "SelectList",
	SelectItem:  "SelectItem",
	Star:        "Star",
	AggCall:     "AggCall",
	Where:       "Where",
	GroupBy:     "GroupBy",
	OrderBy:     "OrderBy",
	OrderKey:    "OrderKey",
	Limit:       "Limit",
	AssignList:  "AssignList",
	Assignment:  "Assignment",
	ColumnRef:   "ColumnRef",
	Literal:     "Literal",
	Cond:        "Cond",
}

// Child returns the first direct child with the given kind, or nil.
func (n *Node) Child(k Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}
