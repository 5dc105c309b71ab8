// Package format provides SQL generation from machdb's uniform AST.
package format

import (
	"bytes"
	"fmt"

	"github.com/nrgarcia/machdb/ast"
)

// Options controls formatting behavior.
type Options struct {
	Uppercase bool // uppercase keywords
}

// DefaultOptions are the default formatting options.
var DefaultOptions = Options{Uppercase: true}

// Formatter generates SQL text from an ast.Node tree.
type Formatter struct {
	buf  bytes.Buffer
	opts Options
}

// New creates a Formatter with the given options.
func New(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// String formats a node to a single-line SQL string using DefaultOptions.
func String(n *ast.Node) string {
	f := New(DefaultOptions)
	f.Format(n)
	return f.buf.String()
}

func (f *Formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *Formatter) kw(s string) {
	if !f.opts.Uppercase {
		s = toLower(s)
	}
	f.write(s)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Format writes the SQL text of n alone (callers wanting multiple
// statements call Format once per node and join with "; " themselves).
func (f *Formatter) Format(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.CreateTable:
		f.formatCreateTable(n)
	case ast.CreateIndex:
		f.formatCreateIndex(n)
	case ast.DropIndex:
		f.formatDropIndex(n)
	case ast.Insert:
		f.formatInsert(n)
	case ast.Select:
		f.formatSelect(n)
	case ast.Update:
		f.formatUpdate(n)
	case ast.Delete:
		f.formatDelete(n)
	case ast.Cond:
		f.formatCond(n)
	case ast.ColumnRef:
		f.write(n.Value)
	case ast.Literal:
		f.formatLiteral(n)
	case ast.Star:
		f.write("*")
	case ast.AggCall:
		f.formatAggCall(n)
	default:
		f.write(fmt.Sprintf("<%s>", n.Kind))
	}
}

func (f *Formatter) formatCreateTable(n *ast.Node) {
	f.kw("CREATE TABLE ")
	f.write(n.Child(ast.TableName).Value)
	f.write(" (")
	first := true
	for _, c := range n.Children {
		if c.Kind != ast.ColumnDef {
			continue
		}
		if !first {
			f.write(", ")
		}
		first = false
		f.write(c.Value)
		f.write(" ")
		f.kw(c.Children[0].Value)
	}
	f.write(")")
}

func (f *Formatter) formatCreateIndex(n *ast.Node) {
	f.kw("CREATE ")
	if n.Value == "UNIQUE" {
		f.kw("UNIQUE ")
	}
	f.kw("INDEX ")
	f.write(n.Children[0].Value)
	f.kw(" ON ")
	f.write(n.Children[1].Value)
	f.write("(")
	f.write(n.Children[2].Value)
	f.write(")")
}

func (f *Formatter) formatDropIndex(n *ast.Node) {
	f.kw("DROP INDEX ")
	f.write(n.Value)
}

func (f *Formatter) formatInsert(n *ast.Node) {
	f.kw("INSERT INTO ")
	f.write(n.Child(ast.TableName).Value)
	if cols := n.Child(ast.ColumnList); cols != nil {
		f.write(" (")
		for i, c := range cols.Children {
			if i > 0 {
				f.write(", ")
			}
			f.write(c.Value)
		}
		f.write(")")
	}
	f.kw(" VALUES (")
	vals := n.Child(ast.ValueList)
	for i, v := range vals.Children {
		if i > 0 {
			f.write(", ")
		}
		f.formatLiteral(v)
	}
	f.write(")")
}

func (f *Formatter) formatSelect(n *ast.Node) {
	f.kw("SELECT ")
	list := n.Child(ast.SelectList)
	for i, item := range list.Children {
		if i > 0 {
			f.write(", ")
		}
		f.Format(item.Children[0])
		if item.Value != "" {
			f.kw(" AS ")
			f.write(item.Value)
		}
	}
	f.kw(" FROM ")
	f.write(n.Child(ast.TableName).Value)

	if where := n.Child(ast.Where); where != nil {
		f.kw(" WHERE ")
		f.Format(where.Children[0])
	}
	if group := n.Child(ast.GroupBy); group != nil {
		f.kw(" GROUP BY ")
		for i, c := range group.Children {
			if i > 0 {
				f.write(", ")
			}
			f.write(c.Value)
		}
	}
	if order := n.Child(ast.OrderBy); order != nil {
		f.kw(" ORDER BY ")
		for i, k := range order.Children {
			if i > 0 {
				f.write(", ")
			}
			f.write(k.Children[0].Value)
			f.write(" ")
			f.kw(k.Value)
		}
	}
	if limit := n.Child(ast.Limit); limit != nil {
		f.kw(" LIMIT ")
		f.write(limit.Value)
	}
}

func (f *Formatter) formatUpdate(n *ast.Node) {
	f.kw("UPDATE ")
	f.write(n.Child(ast.TableName).Value)
	f.kw(" SET ")
	assigns := n.Child(ast.AssignList)
	for i, a := range assigns.Children {
		if i > 0 {
			f.write(", ")
		}
		f.write(a.Value)
		f.write(" = ")
		f.formatLiteral(a.Children[0])
	}
	if where := n.Child(ast.Where); where != nil {
		f.kw(" WHERE ")
		f.Format(where.Children[0])
	}
}

func (f *Formatter) formatDelete(n *ast.Node) {
	f.kw("DELETE FROM ")
	f.write(n.Child(ast.TableName).Value)
	if where := n.Child(ast.Where); where != nil {
		f.kw(" WHERE ")
		f.Format(where.Children[0])
	}
}

func (f *Formatter) formatCond(n *ast.Node) {
	f.write("(")
	f.Format(n.Children[0])
	f.write(" ")
	f.write(n.Value)
	f.write(" ")
	f.Format(n.Children[1])
	f.write(")")
}

func (f *Formatter) formatLiteral(n *ast.Node) {
	if n.Kind == ast.Star {
		f.write("*")
		return
	}
	if n.Kind == ast.ColumnRef {
		f.write(n.Value)
		return
	}
	if n.Kind == ast.Cond {
		f.formatCond(n)
		return
	}
	switch n.Tok.String() {
	case "STRING":
		f.write("'")
		f.write(n.Value)
		f.write("'")
	default:
		f.write(n.Value)
	}
}

func (f *Formatter) formatAggCall(n *ast.Node) {
	f.kw(n.Value)
	f.write("(")
	f.Format(n.Children[0])
	f.write(")")
}
