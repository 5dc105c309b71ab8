// Package visitor provides AST traversal and rewriting utilities over
// machdb's uniform ast.Node tree. Because every node shares one shape,
// walking reduces to iterating Children rather than switching over a
// per-statement type as a typed AST would require.
package visitor

import "github.com/nrgarcia/machdb/ast"

// Visitor is the interface for AST traversal. Visit is called on each
// node; if it returns nil the node's children are not visited.
type Visitor interface {
	Visit(node *ast.Node) Visitor
}

// Walk traverses n's subtree in depth-first, pre-order fashion.
func Walk(v Visitor, n *ast.Node) {
	if n == nil {
		return
	}
	if v = v.Visit(n); v == nil {
		return
	}
	for _, c := range n.Children {
		Walk(v, c)
	}
}

// Inspect calls f for every node in n's subtree, including n itself.
// Traversal stops descending into a subtree when f returns false.
func Inspect(n *ast.Node, f func(*ast.Node) bool) {
	Walk(inspector(f), n)
}

type inspector func(*ast.Node) bool

func (f inspector) Visit(n *ast.Node) Visitor {
	if f(n) {
		return f
	}
	return nil
}

// Find returns the first node in n's subtree matching kind, or nil.
func Find(n *ast.Node, kind ast.Kind) *ast.Node {
	var found *ast.Node
	Inspect(n, func(cur *ast.Node) bool {
		if found != nil {
			return false
		}
		if cur.Kind == kind {
			found = cur
			return false
		}
		return true
	})
	return found
}

// Count reports how many nodes in n's subtree have the given kind.
func Count(n *ast.Node, kind ast.Kind) int {
	count := 0
	Inspect(n, func(cur *ast.Node) bool {
		if cur.Kind == kind {
			count++
		}
		return true
	})
	return count
}
