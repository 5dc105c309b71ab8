package visitor

import "github.com/nrgarcia/machdb/ast"

// RewriteFunc transforms a node, returning its replacement. Returning
// the input node unchanged is the identity transform.
type RewriteFunc func(*ast.Node) *ast.Node

// Rewrite applies f bottom-up over n's subtree: children are rewritten
// first, then f is applied to the (possibly already-mutated) node
// itself. This matches the order a constant-folding or name-resolution
// pass needs, since it must see already-rewritten children.
func Rewrite(n *ast.Node, f RewriteFunc) *ast.Node {
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		n.Children[i] = Rewrite(c, f)
	}
	return f(n)
}
