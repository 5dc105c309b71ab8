package ast

import (
	"sync"

	"github.com/nrgarcia/machdb/token"
)

// Node pooling mirrors a per-grammar-type sync.Pool slice design,
// generalized to the single uniform Node shape: one pool for *Node and
// one for the []*Node backing arrays used as Children.

var nodePool = sync.Pool{
	New: func() any { return &Node{} },
}

var childSlicePool = sync.Pool{
	New: func() any {
		s := make([]*Node, 0, 4)
		return &s
	},
}

// NewNode returns a pooled *Node reset to the given kind/value.
func NewNode(kind Kind, value string) *Node {
	n := nodePool.Get().(*Node)
	n.Kind = kind
	n.Value = value
	n.Children = nil
	n.Pos = token.Pos{}
	n.Tok = 0
	return n
}

// GetChildSlice returns a pooled []*Node with zero length.
func GetChildSlice() []*Node {
	s := childSlicePool.Get().(*[]*Node)
	*s = (*s)[:0]
	return *s
}

// Release returns a node and its entire subtree to the pools. Callers
// that don't need the throughput gain may simply let the tree be
// garbage-collected instead of calling Release.
func Release(n *Node) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		Release(c)
	}
	children := n.Children
	*n = Node{}
	nodePool.Put(n)
	if children != nil {
		children = children[:0]
		childSlicePool.Put(&children)
	}
}
