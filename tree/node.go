// Package tree implements the immutable parse-tree model produced by the
// Seed interpreter and Axe engine: a pre-order array of nodes where every
// subtree occupies a contiguous slice, plus the Nursery that builds one.
package tree

import (
	"fmt"

	"github.com/TobyBrull/silva-sub000/catalog"
)

// Node is a single parse-tree record. Nodes are stored contiguously in
// pre-order; SubtreeSize lets a reader skip an entire subtree in O(1) and
// find the k-th child in O(k).
type Node struct {
	RuleName    catalog.NameId
	NumChildren uint32
	SubtreeSize uint32 // self + all descendants, >= 1
	TokenBegin  uint32 // inclusive
	TokenEnd    uint32 // exclusive
}

func (n Node) NumTokens() uint32 { return n.TokenEnd - n.TokenBegin }

// Location describes where a token originated, for error messages.
type Location struct {
	File string
	Line int
	Col  int
}

// Tokenization is the external, immutable token stream a parse tree is
// built against. It is a collaborator, not part of this package's core
// responsibility: any source of TokenIds satisfying this contract works.
type Tokenization interface {
	Tokens() []catalog.TokenId
	TokenCount() int
	CategoryOf(catalog.TokenId) catalog.Category
	LocationOf(tokenIndex int) Location
	// UnquoteString decodes a STRING-category token to its plain contents.
	// It fails if id is not a syntactically valid string literal.
	UnquoteString(id catalog.TokenId) (string, error)
}

// Tree is a finished, immutable parse tree together with a back-reference to
// the tokenization it was built from.
type Tree struct {
	Nodes        []Node
	Tokenization Tokenization
}

func (t *Tree) Span() Span {
	return Span{Nodes: t.Nodes, Root: 0, Tokenization: t.Tokenization}
}

// Span is a read-only view of a subtree: the slice Nodes[Root : Root+size)
// where size = Nodes[Root].SubtreeSize, plus a back-reference to the
// tokenization for token lookups.
type Span struct {
	Nodes        []Node
	Root         int
	Tokenization Tokenization
}

func (s Span) Node() Node { return s.Nodes[s.Root] }

func (s Span) Size() int { return int(s.Nodes[s.Root].SubtreeSize) }

func (s Span) RuleName() catalog.NameId { return s.Nodes[s.Root].RuleName }

// TokenRange returns the [begin, end) token range covered by this subtree.
func (s Span) TokenRange() (int, int) {
	n := s.Node()
	return int(n.TokenBegin), int(n.TokenEnd)
}

// FirstTokenId returns the token id at the first position this subtree
// covers; used by terminals, which are always exactly one token wide.
func (s Span) FirstTokenId() catalog.TokenId {
	return s.Tokenization.Tokens()[s.Nodes[s.Root].TokenBegin]
}

// SubTreeSpanAt returns the subtree rooted at the given absolute node index,
// which must lie within this span.
func (s Span) SubTreeSpanAt(nodeIndex int) Span {
	return Span{Nodes: s.Nodes, Root: nodeIndex, Tokenization: s.Tokenization}
}

// ChildIndexes returns the absolute node index of every direct child, in
// order. Finding the k-th child is O(k): each step skips the previous
// child's subtree_size.
func (s Span) ChildIndexes() []int {
	n := s.Node()
	out := make([]int, 0, n.NumChildren)
	cur := s.Root + 1
	for i := uint32(0); i < n.NumChildren; i++ {
		out = append(out, cur)
		cur += int(s.Nodes[cur].SubtreeSize)
	}
	return out
}

// ChildAt returns the k-th direct child's span (0-based), in O(k).
func (s Span) ChildAt(k int) Span {
	n := s.Node()
	if uint32(k) >= n.NumChildren {
		panic(fmt.Sprintf("tree: child index %d out of range (num_children=%d)", k, n.NumChildren))
	}
	cur := s.Root + 1
	for i := 0; i < k; i++ {
		cur += int(s.Nodes[cur].SubtreeSize)
	}
	return s.SubTreeSpanAt(cur)
}

// Copy deep-copies this span's nodes into a standalone Tree rooted at index 0.
func (s Span) Copy() Tree {
	size := s.Size()
	nodes := make([]Node, size)
	copy(nodes, s.Nodes[s.Root:s.Root+size])
	return Tree{Nodes: nodes, Tokenization: s.Tokenization}
}

// String renders a one-line debug form: rule name and token range.
func (s Span) String() string {
	b, e := s.TokenRange()
	return fmt.Sprintf("<node rule=%v tokens=[%d,%d)>", s.RuleName(), b, e)
}
