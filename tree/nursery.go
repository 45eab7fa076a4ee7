package tree

import (
	"fmt"

	"github.com/TobyBrull/silva-sub000/catalog"
)

// protoNode accumulates what will become a Node once its owning Stake
// commits: a child count and a running min/max over the token range its
// descendants have touched so far.
type protoNode struct {
	numChildren uint32
	subtreeSize uint32
	tokenBegin  uint32
	tokenEnd    uint32
}

func emptyProtoNode() protoNode {
	return protoNode{tokenBegin: ^uint32(0), tokenEnd: 0}
}

// merge folds a committed child's proto-node into its parent's running total.
func (p *protoNode) merge(child protoNode) {
	p.numChildren += child.numChildren
	p.subtreeSize += child.subtreeSize
	if child.tokenBegin < p.tokenBegin {
		p.tokenBegin = child.tokenBegin
	}
	if child.tokenEnd > p.tokenEnd {
		p.tokenEnd = child.tokenEnd
	}
}

// Nursery is a transactional builder of a Tree. A parse walks the grammar
// and opens a Stake per rule invocation; every node it adds is provisional
// until the stake Commits, and vanishes if the stake is instead Cleared
// (dropped), which is how PEG backtracking is implemented: failed
// alternatives leave no trace in the tree or the token cursor.
//
// Stakes must be closed in LIFO order, mirroring C++ scope-guard lifetimes:
// opening a stake pushes a generation onto an internal stack, and Commit or
// Clear must be called on the top-most open stake.
type Nursery struct {
	tree        []Node
	tokens      []catalog.TokenId
	tokenIndex  int
	openStakes  []stakeState // stack of generations, for LIFO discipline
}

type stakeState struct {
	treeSize   int
	tokenIndex int
}

// NewNursery creates a Nursery that will consume tokens from the given
// token stream, starting at position 0.
func NewNursery(tokens []catalog.TokenId) *Nursery {
	return &Nursery{tokens: tokens}
}

func (nu *Nursery) NumTokensLeft() int { return len(nu.tokens) - nu.tokenIndex }

func (nu *Nursery) TokenIndex() int { return nu.tokenIndex }

// TokenIdAt returns the token id at the cursor's current position, or
// catalog.TokenIdNone if the stream is exhausted.
func (nu *Nursery) TokenIdAt() catalog.TokenId {
	if nu.tokenIndex >= len(nu.tokens) {
		return catalog.TokenIdNone
	}
	return nu.tokens[nu.tokenIndex]
}

// Advance consumes one token, moving the cursor forward. It must only be
// called when NumTokensLeft() > 0.
func (nu *Nursery) Advance() {
	if nu.tokenIndex >= len(nu.tokens) {
		panic("tree: Advance called with no tokens left")
	}
	nu.tokenIndex++
}

func (nu *Nursery) state() stakeState {
	return stakeState{treeSize: len(nu.tree), tokenIndex: nu.tokenIndex}
}

func (nu *Nursery) setState(s stakeState) {
	nu.tree = nu.tree[:s.treeSize]
	nu.tokenIndex = s.tokenIndex
}

// Stake is a single open transaction against a Nursery. Every node appended
// through a Stake (directly via CreateNode, or indirectly via a child
// stake's Commit) is provisional until this Stake's Commit is called; Clear
// (or never calling Commit) discards it and rewinds the tree and token
// cursor to exactly where they were when the Stake was opened.
type Stake struct {
	nu         *Nursery
	generation int
	start      stakeState
	proto      protoNode
	ownsNode   bool
	nodeSlot   int
	closed     bool
}

// Stake opens a new transaction. The returned Stake must eventually be
// Committed or Cleared, in LIFO order relative to any other open Stake on
// the same Nursery.
func (nu *Nursery) Stake() *Stake {
	s := &Stake{
		nu:         nu,
		generation: len(nu.openStakes),
		start:      nu.state(),
		proto:      emptyProtoNode(),
	}
	nu.openStakes = append(nu.openStakes, s.start)
	return s
}

func (s *Stake) requireTop() {
	if s.closed {
		panic("tree: stake used after Commit/Clear")
	}
	if s.generation != len(s.nu.openStakes)-1 {
		panic("tree: stakes must be closed in LIFO order")
	}
}

// CreateNode reserves a node of the given rule name as this stake's own
// node. A stake may own at most one node; the node's final NumChildren,
// SubtreeSize and token range are filled in when Commit runs. Any node
// created by a nested stake before this one commits becomes this node's
// child.
func (s *Stake) CreateNode(ruleName catalog.NameId) {
	s.requireTop()
	if s.ownsNode {
		panic("tree: stake already owns a node")
	}
	s.ownsNode = true
	s.nodeSlot = len(s.nu.tree)
	s.nu.tree = append(s.nu.tree, Node{RuleName: ruleName})
}

// AddProtoNode folds a child stake's already-committed contribution into
// this stake, whether or not this stake owns a node of its own (a stake
// without a node acts as a helper accumulator, e.g. for a sequence whose
// matches are forwarded to the enclosing rule's node).
func (s *Stake) AddProtoNode(child protoNode) {
	s.requireTop()
	s.proto.merge(child)
}

// Commit finalizes this stake: if it owns a node, the node's NumChildren,
// SubtreeSize and token range are written in, and the node's own subtree
// (itself plus everything appended since CreateNode) becomes a single
// child contribution reported to the parent stake. If it owns no node,
// its accumulated children are forwarded to the parent unchanged.
// Commit returns the proto-node describing what was just added, so a
// caller can fold it into a parent stake (see CommitInto) or inspect it.
func (s *Stake) Commit() protoNode {
	s.requireTop()
	s.closed = true
	s.nu.openStakes = s.nu.openStakes[:s.generation]

	var out protoNode
	if s.ownsNode {
		n := &s.nu.tree[s.nodeSlot]
		n.NumChildren = s.proto.numChildren
		n.SubtreeSize = uint32(len(s.nu.tree)-s.nodeSlot)
		if s.proto.numChildren == 0 {
			n.TokenBegin = uint32(s.start.tokenIndex)
			n.TokenEnd = uint32(s.nu.tokenIndex)
		} else {
			n.TokenBegin = s.proto.tokenBegin
			n.TokenEnd = s.proto.tokenEnd
		}
		out = protoNode{
			numChildren: 1,
			subtreeSize: n.SubtreeSize,
			tokenBegin:  n.TokenBegin,
			tokenEnd:    n.TokenEnd,
		}
	} else {
		out = s.proto
		if out.numChildren == 0 {
			out.tokenBegin = uint32(s.start.tokenIndex)
			out.tokenEnd = uint32(s.nu.tokenIndex)
		}
	}
	return out
}

// CommitInto is a convenience for the common case: commit this stake and
// immediately fold the result into the parent stake.
func (s *Stake) CommitInto(parent *Stake) {
	parent.AddProtoNode(s.Commit())
}

// Clear discards everything this stake (and any stake nested inside it)
// has done, rewinding the tree and token cursor to the state captured when
// this stake was opened. This is PEG backtracking: a failed alternative
// leaves the Nursery exactly as it found it.
func (s *Stake) Clear() {
	s.requireTop()
	s.closed = true
	s.nu.openStakes = s.nu.openStakes[:s.generation]
	s.nu.setState(s.start)
}

// NodeSlot returns the absolute tree index of the node this stake owns.
// Valid once CreateNode has run, both before and after Commit.
func (s *Stake) NodeSlot() int {
	if !s.ownsNode {
		panic("tree: stake owns no node")
	}
	return s.nodeSlot
}

// AddChildSpan folds an already-finished subtree (addressed by Span rather
// than by a child Stake) into this stake as one child. This is how the Axe
// engine's atom-stitching pass splices a previously-saved atom subtree back
// in: the subtree's nodes must already be the tail of this Nursery's tree
// (see AppendSubtree).
func (s *Stake) AddChildSpan(sp Span) {
	s.requireTop()
	n := sp.Node()
	s.proto.merge(protoNode{
		numChildren: 1,
		subtreeSize: n.SubtreeSize,
		tokenBegin:  n.TokenBegin,
		tokenEnd:    n.TokenEnd,
	})
}

// TreeLen returns the current number of nodes in the Nursery's tree. The
// Axe engine uses this to mark the start of the region it may later need to
// copy out and rewind, since its atom-then-rewind-then-restitch procedure
// operates below the granularity a Stake alone can express.
func (nu *Nursery) TreeLen() int { return len(nu.tree) }

// Tree exposes the Nursery's current node slice directly, for code (the Axe
// engine) that needs to build a Span over nodes still being assembled,
// before any enclosing Stake has committed.
func (nu *Nursery) Tree() []Node { return nu.tree }

// CopyNodesFrom returns a standalone copy of the nodes appended since mark
// (as previously returned by TreeLen). The copy is safe to hold across a
// subsequent TruncateTree.
func (nu *Nursery) CopyNodesFrom(mark int) []Node {
	out := make([]Node, len(nu.tree)-mark)
	copy(out, nu.tree[mark:])
	return out
}

// TruncateTree discards every node appended since mark, without touching
// the token cursor. It must only be used by code (the Axe engine) that has
// already saved via CopyNodesFrom whatever of that region it still needs,
// and that will fully re-populate the region via AppendSubtree before any
// enclosing Stake commits.
func (nu *Nursery) TruncateTree(mark int) {
	nu.tree = nu.tree[:mark]
}

// AppendSubtree appends a previously-copied, self-contained subtree (as
// returned by CopyNodesFrom) to the end of the tree. A subtree's internal
// child offsets are relative, so a verbatim copy remains valid at its new
// position.
func (nu *Nursery) AppendSubtree(nodes []Node) {
	nu.tree = append(nu.tree, nodes...)
}

// Finish closes the top-level stake and produces the finished Tree. It
// requires the stake to own exactly one node covering the entire token
// stream, which every successful grammar entry point must establish.
func (nu *Nursery) Finish(root *Stake, tz Tokenization) (Tree, error) {
	p := root.Commit()
	if nu.tokenIndex != len(nu.tokens) {
		return Tree{}, fmt.Errorf("tree: parse stopped at token %d of %d", nu.tokenIndex, len(nu.tokens))
	}
	if p.numChildren != 1 {
		return Tree{}, fmt.Errorf("tree: expected exactly one root node, got %d", p.numChildren)
	}
	if int(p.subtreeSize) != len(nu.tree) {
		return Tree{}, fmt.Errorf("tree: root subtree_size %d does not cover all %d emitted nodes", p.subtreeSize, len(nu.tree))
	}
	return Tree{Nodes: nu.tree, Tokenization: tz}, nil
}
