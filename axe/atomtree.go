package axe

import "github.com/TobyBrull/silva-sub000/catalog"

// atomTreeNode is the lightweight structural tree the shunting-yard loop
// builds while parsing: atom leaves reference a pre-resolved span
// of the Nursery's tree by relative offset, rather than carrying the
// subtree itself, so large atom subtrees are never copied twice. Operator
// nodes carry only what is needed to later emit a fresh parse-tree node:
// the rule name they produce and their operand children, in order.
type atomTreeNode struct {
	isAtom bool

	// relOffset is this atom's root index, valid only when isAtom is true:
	// an absolute tree index while collect runs, rebased by adjustOffsets
	// to an index within the span runAxeCycle saves.
	relOffset int

	produces     catalog.NameId
	flattenGroup int // 0 if not part of a flatten group
	children     []*atomTreeNode
}

func leafAtom(relOffset int) *atomTreeNode {
	return &atomTreeNode{isAtom: true, relOffset: relOffset}
}

func operatorNode(produces catalog.NameId, flattenGroup int, children ...*atomTreeNode) *atomTreeNode {
	return &atomTreeNode{produces: produces, flattenGroup: flattenGroup, children: children}
}
