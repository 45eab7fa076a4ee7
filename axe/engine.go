package axe

import (
	"fmt"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// AtomFunc parses one atom at the Nursery's current token position, on
// success appending exactly one subtree (via its own internal Stake, so a
// failure leaves no trace) and returning true. A false return with a nil
// error means the current position simply is not an atom; a non-nil error
// is a harder failure the caller should propagate rather than retry.
type AtomFunc func(nu *tree.Nursery) (bool, error)

type mode int

const (
	atomMode mode = iota
	infixMode
)

type opFrame struct {
	interp   Interp
	captured *atomTreeNode // PrefixNest/PostfixNest's recursed L…R content
	middle   *atomTreeNode // Ternary's recursed first…second content
}

// Parse runs the shunting-yard loop against nu starting at its current
// token position, producing a single stitched subtree already appended to
// nu's tree, and returns a Span over it.
func Parse(nu *tree.Nursery, spec *Spec, atomFunc AtomFunc) (tree.Span, error) {
	rootIdx, err := runAxeCycle(nu, spec, atomFunc)
	if err != nil {
		return tree.Span{}, err
	}
	return tree.Span{Nodes: nu.Tree(), Root: rootIdx}, nil
}

// runAxeCycle performs one full parse-then-stitch cycle: collect builds the
// lightweight atomTreeNode shape while atoms (real ones, and fully-resolved
// nested bracket contents) accumulate as a contiguous run of nodes in nu's
// tree; that run is then copied out, the tree rewound to before the cycle
// started, and the shape re-emitted in post-order, splicing saved atom
// subtrees back in rather than moving them twice.
func runAxeCycle(nu *tree.Nursery, spec *Spec, atomFunc AtomFunc) (int, error) {
	mark := nu.TreeLen()
	root, err := collect(nu, spec, atomFunc)
	if err != nil {
		return 0, err
	}
	saved := nu.CopyNodesFrom(mark)
	nu.TruncateTree(mark)
	adjustOffsets(root, mark)
	return emitNode(nu, root, saved), nil
}

func adjustOffsets(n *atomTreeNode, mark int) {
	if n.isAtom {
		n.relOffset -= mark
		return
	}
	for _, c := range n.children {
		adjustOffsets(c, mark)
	}
}

// emitNode walks n in post-order, appending to nu's tree either a spliced
// copy of a saved atom subtree (leaves) or a freshly built structural node
// (operators), and returns the index the result was appended at.
func emitNode(nu *tree.Nursery, n *atomTreeNode, saved []tree.Node) int {
	if n.isAtom {
		size := int(saved[n.relOffset].SubtreeSize)
		start := nu.TreeLen()
		nu.AppendSubtree(saved[n.relOffset : n.relOffset+size])
		return start
	}
	st := nu.Stake()
	st.CreateNode(n.produces)
	for _, c := range n.children {
		childIdx := emitNode(nu, c, saved)
		st.AddChildSpan(tree.Span{Nodes: nu.Tree(), Root: childIdx})
	}
	st.Commit()
	return st.NodeSlot()
}

// collect runs the core shunting-yard loop, returning the single
// atomTreeNode left once every token belonging to this axe invocation (or
// this bracket's contents) has been consumed.
func collect(nu *tree.Nursery, spec *Spec, atomFunc AtomFunc) (*atomTreeNode, error) {
	var opStack []opFrame
	var atomStack []*atomTreeNode
	md := atomMode

	pushAtom := func() error {
		start := nu.TreeLen()
		ok, err := atomFunc(nu)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("axe: expected an atom")
		}
		atomStack = append(atomStack, leafAtom(start))
		md = infixMode
		return nil
	}

	reduceOne := func() error {
		top := opStack[len(opStack)-1]
		opStack = opStack[:len(opStack)-1]
		pop := func() *atomTreeNode {
			n := atomStack[len(atomStack)-1]
			atomStack = atomStack[:len(atomStack)-1]
			return n
		}
		switch top.interp.Kind {
		case Prefix:
			if len(atomStack) < 1 {
				return fmt.Errorf("axe: prefix operator missing operand")
			}
			operand := pop()
			atomStack = append(atomStack, operatorNode(top.interp.Produces, 0, operand))
		case PrefixNest:
			if len(atomStack) < 1 {
				return fmt.Errorf("axe: prefix_nest operator missing operand")
			}
			operand := pop()
			atomStack = append(atomStack, operatorNode(top.interp.Produces, 0, top.captured, operand))
		case Postfix:
			if len(atomStack) < 1 {
				return fmt.Errorf("axe: postfix operator missing operand")
			}
			operand := pop()
			atomStack = append(atomStack, operatorNode(top.interp.Produces, 0, operand))
		case PostfixNest:
			if len(atomStack) < 1 {
				return fmt.Errorf("axe: postfix_nest operator missing operand")
			}
			operand := pop()
			atomStack = append(atomStack, operatorNode(top.interp.Produces, 0, operand, top.captured))
		case Infix:
			if len(atomStack) < 2 {
				return fmt.Errorf("axe: infix operator missing operand")
			}
			rhs, lhs := pop(), pop()
			if top.interp.Flatten && top.interp.Prec.FlattenGroup != 0 &&
				!lhs.isAtom && lhs.produces == top.interp.Produces && lhs.flattenGroup == top.interp.Prec.FlattenGroup {
				lhs.children = append(lhs.children, rhs)
				atomStack = append(atomStack, lhs)
			} else {
				atomStack = append(atomStack, operatorNode(top.interp.Produces, top.interp.Prec.FlattenGroup, lhs, rhs))
			}
		case Ternary:
			if len(atomStack) < 2 {
				return fmt.Errorf("axe: ternary operator missing operand")
			}
			rhs, lhs := pop(), pop()
			atomStack = append(atomStack, operatorNode(top.interp.Produces, 0, lhs, top.middle, rhs))
		default:
			return fmt.Errorf("axe: cannot reduce operator kind %v", top.interp.Kind)
		}
		return nil
	}

	popWhile := func(incoming Precedence) error {
		for len(opStack) > 0 {
			top := opStack[len(opStack)-1].interp.Prec
			if top.Less(incoming) {
				break
			}
			if err := reduceOne(); err != nil {
				return err
			}
		}
		return nil
	}

	bracketContent := func(closeTok catalog.TokenId) (*atomTreeNode, error) {
		start := nu.TreeLen()
		if _, err := runAxeCycle(nu, spec, atomFunc); err != nil {
			return nil, err
		}
		if nu.NumTokensLeft() == 0 || nu.TokenIdAt() != closeTok {
			return nil, fmt.Errorf("axe: expected closing bracket")
		}
		nu.Advance()
		return leafAtom(start), nil
	}

	for nu.NumTokensLeft() > 0 {
		tok := nu.TokenIdAt()
		res, known := spec.resultFor(tok)

		if md == atomMode {
			if !known || res.Prefix == nil {
				if err := pushAtom(); err != nil {
					return nil, err
				}
				continue
			}
			switch res.Prefix.Kind {
			case AtomNest:
				nu.Advance()
				inner, err := bracketContent(res.Prefix.Close)
				if err != nil {
					return nil, err
				}
				atomStack = append(atomStack, operatorNode(res.Prefix.Produces, 0, inner))
				md = infixMode
			case Prefix:
				nu.Advance()
				opStack = append(opStack, opFrame{interp: *res.Prefix})
			case PrefixNest:
				nu.Advance()
				captured, err := bracketContent(res.Prefix.Close)
				if err != nil {
					return nil, err
				}
				opStack = append(opStack, opFrame{interp: *res.Prefix, captured: captured})
			default:
				return nil, fmt.Errorf("axe: unexpected prefix kind %v", res.Prefix.Kind)
			}
			continue
		}

		// infixMode
		if !known || res.Regular == nil || res.IsRightBracket {
			if known && res.IsRightBracket {
				break
			}
			if spec.ConcatResult != nil {
				if err := popWhile(spec.ConcatResult.Prec); err != nil {
					return nil, err
				}
				opStack = append(opStack, opFrame{interp: *spec.ConcatResult})
				md = atomMode
				continue
			}
			break
		}
		switch res.Regular.Kind {
		case Postfix:
			if err := popWhile(res.Regular.Prec); err != nil {
				return nil, err
			}
			nu.Advance()
			opStack = append(opStack, opFrame{interp: *res.Regular})
		case PostfixNest:
			if err := popWhile(res.Regular.Prec); err != nil {
				return nil, err
			}
			nu.Advance()
			captured, err := bracketContent(res.Regular.Close)
			if err != nil {
				return nil, err
			}
			opStack = append(opStack, opFrame{interp: *res.Regular, captured: captured})
		case Infix:
			if err := popWhile(res.Regular.Prec); err != nil {
				return nil, err
			}
			nu.Advance()
			opStack = append(opStack, opFrame{interp: *res.Regular})
			md = atomMode
		case Ternary:
			if err := popWhile(res.Regular.Prec); err != nil {
				return nil, err
			}
			nu.Advance()
			middle, err := bracketContent(res.Regular.Close)
			if err != nil {
				return nil, err
			}
			opStack = append(opStack, opFrame{interp: *res.Regular, middle: middle})
			md = atomMode
		default:
			return nil, fmt.Errorf("axe: unexpected regular kind %v", res.Regular.Kind)
		}
	}

	for len(opStack) > 0 {
		if err := reduceOne(); err != nil {
			return nil, err
		}
	}
	if len(atomStack) != 1 {
		return nil, fmt.Errorf("axe: expected exactly one result, got %d", len(atomStack))
	}
	return atomStack[0], nil
}
