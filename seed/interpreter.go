package seed

import (
	"fmt"
	"io"

	"github.com/TobyBrull/silva-sub000/axe"
	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// maxRuleDepth bounds recursive-descent depth; exceeding it is a
// grammar-internal Fatal, never a Minor failure a caller could retry past.
const maxRuleDepth = 100

// Callback is invoked by parse_and_callback_f after a successful parse of
// the rule it is registered against.
type Callback func(tree.Span) error

// Interpreter evaluates Seed expressions against a token stream: one
// Interpreter is built per Grammar and reused across many Parse calls, each
// of which owns its own Nursery.
type Interpreter struct {
	g         *Grammar
	callbacks map[catalog.NameId]Callback

	// Debug receives print_f's output, if set; nil discards it silently.
	Debug io.Writer

	nu    *tree.Nursery
	tz    tree.Tokenization
	depth int
}

// NewInterpreter builds an Interpreter bound to a compiled Grammar.
func NewInterpreter(g *Grammar) *Interpreter {
	return &Interpreter{g: g, callbacks: map[catalog.NameId]Callback{}}
}

// RegisterCallback wires fn to run after any successful parse_and_callback_f
// invocation targeting rule.
func (in *Interpreter) RegisterCallback(rule catalog.NameId, fn Callback) {
	in.callbacks[rule] = fn
}

// Parse applies the grammar's goal rule to tokens. It requires the goal
// rule's matched subtree to cover the entire token stream.
func (in *Interpreter) Parse(tokens []catalog.TokenId, tz tree.Tokenization, goal catalog.NameId) (tree.Tree, *Error) {
	in.nu = tree.NewNursery(tokens)
	in.tz = tz
	in.depth = 0

	sp, err := in.handleRule(goal)
	if err != nil {
		return tree.Tree{}, err
	}
	if in.nu.TokenIndex() != len(tokens) {
		return tree.Tree{}, fatalf(in.g.RuleName(goal), in.nu.TokenIndex(),
			"parse stopped at token %d of %d", in.nu.TokenIndex(), len(tokens))
	}
	_ = sp
	return tree.Tree{Nodes: in.nu.Tree(), Tokenization: tz}, nil
}

// evalCtx carries the `-> var_name` bindings local to one rule-body
// evaluation; a fresh one is created per handle_rule invocation and never
// shared across rule boundaries.
type evalCtx struct {
	vars map[string]tree.Span
}

// handleRule runs one rule invocation: depth guard, body lookup, Axe
// delegation, and the Define/Alias node-creation split.
func (in *Interpreter) handleRule(name catalog.NameId) (tree.Span, *Error) {
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > maxRuleDepth {
		return tree.Span{}, fatalf(in.g.RuleName(name), in.nu.TokenIndex(), "maximum rule recursion depth exceeded")
	}

	rb, ok := in.g.RuleExprs[name]
	if !ok {
		return tree.Span{}, brokenf(in.g.RuleName(name), in.nu.TokenIndex(), "rule %q has no compiled body", in.g.RuleName(name))
	}

	if rb.Kind == RuleAxe {
		return in.handleAxeRule(name)
	}

	ctx := &evalCtx{vars: map[string]tree.Span{}}

	if rb.Kind == RuleAlias {
		mark := in.nu.TreeLen()
		st := in.nu.Stake()
		if err := in.evalExpr(rb.Expr, ctx, st); err != nil {
			st.Clear()
			return tree.Span{}, err
		}
		st.Commit()
		after := in.nu.TreeLen()
		if after == mark {
			return tree.Span{}, brokenf(in.g.RuleName(name), in.nu.TokenIndex(), "alias rule %q matched nothing", in.g.RuleName(name))
		}
		nodes := in.nu.Tree()
		if mark+int(nodes[mark].SubtreeSize) != after {
			return tree.Span{}, brokenf(in.g.RuleName(name), in.nu.TokenIndex(), "alias rule %q did not produce exactly one result", in.g.RuleName(name))
		}
		return tree.Span{Nodes: nodes, Root: mark, Tokenization: in.tz}, nil
	}

	// RuleDefine
	st := in.nu.Stake()
	st.CreateNode(name)
	if err := in.evalExpr(rb.Expr, ctx, st); err != nil {
		st.Clear()
		return tree.Span{}, err
	}
	slot := st.NodeSlot()
	st.Commit()
	return tree.Span{Nodes: in.nu.Tree(), Root: slot, Tokenization: in.tz}, nil
}

func (in *Interpreter) handleAxeRule(name catalog.NameId) (tree.Span, *Error) {
	spec := in.g.Axes[name]
	sp, err := axe.Parse(in.nu, spec, in.axeAtom(spec.AtomRule))
	if err != nil {
		if se, ok := err.(*Error); ok {
			return tree.Span{}, se
		}
		// A plain error from the Axe engine (unmatched/mismatched bracket,
		// no atom found, ...) is the shunting-yard loop's own failure to
		// recognize the input, not a deeper grammar inconsistency, so it
		// is reported as Minor rather than escalated.
		return tree.Span{}, minorf(in.g.RuleName(name), in.nu.TokenIndex(), "%v", err)
	}
	return sp, nil
}

// axeAtom adapts handle_rule to the Axe engine's AtomFunc contract: on
// success, handle_rule has already appended exactly one subtree to nu's
// tree, which is all AtomFunc itself is required to do.
func (in *Interpreter) axeAtom(atomRule catalog.NameId) axe.AtomFunc {
	return func(nu *tree.Nursery) (bool, error) {
		_, err := in.handleRule(atomRule)
		if err != nil {
			if err.Severity == Minor {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
}

// evalExpr evaluates one Seed expression node against the current token
// position, folding whatever it matches as zero or more children directly
// into `into`: dispatch never creates its own wrapper node here, only
// Nonterminal/Axe delegation through handleRule ever produces an actual
// output node.
func (in *Interpreter) evalExpr(sp tree.Span, ctx *evalCtx, into *tree.Stake) *Error {
	n := in.g.Names
	switch sp.RuleName() {
	case n.Paren:
		return in.evalExpr(sp.ChildAt(0), ctx, into)
	case n.Not:
		return in.evalNot(sp, ctx)
	case n.Opt:
		return in.evalRepeat(sp.ChildAt(0), ctx, into, 0, 1)
	case n.Star:
		return in.evalRepeat(sp.ChildAt(0), ctx, into, 0, -1)
	case n.Plus:
		return in.evalRepeat(sp.ChildAt(0), ctx, into, 1, -1)
	case n.Concat:
		return in.evalConcat(sp, ctx, into)
	case n.Alt:
		return in.evalAlt(sp, ctx, into)
	case n.AndThen:
		return in.evalAndThen(sp, ctx, into)
	case n.TermEOF, n.TermEpsilon, n.TermAny, n.TermIdent, n.TermOperator, n.TermString, n.TermNum, n.TermKeywordsOf, n.TermLiteral:
		return in.evalTerminal(sp)
	case n.Nonterminal:
		return in.evalNonterminal(sp, ctx, into)
	case n.FuncCall:
		return in.evalFuncCall(sp, ctx, into)
	default:
		return brokenf("", in.nu.TokenIndex(), "interpreter: unrecognized expression node")
	}
}

func (in *Interpreter) evalNot(sp tree.Span, ctx *evalCtx) *Error {
	probe := in.nu.Stake()
	childErr := in.evalExpr(sp.ChildAt(0), ctx, probe)
	probe.Clear()
	if childErr == nil {
		return minorf("", in.nu.TokenIndex(), "negative lookahead matched")
	}
	if childErr.Severity.Unconditional() {
		return childErr
	}
	return nil
}

// evalRepeat implements postfix `?`/`*`/`+`: each iteration runs in
// its own scratch stake so a failed final attempt leaves no trace; a Minor
// failure stops the loop gracefully (not an error, unless min is unmet), a
// Major-or-worse failure propagates immediately.
func (in *Interpreter) evalRepeat(child tree.Span, ctx *evalCtx, into *tree.Stake, min, max int) *Error {
	count := 0
	for max < 0 || count < max {
		st := in.nu.Stake()
		err := in.evalExpr(child, ctx, st)
		if err == nil {
			st.CommitInto(into)
			count++
			continue
		}
		st.Clear()
		if err.Severity == Minor {
			break
		}
		return err
	}
	if count < min {
		return minorf("", in.nu.TokenIndex(), "expected at least %d repetition(s), got %d", min, count)
	}
	return nil
}

// evalConcat implements sequencing with the commit-point rule: once
// a leading terminal sub-expression has matched, a later failure escalates
// from Minor to Major so sibling alternations stop retrying.
func (in *Interpreter) evalConcat(sp tree.Span, ctx *evalCtx, into *tree.Stake) *Error {
	st := in.nu.Stake()
	committed := false
	leading := true
	for _, idx := range sp.ChildIndexes() {
		child := sp.SubTreeSpanAt(idx)
		if err := in.evalExpr(child, ctx, st); err != nil {
			st.Clear()
			if committed {
				return escalate(err)
			}
			return err
		}
		if leading && isTerminal(child.RuleName(), in.g.Names) {
			committed = true
		} else {
			leading = false
		}
	}
	st.CommitInto(into)
	return nil
}

// evalAlt implements `|`: first success wins; a Major-or-worse failure in
// any branch stops the whole alternation immediately with that severity; if
// every branch fails Minor, the alternation fails Minor with one child error
// per branch tried.
func (in *Interpreter) evalAlt(sp tree.Span, ctx *evalCtx, into *tree.Stake) *Error {
	var tried []*Error
	for _, idx := range sp.ChildIndexes() {
		child := sp.SubTreeSpanAt(idx)
		st := in.nu.Stake()
		err := in.evalExpr(child, ctx, st)
		if err == nil {
			st.CommitInto(into)
			return nil
		}
		st.Clear()
		if err.Severity != Minor {
			return err
		}
		tried = append(tried, err)
	}
	return newError(Minor, "", in.nu.TokenIndex(), fmt.Errorf("no alternative matched"), tried...)
}

// evalAndThen implements `but_then`: children evaluate in sequence under one
// stake, any failure propagates, and success folds everything matched into
// the caller. Since every child must succeed for evaluation to reach the
// last one, the group's overall success is equivalent to the last child's
// success.
func (in *Interpreter) evalAndThen(sp tree.Span, ctx *evalCtx, into *tree.Stake) *Error {
	st := in.nu.Stake()
	for _, idx := range sp.ChildIndexes() {
		child := sp.SubTreeSpanAt(idx)
		if err := in.evalExpr(child, ctx, st); err != nil {
			st.Clear()
			return err
		}
	}
	st.CommitInto(into)
	return nil
}

func (in *Interpreter) evalNonterminal(sp tree.Span, ctx *evalCtx, into *tree.Stake) *Error {
	target, ok := in.g.NonterminalRules[sp.Root]
	if !ok {
		return brokenf("", in.nu.TokenIndex(), "nonterminal reference was not resolved at compile time")
	}
	child, err := in.handleRule(target)
	if err != nil {
		return err
	}
	into.AddChildSpan(child)
	if sp.Node().NumChildren > 1 {
		varName := in.baseText(sp.ChildAt(1))
		ctx.vars[varName] = child
	}
	return nil
}

func (in *Interpreter) baseText(nonterminalOrVarBind tree.Span) string {
	return in.g.Ward.TokenText(nonterminalOrVarBind.ChildAt(0).FirstTokenId())
}

// evalTerminal implements the six-way terminal dispatch: eof, epsilon, any,
// a lexical-category match, keywords_of, and a literal keyword.
func (in *Interpreter) evalTerminal(sp tree.Span) *Error {
	n := in.g.Names
	switch sp.RuleName() {
	case n.TermEOF:
		if in.nu.NumTokensLeft() == 0 {
			return nil
		}
		return minorf("", in.nu.TokenIndex(), "expected end of file")
	case n.TermEpsilon:
		return nil
	case n.TermAny:
		if in.nu.NumTokensLeft() == 0 {
			return minorf("", in.nu.TokenIndex(), "unexpected end of input")
		}
		in.nu.Advance()
		return nil
	case n.TermIdent, n.TermOperator, n.TermString, n.TermNum:
		return in.evalClassTerminal(sp)
	case n.TermKeywordsOf:
		return in.evalKeywordsOf(sp)
	case n.TermLiteral:
		return in.evalLiteral(sp)
	default:
		return brokenf("", in.nu.TokenIndex(), "unrecognized terminal node")
	}
}

func (in *Interpreter) wantCategory(name catalog.NameId) catalog.Category {
	n := in.g.Names
	switch name {
	case n.TermIdent:
		return catalog.CategoryIdentifier
	case n.TermOperator:
		return catalog.CategoryOperator
	case n.TermString:
		return catalog.CategoryString
	case n.TermNum:
		return catalog.CategoryNumber
	default:
		return catalog.CategoryNone
	}
}

func (in *Interpreter) evalClassTerminal(sp tree.Span) *Error {
	if in.nu.NumTokensLeft() == 0 {
		return minorf("", in.nu.TokenIndex(), "unexpected end of input")
	}
	cur := in.nu.TokenIdAt()
	want := in.wantCategory(sp.RuleName())
	if in.tz.CategoryOf(cur) != want {
		return minorf("", in.nu.TokenIndex(), "expected a %v token", want)
	}
	if sp.Node().NumChildren > 0 {
		patTok := sp.ChildAt(0).FirstTokenId()
		re := in.g.RegexCache[patTok]
		if re != nil && !re.MatchString(in.g.Ward.TokenText(cur)) {
			return minorf("", in.nu.TokenIndex(), "token %q does not match required pattern", in.g.Ward.TokenText(cur))
		}
	}
	in.nu.Advance()
	return nil
}

func (in *Interpreter) evalKeywordsOf(sp tree.Span) *Error {
	if in.nu.NumTokensLeft() == 0 {
		return minorf("", in.nu.TokenIndex(), "unexpected end of input")
	}
	target, ok := in.g.NonterminalRules[sp.ChildAt(0).Root]
	if !ok {
		return brokenf("", in.nu.TokenIndex(), "keywords_of target was not resolved at compile time")
	}
	cur := in.nu.TokenIdAt()
	if !in.g.KeywordScopes[target][cur] {
		return minorf("", in.nu.TokenIndex(), "token %q is not a keyword of %s", in.g.Ward.TokenText(cur), in.g.RuleName(target))
	}
	in.nu.Advance()
	return nil
}

func (in *Interpreter) evalLiteral(sp tree.Span) *Error {
	if in.nu.NumTokensLeft() == 0 {
		return minorf("", in.nu.TokenIndex(), "unexpected end of input")
	}
	kw, ok := in.g.StringToKeyword[sp.FirstTokenId()]
	if !ok {
		return brokenf("", in.nu.TokenIndex(), "literal terminal was not registered at compile time")
	}
	if in.nu.TokenIdAt() != kw {
		return minorf("", in.nu.TokenIndex(), "expected %q", in.g.Ward.TokenText(kw))
	}
	in.nu.Advance()
	return nil
}

// isTerminal reports whether a body-expression node is one of the six
// terminal kinds, for Concat's commit-point rule.
func isTerminal(name catalog.NameId, n *Names) bool {
	switch name {
	case n.TermEOF, n.TermEpsilon, n.TermAny, n.TermIdent, n.TermOperator, n.TermString, n.TermNum, n.TermKeywordsOf, n.TermLiteral:
		return true
	default:
		return false
	}
}

// evalFuncCall dispatches the fixed built-in function table: parse_f,
// parse_and_callback_f, and print_f.
func (in *Interpreter) evalFuncCall(sp tree.Span, ctx *evalCtx, into *tree.Stake) *Error {
	fname := in.g.Ward.TokenText(sp.ChildAt(0).FirstTokenId())
	args := sp.ChildIndexes()[1:]

	switch fname {
	case "parse_f":
		_, err := in.callParseF(sp, args, ctx, into, false)
		return err
	case "parse_and_callback_f":
		_, err := in.callParseF(sp, args, ctx, into, true)
		return err
	case "print_f":
		return in.callPrintF(sp, args, ctx, into)
	default:
		return brokenf("", in.nu.TokenIndex(), "unknown built-in function %q", fname)
	}
}

// callParseF implements parse_f / parse_and_callback_f: both
// arguments are literal Nonterminal names, never matched against input
// themselves; `scope` resolves absolutely (as if the current scope were
// root) and `rel` resolves relative to whatever `scope` resolved to.
func (in *Interpreter) callParseF(sp tree.Span, args []int, ctx *evalCtx, into *tree.Stake, withCallback bool) (tree.Span, *Error) {
	if len(args) != 2 {
		return tree.Span{}, brokenf("", in.nu.TokenIndex(), "parse_f/parse_and_callback_f requires exactly 2 arguments, got %d", len(args))
	}
	scopeArg := sp.SubTreeSpanAt(args[0])
	relArg := sp.SubTreeSpanAt(args[1])
	if scopeArg.RuleName() != in.g.Names.Nonterminal || relArg.RuleName() != in.g.Names.Nonterminal {
		return tree.Span{}, brokenf("", in.nu.TokenIndex(), "parse_f/parse_and_callback_f arguments must be bare nonterminal names")
	}
	scopeName := resolveNameStyle(in.g.Ward, catalog.NameIdRoot, in.baseText(scopeArg))
	relName := resolveNameStyle(in.g.Ward, scopeName, in.baseText(relArg))

	result, err := in.handleRule(relName)
	if err != nil {
		return tree.Span{}, err
	}
	into.AddChildSpan(result)

	if withCallback {
		if cb, ok := in.callbacks[result.RuleName()]; ok {
			// The callback may outlive this call (e.g. stash the span in a
			// slice for later use), but result's Nodes slice still aliases
			// the live Nursery buffer: further parsing can append past it,
			// and the Axe engine's stitching pass truncates and overwrites
			// that same backing array in place. Hand the callback a
			// detached copy so it stays valid regardless of what the parse
			// does afterward.
			frozen := result.Copy()
			if cbErr := cb(frozen.Span()); cbErr != nil {
				return tree.Span{}, majorf(in.g.RuleName(result.RuleName()), in.nu.TokenIndex(), "callback failed: %v", cbErr)
			}
		}
	}
	return result, nil
}

// callPrintF is a side-effect-only debugging sink: a bare-variable
// argument referencing an earlier `-> var` binding is printed without
// consuming input; any other argument is evaluated as an ordinary
// expression (consuming input, folding into the caller like an inlined
// sub-expression) and then described. It always succeeds once its arguments
// themselves succeed.
func (in *Interpreter) callPrintF(sp tree.Span, args []int, ctx *evalCtx, into *tree.Stake) *Error {
	for _, idx := range args {
		arg := sp.SubTreeSpanAt(idx)
		if arg.RuleName() == in.g.Names.Nonterminal {
			if v, ok := ctx.vars[in.baseText(arg)]; ok {
				in.debugf("print_f: %s -> tokens [%d,%d)\n", in.baseText(arg), v.Node().TokenBegin, v.Node().TokenEnd)
				continue
			}
		}
		begin := in.nu.TokenIndex()
		st := in.nu.Stake()
		if err := in.evalExpr(arg, ctx, st); err != nil {
			st.Clear()
			return err
		}
		st.CommitInto(into)
		in.debugf("print_f: matched tokens [%d,%d)\n", begin, in.nu.TokenIndex())
	}
	return nil
}

func (in *Interpreter) debugf(format string, args ...interface{}) {
	if in.Debug == nil {
		return
	}
	fmt.Fprintf(in.Debug, format, args...)
}
