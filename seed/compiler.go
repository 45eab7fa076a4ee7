package seed

import (
	"fmt"
	"regexp"

	"github.com/TobyBrull/silva-sub000/axe"
	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// Compile walks a parsed Seed-of-Seed tree and builds a Grammar: every
// rule's fully-qualified name and body, every Nonterminal occurrence resolved
// to the rule it references, every literal-string terminal's keyword scope,
// every regex-refined terminal's compiled pattern, and every Axe spec.
func Compile(ward *catalog.Ward, names *Names, source tree.Tree) (*Grammar, *Error) {
	g := newGrammar(ward, names, source)
	c := &compiler{g: g, allNames: map[catalog.NameId]bool{}}

	var failure *Error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(*Error); ok {
					failure = e
					return
				}
				panic(r)
			}
		}()
		c.compileBlock(source.Span(), catalog.NameIdRoot)
	}()
	if failure != nil {
		return nil, failure
	}
	return g, nil
}

type compiler struct {
	g        *Grammar
	allNames map[catalog.NameId]bool
}

func (c *compiler) fail(sev Severity, tokenIdx int, format string, args ...interface{}) {
	panic(newError(sev, "", tokenIdx, fmt.Errorf(format, args...)))
}

func (c *compiler) text(sp tree.Span) string {
	return c.g.Ward.TokenText(sp.FirstTokenId())
}

// baseOf reads a Nonterminal node's own base-identifier text, via the Ident
// leaf bootstrap.go's parseNonterminal always wraps it in.
func (c *compiler) baseOf(nonterminal tree.Span) string {
	return c.text(nonterminal.ChildAt(0))
}

// resolve applies the NameStyle rule to a Nonterminal occurrence's
// base text, relative to scope.
func (c *compiler) resolve(nonterminal tree.Span, scope catalog.NameId) catalog.NameId {
	return resolveNameStyle(c.g.Ward, scope, c.baseOf(nonterminal))
}

// declare registers full as a rule occupying the namespace once; a
// redefinition (including one scope shadowing another rule's fully-qualified
// name, per the Design Notes' resolved Open Question) is a compile error.
func (c *compiler) declare(full catalog.NameId, tokenIdx int) {
	if c.allNames[full] {
		c.fail(Major, tokenIdx, "rule %q redefined", c.g.RuleName(full))
	}
	c.allNames[full] = true
}

// compileBlock walks every Rule child of a NestedSeed node (or the top-level
// source tree, itself a NestedSeed) under the given scope.
func (c *compiler) compileBlock(block tree.Span, scope catalog.NameId) {
	for _, idx := range block.ChildIndexes() {
		c.compileRule(block.SubTreeSpanAt(idx), scope)
	}
}

func (c *compiler) compileRule(rule tree.Span, scope catalog.NameId) {
	nameSp := rule.ChildAt(0)
	full := c.resolve(nameSp, scope)
	begin, _ := nameSp.TokenRange()

	switch rule.RuleName() {
	case c.g.Names.RuleAlias:
		c.declare(full, begin)
		body := rule.ChildAt(1)
		c.walkExpr(body, scope, full)
		c.g.RuleExprs[full] = RuleBody{Kind: RuleAlias, Expr: body}
	case c.g.Names.RuleAxe:
		c.declare(full, begin)
		c.g.RuleExprs[full] = RuleBody{Kind: RuleAxe}
		c.g.Axes[full] = c.compileAxe(rule.ChildAt(1), full, scope)
	case c.g.Names.NestedSeed:
		c.declare(full, begin)
		c.walkNestedChildren(rule, full)
	default: // RuleDefine
		c.declare(full, begin)
		body := rule.ChildAt(1)
		c.walkExpr(body, scope, full)
		c.g.RuleExprs[full] = RuleBody{Kind: RuleDefine, Expr: body}
	}
}

// walkNestedChildren treats a NestedSeed rule's remaining children
// (everything after its own declared name at index 0) as further rules to
// compile under the new scope.
func (c *compiler) walkNestedChildren(rule tree.Span, scope catalog.NameId) {
	indexes := rule.ChildIndexes()
	for _, idx := range indexes[1:] {
		c.compileRule(rule.SubTreeSpanAt(idx), scope)
	}
}

// walkExpr recurses through a Seed expression subtree, resolving every
// Nonterminal occurrence and registering every literal/regex terminal.
//
// Two scopes are threaded through, since NameStyle's "current scope" means
// different things for the two things this walk resolves:
//   - scope is the block the rule was DECLARED under (the same scope its own
//     fully-qualified name was resolved against). Ordinary Nonterminal
//     references are siblings of the declaring rule, so they resolve
//     against scope, not full — a rule body is not itself a new scope
//     unless it is a nested Seed block, which compileRule handles
//     separately via walkNestedChildren.
//   - full is the rule currently being defined. Keyword-scope registration
//     climbs the ancestor chain starting at the literal's immediately
//     enclosing rule, so it always starts at full, never at scope.
func (c *compiler) walkExpr(sp tree.Span, scope, full catalog.NameId) {
	n := c.g.Names
	switch sp.RuleName() {
	case n.Paren, n.Not, n.Opt, n.Star, n.Plus:
		c.walkExpr(sp.ChildAt(0), scope, full)
	case n.Concat, n.Alt, n.AndThen:
		for _, idx := range sp.ChildIndexes() {
			c.walkExpr(sp.SubTreeSpanAt(idx), scope, full)
		}
	case n.TermEOF, n.TermEpsilon, n.TermAny:
		// leaves, nothing to resolve
	case n.TermIdent, n.TermOperator, n.TermString, n.TermNum:
		if sp.Node().NumChildren > 0 {
			c.registerRegex(sp.ChildAt(0))
		}
	case n.TermKeywordsOf:
		c.registerNonterminalRef(sp.ChildAt(0), scope)
	case n.TermLiteral:
		c.registerKeyword(sp, full)
	case n.Nonterminal:
		c.registerNonterminalRef(sp, scope)
	case n.FuncCall:
		indexes := sp.ChildIndexes()
		for _, idx := range indexes[1:] { // skip the Ident function-name child
			c.walkExpr(sp.SubTreeSpanAt(idx), scope, full)
		}
	default:
		c.fail(BrokenSeed, int(sp.Node().TokenBegin), "grammar compiler: unrecognized expression node")
	}
}

func (c *compiler) registerNonterminalRef(sp tree.Span, scope catalog.NameId) {
	c.g.NonterminalRules[sp.Root] = c.resolve(sp, scope)
}

// registerRegex compiles and caches the pattern of an `identifier / "re"`-
// style terminal refinement, keyed by the pattern literal's own TokenId so
// repeated uses of the same pattern text share one compiled Regexp.
func (c *compiler) registerRegex(literal tree.Span) {
	tok := literal.FirstTokenId()
	if _, ok := c.g.RegexCache[tok]; ok {
		return
	}
	raw, err := c.g.Source.Tokenization.UnquoteString(tok)
	if err != nil {
		c.fail(Major, int(literal.Node().TokenBegin), "invalid regex literal: %v", err)
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		c.fail(Major, int(literal.Node().TokenBegin), "invalid regex %q: %v", raw, err)
	}
	c.g.RegexCache[tok] = re
}

// registerKeyword handles a bare quoted-string terminal: the quoted token is
// unquoted and interned as the keyword's own token id, associated with every
// ancestor scope up to root, and the quoted→unquoted mapping is recorded.
func (c *compiler) registerKeyword(literal tree.Span, scope catalog.NameId) {
	quoted := literal.FirstTokenId()
	if _, ok := c.g.StringToKeyword[quoted]; ok {
		c.g.addKeywordScope(scope, c.g.StringToKeyword[quoted])
		return
	}
	raw, err := c.g.Source.Tokenization.UnquoteString(quoted)
	if err != nil {
		c.fail(Major, int(literal.Node().TokenBegin), "invalid string literal: %v", err)
	}
	kw := c.g.Ward.Intern(raw, catalog.CategoryIdentifier)
	c.g.StringToKeyword[quoted] = kw
	c.g.addKeywordScope(scope, kw)
}

// compileAxe builds an axe.Spec from an AxeBody node (atom Nonterminal
// followed by zero or more AxeLevel children). The atom rule is
// an ordinary Nonterminal reference and so resolves against the enclosing
// scope, exactly like any other reference in the rule's body; the operator
// groups' Produces names are namespaced as children of the axe rule itself
// (ruleFull), since they name synthetic node kinds belonging only to this
// axe, not independently callable rules.
func (c *compiler) compileAxe(body tree.Span, ruleFull, scope catalog.NameId) *axe.Spec {
	atomRule := c.resolve(body.ChildAt(0), scope)
	b := axe.NewBuilder(ruleFull, atomRule)

	levels := body.ChildIndexes()[1:]
	for _, idx := range levels {
		c.compileAxeLevel(b, body.SubTreeSpanAt(idx), ruleFull)
	}
	spec, err := b.Build()
	if err != nil {
		c.fail(Major, int(body.Node().TokenBegin), "%v", err)
	}
	return spec
}

func (c *compiler) compileAxeLevel(b *axe.Builder, level tree.Span, ruleFull catalog.NameId) {
	assoc := c.text(level.ChildAt(0))
	groupIdxs := level.ChildIndexes()[1:]

	switch assoc {
	case "nest":
		pairs := make([]axe.NestPair, 0, len(groupIdxs))
		for _, idx := range groupIdxs {
			pairs = append(pairs, c.compileNestPair(level.SubTreeSpanAt(idx), ruleFull))
		}
		b.NestLevel(pairs...)
	case "ltr":
		groups := make([]axe.Group, 0, len(groupIdxs))
		for _, idx := range groupIdxs {
			groups = append(groups, c.compileGroup(level.SubTreeSpanAt(idx), ruleFull))
		}
		b.LTRLevel(groups...)
	case "rtl":
		groups := make([]axe.Group, 0, len(groupIdxs))
		for _, idx := range groupIdxs {
			groups = append(groups, c.compileGroup(level.SubTreeSpanAt(idx), ruleFull))
		}
		b.RTLLevel(groups...)
	default:
		c.fail(Major, int(level.Node().TokenBegin), "unknown axe level associativity %q", assoc)
	}
}

// operandTokens returns the operator-literal tokens of a group (everything
// between its kind keyword at index 0 and its Produces Nonterminal at the
// last index), unquoted and re-interned as the plain operator/keyword text a
// target tokenizer would itself produce.
func (c *compiler) operandTokens(group tree.Span) []catalog.TokenId {
	idxs := group.ChildIndexes()
	out := make([]catalog.TokenId, 0, len(idxs)-2)
	for _, idx := range idxs[1 : len(idxs)-1] {
		leaf := group.SubTreeSpanAt(idx)
		tok := leaf.FirstTokenId()
		raw, err := c.g.Source.Tokenization.UnquoteString(tok)
		if err != nil {
			raw = c.g.Ward.TokenText(tok) // a bare (unquoted) symbol, e.g. a raw "+" token
		}
		out = append(out, c.g.Ward.Intern(raw, catalog.CategoryOperator))
	}
	return out
}

func (c *compiler) produces(group tree.Span, ruleFull catalog.NameId) catalog.NameId {
	idxs := group.ChildIndexes()
	return c.resolve(group.SubTreeSpanAt(idxs[len(idxs)-1]), ruleFull)
}

func (c *compiler) compileNestPair(group tree.Span, ruleFull catalog.NameId) axe.NestPair {
	toks := c.operandTokens(group)
	if len(toks) != 2 {
		c.fail(Major, int(group.Node().TokenBegin), "atom_nest group needs exactly two bracket tokens, got %d", len(toks))
	}
	return axe.NestPair{Open: toks[0], Close: toks[1], Produces: c.produces(group, ruleFull)}
}

func (c *compiler) compileGroup(group tree.Span, ruleFull catalog.NameId) axe.Group {
	kind := c.text(group.ChildAt(0))
	toks := c.operandTokens(group)
	produces := c.produces(group, ruleFull)

	switch kind {
	case "prefix":
		return axe.Group{Kind: axe.Prefix, Tokens: toks, Produces: produces}
	case "postfix":
		return axe.Group{Kind: axe.Postfix, Tokens: toks, Produces: produces}
	case "prefix_nest":
		c.require2(group, toks)
		return axe.Group{Kind: axe.PrefixNest, Tokens: toks[:1], Second: toks[1], Produces: produces}
	case "postfix_nest":
		c.require2(group, toks)
		return axe.Group{Kind: axe.PostfixNest, Tokens: toks[:1], Second: toks[1], Produces: produces}
	case "ternary":
		c.require2(group, toks)
		return axe.Group{Kind: axe.Ternary, Tokens: toks[:1], Second: toks[1], Produces: produces}
	case "infix":
		return axe.Group{Kind: axe.Infix, Tokens: toks, Produces: produces}
	case "infix_flat":
		return axe.Group{Kind: axe.Infix, Tokens: toks, Produces: produces, Flatten: true}
	case "concat":
		return axe.Group{Kind: axe.Infix, Produces: produces, Flatten: true, Concat: true}
	default:
		c.fail(Major, int(group.Node().TokenBegin), "unknown axe group kind %q", kind)
		return axe.Group{}
	}
}

func (c *compiler) require2(group tree.Span, toks []catalog.TokenId) {
	if len(toks) != 2 {
		c.fail(Major, int(group.Node().TokenBegin), "group needs exactly two operator tokens, got %d", len(toks))
	}
}
