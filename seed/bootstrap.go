package seed

import (
	"fmt"

	"github.com/TobyBrull/silva-sub000/axe"
	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// ParseBootstrap recognizes Seed source text by hand, before any grammar
// has been compiled: this is the only way to parse the Seed meta-grammar
// itself. It returns a tree tagged with the same Names the compiled Seed
// grammar would eventually use, so a grammar compiled from this source
// and applied to its own source text is expected to produce the same
// shape as this recognizer's own output.
func ParseBootstrap(ward *catalog.Ward, tokens []catalog.TokenId, tz tree.Tokenization) (tree.Tree, *Error) {
	names := newNames(ward)
	p := &parser{ward: ward, names: names, nu: tree.NewNursery(tokens), exprAxe: bootstrapExprAxe(ward, names)}

	var result tree.Tree
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
		root := p.nu.Stake()
		root.CreateNode(names.NestedSeed)
		for p.nu.NumTokensLeft() > 0 {
			p.parseRule(root)
		}
		root.Commit()
		tr, err := p.nu.Finish(root, tz)
		if err != nil {
			failure = fatalf("Seed", p.nu.TokenIndex(), "%v", err)
			return
		}
		result = tr
	}()
	if failure != nil {
		return tree.Tree{}, failure
	}
	return result, nil
}

// bootstrapExprAxe builds the Expr sub-grammar's operator table by hand: a
// literal Axe instance used to parse every Expr the bootstrap recognizer
// encounters, rather than a second recursive-descent expression parser.
// Precedence order, tightest to loosest: atom_nest "(" ")", rtl prefix
// "not", ltr postfix "?"/"*"/"+", implicit concat, ltr infix_flat
// "but_then", ltr infix_flat "|".
func bootstrapExprAxe(ward *catalog.Ward, names *Names) *axe.Spec {
	lparen := ward.Intern("(", catalog.CategoryOperator)
	rparen := ward.Intern(")", catalog.CategoryOperator)
	notKw := ward.Intern("not", catalog.CategoryIdentifier)
	opt := ward.Intern("?", catalog.CategoryOperator)
	star := ward.Intern("*", catalog.CategoryOperator)
	plus := ward.Intern("+", catalog.CategoryOperator)
	butThen := ward.Intern("but_then", catalog.CategoryIdentifier)
	bar := ward.Intern("|", catalog.CategoryOperator)

	b := axe.NewBuilder(ward.NameIdOfPath("Seed", "Expr"), ward.NameIdOfPath("Seed", "Primary"))
	b.NestLevel(axe.NestPair{Open: lparen, Close: rparen, Produces: names.Paren})
	b.RTLLevel(axe.Group{Kind: axe.Prefix, Tokens: []catalog.TokenId{notKw}, Produces: names.Not})
	b.LTRLevel(
		axe.Group{Kind: axe.Postfix, Tokens: []catalog.TokenId{opt}, Produces: names.Opt},
		axe.Group{Kind: axe.Postfix, Tokens: []catalog.TokenId{star}, Produces: names.Star},
		axe.Group{Kind: axe.Postfix, Tokens: []catalog.TokenId{plus}, Produces: names.Plus},
	)
	b.LTRLevel(axe.Group{Kind: axe.Infix, Produces: names.Concat, Flatten: true, Concat: true})
	b.LTRLevel(axe.Group{Kind: axe.Infix, Tokens: []catalog.TokenId{butThen}, Produces: names.AndThen, Flatten: true})
	b.LTRLevel(axe.Group{Kind: axe.Infix, Tokens: []catalog.TokenId{bar}, Produces: names.Alt, Flatten: true})
	spec, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("seed: bootstrap Expr axe is malformed: %v", err))
	}
	return spec
}

type parser struct {
	ward    *catalog.Ward
	names   *Names
	nu      *tree.Nursery
	exprAxe *axe.Spec
}

func (p *parser) fail(format string, args ...interface{}) {
	panic(majorf("Seed", p.nu.TokenIndex(), format, args...))
}

func (p *parser) peekText() (string, bool) {
	if p.nu.NumTokensLeft() == 0 {
		return "", false
	}
	return p.ward.TokenText(p.nu.TokenIdAt()), true
}

func (p *parser) at(text string) bool {
	t, ok := p.peekText()
	return ok && t == text
}

func (p *parser) expect(text string) catalog.TokenId {
	if !p.at(text) {
		got, _ := p.peekText()
		p.fail("expected %q, got %q", text, got)
	}
	id := p.nu.TokenIdAt()
	p.nu.Advance()
	return id
}

func (p *parser) identText() string {
	t, ok := p.peekText()
	if !ok {
		p.fail("expected an identifier, reached end of input")
	}
	p.nu.Advance()
	return t
}

// leafInto consumes the current token as a standalone leaf node of the
// given kind, folded into parent as one child. Used everywhere a bare
// token (an identifier, keyword, or quoted literal) needs to survive into
// the tree as real data rather than simply being skipped over, since a
// node's own TokenBegin/TokenEnd only ever reflects tokens consumed
// through some child.
func (p *parser) leafInto(parent *tree.Stake, name catalog.NameId) catalog.TokenId {
	tok := p.nu.TokenIdAt()
	st := p.nu.Stake()
	st.CreateNode(name)
	p.nu.Advance()
	st.CommitInto(parent)
	return tok
}

// parseRule recognizes `Name = Expr`, `Name => Expr`, `Name = axe AxeBody`,
// or `Name = [ Rule* ]` (a nested Seed block), tagging the produced
// node with the matching RuleDefine/RuleAlias/RuleAxe/NestedSeed kind so
// the grammar compiler can dispatch on it directly, and commits it
// as one child of the given parent stake.
//
// Which of the four forms applies is only knowable after the name and at
// least one more token ("=>", "=", then possibly "axe"/"[") have been
// read — but Stake.CreateNode must be the very first thing appended to a
// node's subtree, before any nested stake's work. probeRuleKind resolves
// this by speculatively consuming those tokens under a throwaway stake it
// always rewinds, then parseRule redoes the same recognition for real
// once the wrapper node's kind is already decided.
func (p *parser) parseRule(parent *tree.Stake) {
	kind := p.probeRuleKind()

	st := p.nu.Stake()
	st.CreateNode(kind)
	p.parseNonterminal(st)

	switch kind {
	case p.names.RuleAlias:
		p.expect("=>")
		p.parseExpr(st)
	case p.names.RuleAxe:
		p.expect("=")
		p.expect("axe")
		axeSt := p.nu.Stake()
		axeSt.CreateNode(p.names.AxeBody)
		p.parseAxeBody(axeSt)
		axeSt.CommitInto(st)
	case p.names.NestedSeed:
		p.expect("=")
		p.expect("[")
		for !p.at("]") {
			p.parseRule(st)
		}
		p.expect("]")
	default: // RuleDefine
		p.expect("=")
		p.parseExpr(st)
	}
	st.CommitInto(parent)
}

// probeRuleKind peeks past the rule's name and its defining operator to
// decide which wrapper kind parseRule must build, rewinding fully before
// returning so the real parse starts clean.
func (p *parser) probeRuleKind() catalog.NameId {
	probe := p.nu.Stake()
	defer probe.Clear()

	p.identText()
	if p.at("=>") {
		return p.names.RuleAlias
	}
	p.expect("=")
	if p.at("axe") {
		return p.names.RuleAxe
	}
	if p.at("[") {
		return p.names.NestedSeed
	}
	return p.names.RuleDefine
}

// parseNonterminal parses a bare identifier occurrence (a rule name being
// declared, or a reference to one inside an expression), capturing its
// base text as a child Ident leaf rather than consuming it directly, so
// the Nonterminal node's own token range stays correct even when an
// optional `-> var_name` binding follows as a second child.
func (p *parser) parseNonterminal(parent *tree.Stake) {
	st := p.nu.Stake()
	st.CreateNode(p.names.Nonterminal)
	p.leafInto(st, p.names.Ident)
	if p.at("->") {
		p.nu.Advance()
		vb := p.nu.Stake()
		vb.CreateNode(p.names.VarBind)
		p.leafInto(vb, p.names.Ident)
		vb.CommitInto(st)
	}
	if parent != nil {
		st.CommitInto(parent)
	} else {
		st.Commit()
	}
}

// parseAxeBody recognizes `atom Nonterminal Level*`.
func (p *parser) parseAxeBody(st *tree.Stake) {
	p.expect("atom")
	p.parseNonterminal(st)
	for p.at("nest") || p.at("ltr") || p.at("rtl") {
		p.parseLevel(st)
	}
}

func (p *parser) parseLevel(st *tree.Stake) {
	lvl := p.nu.Stake()
	lvl.CreateNode(p.names.AxeLevel)
	p.leafInto(lvl, p.names.AxeAssoc) // "nest" | "ltr" | "rtl"
	p.expect("{")
	for !p.at("}") {
		p.parseGroup(lvl)
	}
	p.expect("}")
	lvl.CommitInto(st)
}

// parseGroup recognizes `kind tok [tok2] -> Name`, where tok/tok2 are
// quoted operator literals (e.g. "+" or "(" ")" for bracket pairs).
func (p *parser) parseGroup(st *tree.Stake) {
	g := p.nu.Stake()
	g.CreateNode(p.names.AxeGroup)
	p.leafInto(g, p.names.AxeKind) // operator kind keyword
	for !p.at("->") {
		p.leafInto(g, p.names.AxeOpToken) // one literal token of the group
	}
	p.expect("->")
	p.parseNonterminal(g)
	g.CommitInto(st)
}

// parseExpr parses one Expr via the bootstrap Expr axe, folding
// the resulting span into st as its single child.
func (p *parser) parseExpr(st *tree.Stake) {
	sp, err := axe.Parse(p.nu, p.exprAxe, p.parsePrimaryAtom)
	if err != nil {
		p.fail("%v", err)
	}
	st.AddChildSpan(sp)
}

// parsePrimaryAtom is the Expr axe's atom delegate: terminals, nonterminal
// references (with optional `-> var` binding), and function calls. Nest
// brackets are handled by the axe itself and never reach here.
func (p *parser) parsePrimaryAtom(nu *tree.Nursery) (bool, error) {
	if nu.NumTokensLeft() == 0 {
		return false, nil
	}
	text := p.ward.TokenText(nu.TokenIdAt())
	switch text {
	case "eof":
		p.leaf(p.names.TermEOF)
		return true, nil
	case "eps":
		p.leaf(p.names.TermEpsilon)
		return true, nil
	case "any":
		p.leaf(p.names.TermAny)
		return true, nil
	case "identifier", "operator", "string", "number":
		p.terminalClass(text)
		return true, nil
	case "keywords_of":
		st := nu.Stake()
		st.CreateNode(p.names.TermKeywordsOf)
		nu.Advance()
		p.parseNonterminal(st)
		st.Commit()
		return true, nil
	}
	if nu.TokenIdAt() != catalog.TokenIdNone {
		if info := p.ward.TokenInfo(nu.TokenIdAt()); info.Category == catalog.CategoryString {
			p.leaf(p.names.TermLiteral)
			return true, nil
		}
	}
	if isIdent(text) {
		return p.nonterminalOrFuncCall(nu, text), nil
	}
	return false, nil
}

func (p *parser) nonterminalOrFuncCall(nu *tree.Nursery, text string) bool {
	if len(text) > 2 && text[len(text)-2:] == "_f" {
		st := nu.Stake()
		st.CreateNode(p.names.FuncCall)
		p.leafInto(st, p.names.Ident) // the func_f name itself
		p.expect("(")
		for !p.at(")") {
			p.parseExpr(st)
			if p.at(",") {
				p.nu.Advance()
			}
		}
		p.expect(")")
		st.Commit()
		return true
	}
	p.parseNonterminal(nil)
	return true
}

func (p *parser) terminalClass(kw string) {
	var name catalog.NameId
	switch kw {
	case "identifier":
		name = p.names.TermIdent
	case "operator":
		name = p.names.TermOperator
	case "string":
		name = p.names.TermString
	case "number":
		name = p.names.TermNum
	}
	st := p.nu.Stake()
	st.CreateNode(name)
	p.nu.Advance()
	if p.at("/") {
		p.nu.Advance()
		lit := p.nu.Stake()
		lit.CreateNode(p.names.TermLiteral)
		p.nu.Advance()
		lit.CommitInto(st)
	}
	st.Commit()
}

func (p *parser) leaf(name catalog.NameId) {
	st := p.nu.Stake()
	st.CreateNode(name)
	p.nu.Advance()
	st.Commit()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
