package seed

import "github.com/TobyBrull/silva-sub000/catalog"

// Names is the fixed set of rule names the bootstrap recognizer (and the
// compiled Seed grammar, once it exists) tags expression nodes with: the
// Seed meta-grammar's own namespace that the interpreter's expression
// dispatch switches on. Interned once per Ward so every package sharing a
// Ward agrees on the same ids.
type Names struct {
	Paren                                       catalog.NameId
	Not, Opt, Star, Plus, Concat, Alt, AndThen   catalog.NameId
	TermEOF, TermEpsilon                        catalog.NameId
	TermIdent, TermOperator, TermString, TermNum catalog.NameId
	TermAny, TermKeywordsOf, TermLiteral         catalog.NameId
	Nonterminal, VarBind, FuncCall               catalog.NameId

	// Ident is a generic bare-identifier leaf: its own node carries no
	// children, just the one consumed token, used wherever a surrounding
	// node (Nonterminal, VarBind, FuncCall) needs to
	// capture an identifier's text as a real tree node rather than simply
	// advancing past it, so the compiler can read it back later. Reusing
	// one leaf kind for all of these is safe because the parent node's own
	// kind and child position already disambiguate the role.
	Ident catalog.NameId

	RuleDefine, RuleAlias, RuleAxe, NestedSeed catalog.NameId
	AxeBody, AxeLevel, AxeGroup                catalog.NameId
	AxeAssoc, AxeKind, AxeOpToken              catalog.NameId
}

// NewNames interns every construct name under the "Seed" root scope. Exposed
// so a caller that needs to re-resolve the same Names a prior ParseBootstrap
// call used (e.g. the CLI, which compiles a grammar and later needs to
// recognize its own node kinds) doesn't have to thread an extra return value
// through every call site; interning is idempotent, so calling this twice
// against the same Ward yields identical ids.
func NewNames(ward *catalog.Ward) *Names { return newNames(ward) }

func newNames(ward *catalog.Ward) *Names {
	root := ward.NameIdOfPath("Seed")
	n := func(s string) catalog.NameId { return ward.NameIdOf(root, ward.Intern(s, catalog.CategoryIdentifier)) }
	return &Names{
		Paren:   n("Paren"),
		Not:     n("Not"),
		Opt:     n("Opt"),
		Star:    n("Star"),
		Plus:    n("Plus"),
		Concat:  n("Concat"),
		Alt:     n("Alt"),
		AndThen: n("AndThen"),

		TermEOF:        n("EndOfFile"),
		TermEpsilon:    n("Epsilon"),
		TermIdent:      n("TermIdentifier"),
		TermOperator:   n("TermOperator"),
		TermString:     n("TermString"),
		TermNum:        n("TermNumber"),
		TermAny:        n("TermAny"),
		TermKeywordsOf: n("KeywordsOf"),
		TermLiteral:    n("Literal"),

		Nonterminal: n("Nonterminal"),
		VarBind:     n("VarBind"),
		FuncCall:    n("FuncCall"),
		Ident:       n("Ident"),

		RuleDefine: n("RuleDefine"),
		RuleAlias:  n("RuleAlias"),
		RuleAxe:    n("RuleAxe"),
		NestedSeed: n("NestedSeed"),
		AxeBody:    n("AxeBody"),
		AxeLevel:   n("AxeLevel"),
		AxeGroup:   n("AxeGroup"),
		AxeAssoc:   n("AxeAssoc"),
		AxeKind:    n("AxeKind"),
		AxeOpToken: n("AxeOpToken"),
	}
}
