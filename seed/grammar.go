package seed

import (
	"regexp"

	"github.com/TobyBrull/silva-sub000/axe"
	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// RuleKind tags how a rule's body must be handled by handleRule.
type RuleKind int

const (
	RuleDefine RuleKind = iota // body rooted at "=": create a node
	RuleAlias                 // body rooted at "=>": no node, just forward
	RuleAxe                   // body is an Axe spec; Grammar.Axes holds it
)

// RuleBody is one compiled rule: its kind and, for Define/Alias, the body
// expression span into the grammar's own source tree.
type RuleBody struct {
	Kind RuleKind
	Expr tree.Span
}

// Grammar is the compiled output of a grammar description: a grammar-of-
// grammar parse tree (the bootstrap recognizer's output, or eventually the compiled
// Seed grammar's own output parsing the same source) plus the indexes the
// interpreter consults at rule-call and terminal-match time.
type Grammar struct {
	Ward   *catalog.Ward
	Names  *Names
	Source tree.Tree // the parsed grammar-of-grammar tree rule bodies are spans into

	RuleExprs map[catalog.NameId]RuleBody
	Axes      map[catalog.NameId]*axe.Spec

	// NonterminalRules resolves a Nonterminal node (keyed by its absolute
	// index in Source.Nodes) to the fully-qualified rule it references.
	NonterminalRules map[int]catalog.NameId

	RegexCache map[catalog.TokenId]*regexp.Regexp

	// KeywordScopes accumulates, per rule name and every ancestor up to
	// root, every literal string token that appears as a terminal inside
	// that rule's subtree (for the keywords_of terminal).
	KeywordScopes map[catalog.NameId]map[catalog.TokenId]bool

	// StringToKeyword maps a quoted string token to its unquoted form.
	StringToKeyword map[catalog.TokenId]catalog.TokenId
}

func newGrammar(ward *catalog.Ward, names *Names, source tree.Tree) *Grammar {
	return &Grammar{
		Ward:             ward,
		Names:            names,
		Source:           source,
		RuleExprs:        map[catalog.NameId]RuleBody{},
		Axes:             map[catalog.NameId]*axe.Spec{},
		NonterminalRules: map[int]catalog.NameId{},
		RegexCache:       map[catalog.TokenId]*regexp.Regexp{},
		KeywordScopes:    map[catalog.NameId]map[catalog.TokenId]bool{},
		StringToKeyword:  map[catalog.TokenId]catalog.TokenId{},
	}
}

// resolveNameStyle applies the four-way NameStyle rule: "_" is root,
// "x" is the current scope itself, "p" is the scope's parent, anything
// else names a child of the current scope.
func resolveNameStyle(ward *catalog.Ward, scope catalog.NameId, base string) catalog.NameId {
	switch base {
	case "_":
		return catalog.NameIdRoot
	case "x":
		return scope
	case "p":
		return ward.ParentOf(scope)
	default:
		return ward.NameIdOf(scope, ward.Intern(base, catalog.CategoryIdentifier))
	}
}

func (g *Grammar) addKeywordScope(rule catalog.NameId, tok catalog.TokenId) {
	for {
		scope, ok := g.KeywordScopes[rule]
		if !ok {
			scope = map[catalog.TokenId]bool{}
			g.KeywordScopes[rule] = scope
		}
		scope[tok] = true
		if rule == catalog.NameIdRoot {
			return
		}
		rule = g.Ward.ParentOf(rule)
	}
}

// RuleName returns the fully-qualified rule name at a node's declared
// scope, used by the CLI and by error messages.
func (g *Grammar) RuleName(name catalog.NameId) string { return g.Ward.Absolute(name) }
