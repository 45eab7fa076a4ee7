// Package axe implements the embedded Pratt/precedence-climbing expression
// engine invoked by the Seed interpreter for rules declared with an operator
// table. A Spec is the compiled table; Parse runs the shunting-yard loop
// against a Nursery, calling back into the host parser for atoms.
package axe

import "github.com/TobyBrull/silva-sub000/catalog"

// OperKind tags the kind of an operator interpretation: how it nests, how
// many operands it takes, and on which side of its token they fall.
type OperKind int

const (
	AtomNest OperKind = iota
	PrefixNest
	Prefix
	Postfix
	PostfixNest
	Infix
	Ternary
)

func (k OperKind) String() string {
	switch k {
	case AtomNest:
		return "atom_nest"
	case PrefixNest:
		return "prefix_nest"
	case Prefix:
		return "prefix"
	case Postfix:
		return "postfix"
	case PostfixNest:
		return "postfix_nest"
	case Infix:
		return "infix"
	case Ternary:
		return "ternary"
	default:
		return "unknown"
	}
}

// Assoc is a level's associativity.
type Assoc int

const (
	Nest Assoc = iota
	LTR
	RTL
)

func (a Assoc) String() string {
	switch a {
	case Nest:
		return "nest"
	case LTR:
		return "ltr"
	case RTL:
		return "rtl"
	default:
		return "unknown"
	}
}

// Precedence is a level, its associativity, and an optional flatten-group id
// (0 means "not part of a flatten group").
type Precedence struct {
	Level        int
	Assoc        Assoc
	FlattenGroup int
}

// Less implements the shunting-yard pop-rule ordering: levels are declared
// tightest-first, so a smaller Level number binds tighter. Less(o) reports
// whether p binds looser than o and so should NOT be reduced yet when o is
// about to be pushed; within a level, RightToLeft sorts reflexively
// less-than itself (so equal-precedence rtl operators never pop each
// other, producing right nesting), while LeftToRight and flatten-group
// members are not (so they do pop, producing left nesting or flat
// combination respectively).
func (p Precedence) Less(o Precedence) bool {
	if p.Level != o.Level {
		return p.Level > o.Level
	}
	if p.FlattenGroup != 0 && p.FlattenGroup == o.FlattenGroup {
		return false
	}
	return p.Assoc == RTL
}

// Interp is one interpretation (prefix-position, or regular-position) of an
// operator token.
type Interp struct {
	Kind     OperKind
	Produces catalog.NameId // rule name assigned to the node this operator builds
	Prec     Precedence

	// Close is the matching right-bracket token, set only for AtomNest,
	// PrefixNest and PostfixNest, and Ternary's second token.
	Close catalog.TokenId

	// Flatten and Concat apply only to Infix.
	Flatten bool
	Concat  bool
}

// Result records, per operator token, up to one prefix-position and one
// regular-position (infix/postfix/right-bracket) interpretation.
type Result struct {
	Prefix         *Interp
	Regular        *Interp
	IsRightBracket bool
}

// Spec is a compiled operator table, keyed by token so the runtime can look
// up a token's prefix and/or regular-position interpretation in O(1).
type Spec struct {
	Name         catalog.NameId
	AtomRule     catalog.NameId
	Results      map[catalog.TokenId]*Result
	ConcatResult *Interp
}

func (s *Spec) resultFor(tok catalog.TokenId) (*Result, bool) {
	r, ok := s.Results[tok]
	return r, ok
}

func (s *Spec) ensureResult(tok catalog.TokenId) *Result {
	if s.Results == nil {
		s.Results = map[catalog.TokenId]*Result{}
	}
	r, ok := s.Results[tok]
	if !ok {
		r = &Result{}
		s.Results[tok] = r
	}
	return r
}
