package axe

import (
	"fmt"

	"github.com/TobyBrull/silva-sub000/catalog"
)

// Builder constructs a Spec one level at a time, in decreasing precedence
// order (first level declared binds tightest), enforcing the axe
// declaration's validation rules. It is used directly by hand-constructed
// axes (the bootstrap Expr grammar) and by the grammar compiler, which
// drives it while walking a parsed Axe rule body.
type Builder struct {
	spec *Spec

	level         int
	sawNonNest    bool
	seenPrefix    map[catalog.TokenId]bool
	seenRegular   map[catalog.TokenId]bool
	concatSeen    bool
	nextFlattenID int
	errs          []error
}

// NewBuilder starts a Spec for the given rule name and atom rule.
func NewBuilder(name, atomRule catalog.NameId) *Builder {
	return &Builder{
		spec: &Spec{
			Name:     name,
			AtomRule: atomRule,
			Results:  map[catalog.TokenId]*Result{},
		},
		seenPrefix:  map[catalog.TokenId]bool{},
		seenRegular: map[catalog.TokenId]bool{},
	}
}

func (b *Builder) fail(format string, args ...interface{}) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// Errs returns every validation error accumulated so far.
func (b *Builder) Errs() []error { return b.errs }

// nextLevel returns the next level number; levels are declared in
// decreasing precedence so later-declared levels must bind looser. A
// private incrementing counter (not the raw call count) because Nest
// levels share no ordering with non-Nest ones beyond "comes first".
func (b *Builder) nextLevel() int {
	b.level++
	return b.level
}

// NestLevel declares a `nest` level: one or more AtomNest bracket pairs.
// All Nest levels must be declared before any non-Nest level.
func (b *Builder) NestLevel(pairs ...NestPair) *Builder {
	if b.sawNonNest {
		b.fail("axe: nest level declared after a non-nest level")
		return b
	}
	lvl := b.nextLevel()
	prec := Precedence{Level: lvl, Assoc: Nest}
	for _, p := range pairs {
		b.declarePrefix(p.Open, Interp{Kind: AtomNest, Produces: p.Produces, Prec: prec, Close: p.Close})
	}
	return b
}

// NestPair is one bracket pair of a nest level.
type NestPair struct {
	Open, Close catalog.TokenId
	Produces    catalog.NameId
}

// LTRLevel declares a left-to-right level. It may only contain postfix,
// postfix_nest, infix, infix_flat, and ternary groups.
func (b *Builder) LTRLevel(groups ...Group) *Builder {
	b.sawNonNest = true
	lvl := b.nextLevel()
	return b.addLevel(lvl, LTR, groups)
}

// RTLLevel declares a right-to-left level. It may only contain prefix,
// prefix_nest, infix, infix_flat, and ternary groups.
func (b *Builder) RTLLevel(groups ...Group) *Builder {
	b.sawNonNest = true
	lvl := b.nextLevel()
	return b.addLevel(lvl, RTL, groups)
}

// Group is one operator-kind group within a non-nest level.
type Group struct {
	Kind     OperKind
	Tokens   []catalog.TokenId // single-token operators: prefix/postfix/infix/ternary first token
	Second   catalog.TokenId   // ternary's second token; postfix_nest/prefix_nest close token
	Produces catalog.NameId
	Flatten  bool // infix/infix_flat: combine same-level same-group operators into one variadic node
	Concat   bool // marks this infix group as the Axe's synthesized concat operator
}

func (b *Builder) addLevel(lvl int, assoc Assoc, groups []Group) *Builder {
	allowed := map[OperKind]bool{}
	switch assoc {
	case LTR:
		allowed = map[OperKind]bool{Postfix: true, PostfixNest: true, Infix: true, Ternary: true}
	case RTL:
		allowed = map[OperKind]bool{Prefix: true, PrefixNest: true, Infix: true, Ternary: true}
	}

	var flattenID int
	for _, g := range groups {
		if !allowed[g.Kind] {
			b.fail("axe: %v level cannot contain a %v group", assoc, g.Kind)
			continue
		}
		if g.Concat {
			if b.concatSeen {
				b.fail("axe: concat declared more than once")
				continue
			}
			if g.Kind != Infix {
				b.fail("axe: concat must be an infix group")
				continue
			}
			b.concatSeen = true
		}
		if g.Flatten && flattenID == 0 {
			b.nextFlattenID++
			flattenID = b.nextFlattenID
		}
		prec := Precedence{Level: lvl, Assoc: assoc}
		if g.Flatten {
			prec.FlattenGroup = flattenID
		}

		switch g.Kind {
		case Prefix:
			for _, tok := range g.Tokens {
				b.declarePrefix(tok, Interp{Kind: Prefix, Produces: g.Produces, Prec: prec})
			}
		case Postfix:
			for _, tok := range g.Tokens {
				b.declareRegular(tok, Interp{Kind: Postfix, Produces: g.Produces, Prec: prec}, false)
			}
		case PrefixNest:
			for _, tok := range g.Tokens {
				b.declarePrefix(tok, Interp{Kind: PrefixNest, Produces: g.Produces, Prec: prec, Close: g.Second})
			}
		case PostfixNest:
			for _, tok := range g.Tokens {
				b.declareRegular(tok, Interp{Kind: PostfixNest, Produces: g.Produces, Prec: prec, Close: g.Second}, false)
			}
		case Infix:
			interp := Interp{Kind: Infix, Produces: g.Produces, Prec: prec, Flatten: g.Flatten, Concat: g.Concat}
			if g.Concat {
				cp := interp
				b.spec.ConcatResult = &cp
				continue
			}
			for _, tok := range g.Tokens {
				b.declareRegular(tok, interp, false)
			}
		case Ternary:
			for _, tok := range g.Tokens {
				b.declareRegular(tok, Interp{Kind: Ternary, Produces: g.Produces, Prec: prec, Close: g.Second}, false)
			}
		}
	}
	return b
}

// declarePrefix records a token's prefix-position interpretation, enforcing
// the "each token used at most once in prefix position" rule.
func (b *Builder) declarePrefix(tok catalog.TokenId, in Interp) {
	if b.seenPrefix[tok] {
		b.fail("axe: token %v used twice in prefix position", tok)
		return
	}
	b.seenPrefix[tok] = true
	r := b.spec.ensureResult(tok)
	cp := in
	r.Prefix = &cp
}

// declareRegular records a token's regular-position (infix/postfix/
// right-bracket) interpretation, enforcing the "at most once in regular
// position" rule. isRightBracket is ORed into the token's right-bracket
// flag; close tokens themselves are flagged separately by markRightBracket
// when Build runs.
func (b *Builder) declareRegular(tok catalog.TokenId, in Interp, isRightBracket bool) {
	if b.seenRegular[tok] {
		b.fail("axe: token %v used twice in regular position", tok)
		return
	}
	b.seenRegular[tok] = true
	r := b.spec.ensureResult(tok)
	cp := in
	r.Regular = &cp
	r.IsRightBracket = r.IsRightBracket || isRightBracket
}

// markRightBracket registers tok as a bare right-bracket marker so the
// runtime's "unknown token in Infix mode" stop condition recognizes it even
// though it carries no Interp of its own: the runtime's infix-mode loop
// stops as soon as it sees a token flagged as a right bracket.
func (b *Builder) markRightBracket(tok catalog.TokenId) {
	r := b.spec.ensureResult(tok)
	r.IsRightBracket = true
}

// Build finalizes the Spec, registering every nest/nest-like group's close
// token as a right-bracket marker, and returns an error aggregating every
// validation failure recorded along the way.
func (b *Builder) Build() (*Spec, error) {
	for _, r := range b.spec.Results {
		if r.Prefix != nil && (r.Prefix.Kind == AtomNest || r.Prefix.Kind == PrefixNest) {
			b.markRightBracket(r.Prefix.Close)
		}
		if r.Regular != nil && (r.Regular.Kind == PostfixNest || r.Regular.Kind == Ternary) {
			b.markRightBracket(r.Regular.Close)
		}
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("axe: %d validation error(s), first: %v", len(b.errs), b.errs[0])
	}
	return b.spec, nil
}
