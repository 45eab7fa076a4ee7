package seed_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/lexseed"
	"github.com/TobyBrull/silva-sub000/seed"
	"github.com/TobyBrull/silva-sub000/tree"
)

// compileGrammar compiles grammarSrc (written in Seed source text) into a
// seed.Grammar, using the bootstrap recognizer since no compiled
// Seed grammar exists yet to parse it the "normal" way. All tests in this
// file share one Ward between a grammar and the source it parses, since the
// Seed interpreter's lexical and name catalogs are only comparable within
// the same Ward.
func compileGrammar(t *testing.T, grammarSrc string) (*seed.Grammar, *catalog.Ward, *lexseed.Lexer) {
	t.Helper()
	ward := catalog.New()
	lx, err := lexseed.NewLexer()
	require.NoError(t, err)

	tz, err := lx.Tokenize(ward, "grammar.seed", strings.NewReader(grammarSrc))
	require.NoError(t, err)

	src, serr := seed.ParseBootstrap(ward, tz.Tokens(), tz)
	require.Nil(t, serr, "ParseBootstrap: %v", serr)

	names := seed.NewNames(ward)
	g, serr := seed.Compile(ward, names, src)
	require.Nil(t, serr, "Compile: %v", serr)
	return g, ward, lx
}

func parseSource(t *testing.T, g *seed.Grammar, ward *catalog.Ward, lx *lexseed.Lexer, goal string, src string) (tree.Tree, *seed.Error) {
	t.Helper()
	tz, err := lx.Tokenize(ward, "source.txt", strings.NewReader(src))
	require.NoError(t, err)
	in := seed.NewInterpreter(g)
	goalId := ward.NameIdOfPath(strings.Split(goal, ".")...)
	return in.Parse(tz.Tokens(), tz, goalId)
}

// dump renders a tree.Span into a minimal nested-list shape for structural
// assertions, mirroring axe's own test-only `shape`/`dump` helpers.
type shape struct {
	Rule     string
	Text     string
	Children []shape
}

func dump(sp tree.Span, ward *catalog.Ward) shape {
	s := shape{Rule: ward.Absolute(sp.RuleName())}
	kids := sp.ChildIndexes()
	if len(kids) == 0 {
		b, e := sp.TokenRange()
		if e == b+1 {
			s.Text = ward.TokenText(sp.FirstTokenId())
		}
		return s
	}
	for _, idx := range kids {
		s.Children = append(s.Children, dump(sp.SubTreeSpanAt(idx), ward))
	}
	return s
}

// TestArithmeticPrecedence runs arithmetic precedence through a real grammar
// written in Seed source (not axe.Builder calls directly, as axe's own test
// suite exercises): Mul binds tighter than Add because it is declared
// first, per the level-numbering convention recorded in DESIGN.md.
func TestArithmeticPrecedence(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Num = number
Expr = axe
  atom Num
  ltr {
    infix "*" -> Mul
  }
  ltr {
    infix "+" -> Add
  }
`)
	result, serr := parseSource(t, g, ward, lx, "Expr", "1 + 2 * 3")
	require.Nil(t, serr, "parse: %v", serr)

	// Operator node kinds (Mul/Add) are namespaced as children of the axe
	// rule that declares them ("Expr.Mul", not "Mul"): they are synthetic
	// node kinds, not independently callable rules, so NameStyle resolves
	// them as children of Expr rather than siblings of it.
	got := dump(result.Span(), ward)
	if got.Rule != "Expr.Add" {
		t.Fatalf("root rule = %q, want Expr.Add", got.Rule)
	}
	if len(got.Children) != 2 {
		t.Fatalf("Add has %d children, want 2", len(got.Children))
	}
	if got.Children[1].Rule != "Expr.Mul" {
		t.Fatalf("Add's second child = %q, want Expr.Mul", got.Children[1].Rule)
	}
	b, e := result.Span().TokenRange()
	if b != 0 || e != 5 {
		t.Fatalf("root token range = [%d,%d), want [0,5)", b, e)
	}
}

// TestAlternationCommitsOnLeadTerminal: once the "print"
// terminal has matched inside the first alternative, a subsequent failure
// must escalate to Major rather than silently falling back to the second
// alternative.
func TestAlternationCommitsOnLeadTerminal(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Expr = number
Stmt = "print" Expr ";" | Expr ";"
`)
	_, serr := parseSource(t, g, ward, lx, "Stmt", "print ;")
	require.NotNil(t, serr, "expected a parse failure")
	if serr.Worst().Severity != seed.Major {
		t.Fatalf("severity = %v, want Major (commit-point escalation)", serr.Worst().Severity)
	}
}

// TestKeywordScope: an identifier-shaped token's text must be
// in the keyword set accumulated from the literal string terminals that
// appear inside the referenced rule to satisfy keywords_of.
func TestKeywordScope(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Body = "class" | "method"
Check = keywords_of Body
`)
	_, serr := parseSource(t, g, ward, lx, "Check", "class")
	require.Nil(t, serr, "expected 'class' to satisfy keywords_of Body: %v", serr)

	_, serr = parseSource(t, g, ward, lx, "Check", "frobnicate")
	require.NotNil(t, serr, "expected 'frobnicate' to fail keywords_of Body")
}

// TestLookaheadPurity: a successful `not e` advances the cursor by zero
// tokens and leaves no node behind, so wrapping it in a Concat that also
// matches the same token afterward must still succeed and consume exactly
// one token overall.
func TestLookaheadPurity(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Guard = not "else" identifier
`)
	result, serr := parseSource(t, g, ward, lx, "Guard", "then")
	require.Nil(t, serr, "parse: %v", serr)
	_, e := result.Span().TokenRange()
	if e != 1 {
		t.Fatalf("token range end = %d, want 1 (not must consume zero tokens)", e)
	}

	_, serr = parseSource(t, g, ward, lx, "Guard", "else")
	require.NotNil(t, serr, "expected 'not \"else\"' to fail when the input is 'else'")
}

// TestRepetitionOperators exercises Opt/Star/Plus together.
func TestRepetitionOperators(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Digits = number*
Plussed = number+
`)
	result, serr := parseSource(t, g, ward, lx, "Digits", "1 2 3")
	require.Nil(t, serr, "parse: %v", serr)
	b, e := result.Span().TokenRange()
	if b != 0 || e != 3 {
		t.Fatalf("Digits token range = [%d,%d), want [0,3)", b, e)
	}

	_, serr = parseSource(t, g, ward, lx, "Digits", "")
	require.Nil(t, serr, "Digits (star) must accept zero repetitions")

	_, serr = parseSource(t, g, ward, lx, "Plussed", "")
	require.NotNil(t, serr, "Plussed (plus) must reject zero repetitions")
}

// TestAliasRuleDoesNotWrapInOwnNode exercises the RuleAlias ("=>") path:
// the rule contributes no wrapper node of its own, only whatever its
// body produced.
func TestAliasRuleDoesNotWrapInOwnNode(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Num = number
Value => Num
`)
	result, serr := parseSource(t, g, ward, lx, "Value", "7")
	require.Nil(t, serr, "parse: %v", serr)
	if got := ward.Absolute(result.Span().RuleName()); got != "Num" {
		t.Fatalf("alias rule's result = %q, want Num (no extra wrapper)", got)
	}
}

// TestFunctionCallParseF exercises parse_f: it resolves its two
// nonterminal arguments by NameStyle rather than matching input itself.
func TestFunctionCallParseF(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Num = number
Wrapped = parse_f(_, Num)
`)
	result, serr := parseSource(t, g, ward, lx, "Wrapped", "9")
	require.Nil(t, serr, "parse: %v", serr)
	if got := ward.Absolute(result.Span().RuleName()); got != "Wrapped" {
		t.Fatalf("root rule = %q, want Wrapped", got)
	}
	if got := ward.Absolute(result.Span().ChildAt(0).RuleName()); got != "Num" {
		t.Fatalf("Wrapped's child = %q, want Num", got)
	}
}

// TestFunctionCallParseAndCallbackF exercises parse_and_callback_f: the
// registered callback must fire with a span that stays valid even though
// the Nursery it was sliced from keeps mutating afterward.
func TestFunctionCallParseAndCallbackF(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Num = number
Wrapped = parse_and_callback_f(_, Num) number
`)
	tz, err := lx.Tokenize(ward, "source.txt", strings.NewReader("9 5"))
	require.NoError(t, err)

	numRule := ward.NameIdOfPath("Num")
	var captured tree.Span
	var calls int
	in := seed.NewInterpreter(g)
	in.RegisterCallback(numRule, func(sp tree.Span) error {
		calls++
		captured = sp
		return nil
	})

	goalId := ward.NameIdOfPath("Wrapped")
	_, serr := in.Parse(tz.Tokens(), tz, goalId)
	require.Nil(t, serr, "parse: %v", serr)
	if calls != 1 {
		t.Fatalf("callback fired %d times, want 1", calls)
	}
	if got := ward.Absolute(captured.RuleName()); got != "Num" {
		t.Fatalf("captured span rule = %q, want Num", got)
	}
	if b, e := captured.TokenRange(); b != 0 || e != 1 {
		t.Fatalf("captured span token range = [%d,%d), want [0,1) (unaffected by later parsing)", b, e)
	}
}

// TestMaximumRecursionDepthIsFatal exercises the hard recursion-depth limit:
// a self-recursive alias rule with no base case must fail Fatal, not hang.
func TestMaximumRecursionDepthIsFatal(t *testing.T) {
	g, ward, lx := compileGrammar(t, `
Loop => Loop
`)
	_, serr := parseSource(t, g, ward, lx, "Loop", "x")
	require.NotNil(t, serr)
	if serr.Severity != seed.Fatal {
		t.Fatalf("severity = %v, want Fatal (recursion depth guard)", serr.Severity)
	}
}
