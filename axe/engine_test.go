package axe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

type fakeTokenization struct {
	toks []catalog.TokenId
}

func (f fakeTokenization) Tokens() []catalog.TokenId { return f.toks }
func (f fakeTokenization) TokenCount() int           { return len(f.toks) }
func (f fakeTokenization) CategoryOf(catalog.TokenId) catalog.Category {
	return catalog.CategoryIdentifier
}
func (f fakeTokenization) LocationOf(int) tree.Location { return tree.Location{} }
func (f fakeTokenization) UnquoteString(catalog.TokenId) (string, error) { return "", nil }

// dump renders a Span into a minimal nested-list shape for go-cmp
// comparisons, so tests assert on tree shape rather than raw indices.
type shape struct {
	Rule     string
	Children []shape
}

func dump(sp tree.Span, ward *catalog.Ward) shape {
	s := shape{Rule: ward.Absolute(sp.RuleName())}
	for _, ci := range sp.ChildIndexes() {
		s.Children = append(s.Children, dump(sp.SubTreeSpanAt(ci), ward))
	}
	return s
}

func leafShape(name string) shape { return shape{Rule: name} }

// atomHarness builds an AtomFunc that treats any token interned under one
// of the given leaf names as a one-token atom, and fails (no match)
// otherwise — the behavior an Axe rule's referenced atom rule would have
// once it runs out of alternatives it recognizes.
func atomHarness(ward *catalog.Ward, leafOf map[catalog.TokenId]catalog.NameId) AtomFunc {
	return func(nu *tree.Nursery) (bool, error) {
		tok := nu.TokenIdAt()
		name, ok := leafOf[tok]
		if !ok {
			return false, nil
		}
		st := nu.Stake()
		st.CreateNode(name)
		nu.Advance()
		st.Commit()
		return true, nil
	}
}

func runParse(t *testing.T, spec *Spec, ward *catalog.Ward, toks []catalog.TokenId, atomFunc AtomFunc) tree.Span {
	t.Helper()
	_ = ward
	nu := tree.NewNursery(toks)
	sp, err := Parse(nu, spec, atomFunc)
	require.NoError(t, err)
	require.Equal(t, 0, nu.NumTokensLeft(), "axe must consume the whole token stream")
	return sp
}

func numberSpec(t *testing.T, ward *catalog.Ward) (*Spec, catalog.TokenId, catalog.TokenId, catalog.TokenId, catalog.TokenId) {
	t.Helper()
	plus := ward.Intern("+", catalog.CategoryOperator)
	star := ward.Intern("*", catalog.CategoryOperator)
	add := ward.NameIdOfPath("Add")
	mul := ward.NameIdOfPath("Mul")

	b := NewBuilder(ward.NameIdOfPath("Arith"), ward.NameIdOfPath("Num"))
	b.LTRLevel(Group{Kind: Infix, Tokens: []catalog.TokenId{star}, Produces: mul})
	b.LTRLevel(Group{Kind: Infix, Tokens: []catalog.TokenId{plus}, Produces: add})
	spec, err := b.Build()
	require.NoError(t, err)
	return spec, plus, star, add, mul
}

// TestArithmeticPrecedence is scenario 1: 1+2*3 -> Add(1, Mul(2,3)).
func TestArithmeticPrecedence(t *testing.T) {
	ward := catalog.New()
	spec, plus, star, add, mul := numberSpec(t, ward)
	num := ward.NameIdOfPath("Num")

	n1 := ward.Intern("1", catalog.CategoryNumber)
	n2 := ward.Intern("2", catalog.CategoryNumber)
	n3 := ward.Intern("3", catalog.CategoryNumber)
	leafOf := map[catalog.TokenId]catalog.NameId{n1: num, n2: num, n3: num}

	toks := []catalog.TokenId{n1, plus, n2, star, n3}
	sp := runParse(t, spec, ward, toks, atomHarness(ward, leafOf))

	got := dump(sp, ward)
	want := shape{Rule: "Add", Children: []shape{
		leafShape("Num"),
		{Rule: "Mul", Children: []shape{leafShape("Num"), leafShape("Num")}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
}

// TestRightAssociativity is scenario 2: a=b=c -> Assign(a, Assign(b,c)).
func TestRightAssociativity(t *testing.T) {
	ward := catalog.New()
	assignTok := ward.Intern("=", catalog.CategoryOperator)
	assign := ward.NameIdOfPath("Assign")
	ident := ward.NameIdOfPath("Ident")

	b := NewBuilder(ward.NameIdOfPath("AssignExpr"), ident)
	b.RTLLevel(Group{Kind: Infix, Tokens: []catalog.TokenId{assignTok}, Produces: assign})
	spec, err := b.Build()
	require.NoError(t, err)

	a := ward.Intern("a", catalog.CategoryIdentifier)
	bb := ward.Intern("b", catalog.CategoryIdentifier)
	c := ward.Intern("c", catalog.CategoryIdentifier)
	leafOf := map[catalog.TokenId]catalog.NameId{a: ident, bb: ident, c: ident}

	toks := []catalog.TokenId{a, assignTok, bb, assignTok, c}
	sp := runParse(t, spec, ward, toks, atomHarness(ward, leafOf))

	got := dump(sp, ward)
	want := shape{Rule: "Assign", Children: []shape{
		leafShape("Ident"),
		{Rule: "Assign", Children: []shape{leafShape("Ident"), leafShape("Ident")}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
}

// TestFlattenedInfix is scenario 3: 1,2,3,4 -> one Comma node, four children.
func TestFlattenedInfix(t *testing.T) {
	ward := catalog.New()
	commaTok := ward.Intern(",", catalog.CategoryOperator)
	comma := ward.NameIdOfPath("Comma")
	num := ward.NameIdOfPath("Num")

	b := NewBuilder(ward.NameIdOfPath("CommaExpr"), num)
	b.LTRLevel(Group{Kind: Infix, Tokens: []catalog.TokenId{commaTok}, Produces: comma, Flatten: true})
	spec, err := b.Build()
	require.NoError(t, err)

	n1 := ward.Intern("1", catalog.CategoryNumber)
	n2 := ward.Intern("2", catalog.CategoryNumber)
	n3 := ward.Intern("3", catalog.CategoryNumber)
	n4 := ward.Intern("4", catalog.CategoryNumber)
	leafOf := map[catalog.TokenId]catalog.NameId{n1: num, n2: num, n3: num, n4: num}

	toks := []catalog.TokenId{n1, commaTok, n2, commaTok, n3, commaTok, n4}
	sp := runParse(t, spec, ward, toks, atomHarness(ward, leafOf))

	if got := sp.RuleName(); got != comma {
		t.Fatalf("root rule = %v, want Comma", ward.Absolute(got))
	}
	if n := len(sp.ChildIndexes()); n != 4 {
		t.Fatalf("Comma node has %d children, want 4", n)
	}
}

// TestNestedBracketsAndPostfixCall is scenario 4: -f(x) -> Unary(Call(f,x)).
func TestNestedBracketsAndPostfixCall(t *testing.T) {
	ward := catalog.New()
	minus := ward.Intern("-", catalog.CategoryOperator)
	lparen := ward.Intern("(", catalog.CategoryOperator)
	rparen := ward.Intern(")", catalog.CategoryOperator)
	unary := ward.NameIdOfPath("Unary")
	call := ward.NameIdOfPath("Call")
	prim := ward.NameIdOfPath("Primary")
	ident := ward.NameIdOfPath("Ident")

	b := NewBuilder(ward.NameIdOfPath("Expr"), ident)
	b.NestLevel(NestPair{Open: lparen, Close: rparen, Produces: prim})
	b.LTRLevel(Group{Kind: PostfixNest, Tokens: []catalog.TokenId{lparen}, Second: rparen, Produces: call})
	b.RTLLevel(Group{Kind: Prefix, Tokens: []catalog.TokenId{minus}, Produces: unary})
	spec, err := b.Build()
	require.NoError(t, err)

	f := ward.Intern("f", catalog.CategoryIdentifier)
	x := ward.Intern("x", catalog.CategoryIdentifier)
	leafOf := map[catalog.TokenId]catalog.NameId{f: ident, x: ident}

	toks := []catalog.TokenId{minus, f, lparen, x, rparen}
	sp := runParse(t, spec, ward, toks, atomHarness(ward, leafOf))

	got := dump(sp, ward)
	want := shape{Rule: "Unary", Children: []shape{
		{Rule: "Call", Children: []shape{leafShape("Ident"), leafShape("Ident")}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}

	b0, e0 := sp.TokenRange()
	if b0 != 0 || e0 != 5 {
		t.Fatalf("root token range = [%d,%d), want [0,5) (whole input consumed)", b0, e0)
	}
}

// TestTernary exercises the mixfix `a ? b : c` operator kind, combined with
// a concat level so the middle content's close token (":") must be
// recognized as a right bracket rather than triggering a spurious implicit
// concat.
func TestTernary(t *testing.T) {
	ward := catalog.New()
	question := ward.Intern("?", catalog.CategoryOperator)
	colon := ward.Intern(":", catalog.CategoryOperator)
	cond := ward.NameIdOfPath("Cond")
	ident := ward.NameIdOfPath("Ident")
	concat := ward.NameIdOfPath("Concat")

	b := NewBuilder(ward.NameIdOfPath("Expr"), ident)
	b.LTRLevel(Group{Kind: Infix, Produces: concat, Flatten: true, Concat: true})
	b.RTLLevel(Group{Kind: Ternary, Tokens: []catalog.TokenId{question}, Second: colon, Produces: cond})
	spec, err := b.Build()
	require.NoError(t, err)

	a := ward.Intern("a", catalog.CategoryIdentifier)
	bb := ward.Intern("b", catalog.CategoryIdentifier)
	c := ward.Intern("c", catalog.CategoryIdentifier)
	leafOf := map[catalog.TokenId]catalog.NameId{a: ident, bb: ident, c: ident}

	toks := []catalog.TokenId{a, question, bb, colon, c}
	sp := runParse(t, spec, ward, toks, atomHarness(ward, leafOf))

	got := dump(sp, ward)
	want := shape{Rule: "Cond", Children: []shape{
		leafShape("Ident"), leafShape("Ident"), leafShape("Ident"),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
}

// TestBuilderRejectsNonNestLevelBeforeNest confirms the nest-levels-first
// ordering rule.
func TestBuilderRejectsNonNestLevelBeforeNest(t *testing.T) {
	ward := catalog.New()
	plus := ward.Intern("+", catalog.CategoryOperator)
	lparen := ward.Intern("(", catalog.CategoryOperator)
	rparen := ward.Intern(")", catalog.CategoryOperator)

	b := NewBuilder(ward.NameIdOfPath("Bad"), ward.NameIdOfPath("Num"))
	b.LTRLevel(Group{Kind: Infix, Tokens: []catalog.TokenId{plus}, Produces: ward.NameIdOfPath("Add")})
	b.NestLevel(NestPair{Open: lparen, Close: rparen, Produces: ward.NameIdOfPath("Primary")})
	_, err := b.Build()
	require.Error(t, err)
}

// TestBuilderRejectsRepeatedPrefixToken confirms the "at most once in
// prefix position" rule.
func TestBuilderRejectsRepeatedPrefixToken(t *testing.T) {
	ward := catalog.New()
	minus := ward.Intern("-", catalog.CategoryOperator)

	b := NewBuilder(ward.NameIdOfPath("Bad"), ward.NameIdOfPath("Num"))
	b.RTLLevel(Group{Kind: Prefix, Tokens: []catalog.TokenId{minus}, Produces: ward.NameIdOfPath("Neg")})
	b.RTLLevel(Group{Kind: Prefix, Tokens: []catalog.TokenId{minus}, Produces: ward.NameIdOfPath("Flip")})
	_, err := b.Build()
	require.Error(t, err)
}
