package catalog

import "testing"

func TestInternIsIdempotent(t *testing.T) {
	w := New()
	a := w.Intern("foo", CategoryIdentifier)
	b := w.Intern("foo", CategoryIdentifier)
	if a != b {
		t.Fatalf("expected same TokenId, got %v and %v", a, b)
	}
	c := w.Intern("bar", CategoryIdentifier)
	if a == c {
		t.Fatalf("distinct text must get distinct TokenId")
	}
}

func TestNameTreeAncestryAndLca(t *testing.T) {
	w := New()
	seed := w.NameIdOfPath("Seed")
	axe := w.NameIdOfPath("Seed", "Axe")
	level := w.NameIdOfPath("Seed", "Axe", "Level")
	expr := w.NameIdOfPath("Seed", "Expr")

	if !w.IsAncestor(seed, level) {
		t.Fatalf("Seed should be an ancestor of Seed.Axe.Level")
	}
	if w.IsAncestor(axe, expr) {
		t.Fatalf("Seed.Axe must not be an ancestor of Seed.Expr")
	}
	if got := w.Lca(level, expr); got != seed {
		t.Fatalf("lca(Level, Expr) = %v, want Seed (%v)", got, seed)
	}
	if got := w.ParentOf(level); got != axe {
		t.Fatalf("parent of Level = %v, want Axe (%v)", got, axe)
	}
}

func TestNameIdOfPathIsStable(t *testing.T) {
	w := New()
	a := w.NameIdOfPath("Seed", "Rule")
	b := w.NameIdOfPath("Seed", "Rule")
	if a != b {
		t.Fatalf("re-deriving the same path must yield the same NameId")
	}
}

func TestAbsolute(t *testing.T) {
	w := New()
	level := w.NameIdOfPath("Seed", "Axe", "Level")
	if got, want := w.Absolute(level), "Seed.Axe.Level"; got != want {
		t.Fatalf("Absolute() = %q, want %q", got, want)
	}
}
