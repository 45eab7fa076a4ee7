package lexseed

import (
	"strings"
	"testing"

	"github.com/TobyBrull/silva-sub000/catalog"
)

func TestTokenizeSkipsWhitespaceAndComments(t *testing.T) {
	lx, err := NewLexer()
	if err != nil {
		t.Fatalf("NewLexer() error: %v", err)
	}
	w := catalog.New()
	tz, err := lx.Tokenize(w, "test.seed", strings.NewReader("foo  # a comment\n  bar"))
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	if tz.TokenCount() != 2 {
		t.Fatalf("TokenCount() = %d, want 2", tz.TokenCount())
	}
	if got := w.TokenText(tz.Tokens()[0]); got != "foo" {
		t.Fatalf("token 0 = %q, want foo", got)
	}
	if got := w.TokenText(tz.Tokens()[1]); got != "bar" {
		t.Fatalf("token 1 = %q, want bar", got)
	}
}

func TestTokenizeClassifiesCategories(t *testing.T) {
	lx, err := NewLexer()
	if err != nil {
		t.Fatalf("NewLexer() error: %v", err)
	}
	w := catalog.New()
	tz, err := lx.Tokenize(w, "test.seed", strings.NewReader(`ident 42 "str" ( )`))
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	want := []catalog.Category{
		catalog.CategoryIdentifier,
		catalog.CategoryNumber,
		catalog.CategoryString,
		catalog.CategoryOperator,
		catalog.CategoryOperator,
	}
	if tz.TokenCount() != len(want) {
		t.Fatalf("TokenCount() = %d, want %d", tz.TokenCount(), len(want))
	}
	for i, id := range tz.Tokens() {
		if got := tz.CategoryOf(id); got != want[i] {
			t.Fatalf("token %d category = %v, want %v", i, got, want[i])
		}
	}
}

func TestUnquoteString(t *testing.T) {
	lx, err := NewLexer()
	if err != nil {
		t.Fatalf("NewLexer() error: %v", err)
	}
	w := catalog.New()
	tz, err := lx.Tokenize(w, "test.seed", strings.NewReader(`"hello\nworld"`))
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}
	got, err := tz.UnquoteString(tz.Tokens()[0])
	if err != nil {
		t.Fatalf("UnquoteString() error: %v", err)
	}
	if want := "hello\nworld"; got != want {
		t.Fatalf("UnquoteString() = %q, want %q", got, want)
	}
}
