// Package lexseed tokenizes Seed source text (and the target source text of
// a grammar built with Seed) using maleeni as the underlying lexical engine.
package lexseed

import (
	"fmt"
	"io"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mldriver "github.com/nihei9/maleeni/driver"
	mlspec "github.com/nihei9/maleeni/spec"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// kind names for the fixed lexical spec below. Seed source and the grammars
// it describes share this one lexical vocabulary; a grammar narrows it
// further only through regex-refined terminals and keyword scopes, both
// resolved against the already-tokenized stream, not the lexer.
const (
	kindIdentifier = "identifier"
	kindOperator   = "operator"
	kindString     = "string"
	kindNumber     = "number"
	kindComment    = "comment"
	kindSpace      = "space"
)

// categoryOf maps a maleeni lexical kind name to a catalog.Category.
func categoryOf(kind string) catalog.Category {
	switch kind {
	case kindIdentifier:
		return catalog.CategoryIdentifier
	case kindOperator:
		return catalog.CategoryOperator
	case kindString:
		return catalog.CategoryString
	case kindNumber:
		return catalog.CategoryNumber
	default:
		return catalog.CategoryNone
	}
}

// buildLexSpec constructs the fixed maleeni lexical specification shared by
// every Seed-driven lexer: identifiers, operator punctuation, quoted
// strings, numbers, line comments and whitespace (the latter two skipped).
// This mirrors grammar.GrammarBuilder.genSymbolTableAndLexSpec's pattern of
// handing maleeni a flat []*mlspec.LexEntry rather than going through
// vartan's own grammar/lexical DSL.
func buildLexSpec() *mlspec.LexSpec {
	return &mlspec.LexSpec{
		Entries: []*mlspec.LexEntry{
			{Kind: mlspec.LexKindName(kindIdentifier), Pattern: mlspec.LexPattern(`[A-Za-z_][0-9A-Za-z_]*`)},
			{Kind: mlspec.LexKindName(kindNumber), Pattern: mlspec.LexPattern(`[0-9]+(\.[0-9]+)?`)},
			{Kind: mlspec.LexKindName(kindString), Pattern: mlspec.LexPattern(`"(\\.|[^"\\])*"`)},
			// Keyword-shaped operators ("not", "but_then", ...) are left to
			// lex as identifiers; the grammar compiler's string-to-keyword
			// mapping distinguishes them by text, not by category.
			{Kind: mlspec.LexKindName(kindOperator), Pattern: mlspec.LexPattern(`->|=>|[(){}\[\],;:.?*+|=/>-]`)},
			{Kind: mlspec.LexKindName(kindComment), Pattern: mlspec.LexPattern(`#[^\n]*`)},
			{Kind: mlspec.LexKindName(kindSpace), Pattern: mlspec.LexPattern(`[ \t\r\n]+`)},
		},
	}
}

// Lexer compiles the fixed lexical specification once; compilation is
// costly and the spec never varies per grammar, so a process keeps exactly
// one Lexer and reuses it for every source it tokenizes.
type Lexer struct {
	compiled *mlspec.CompiledLexSpec
	skip     map[mlspec.LexKindID]bool
}

// NewLexer compiles the shared Seed lexical specification.
func NewLexer() (*Lexer, error) {
	compiled, err, cerrs := mlcompiler.Compile(buildLexSpec(), mlcompiler.CompressionLevelMax)
	if err != nil {
		if len(cerrs) > 0 {
			return nil, fmt.Errorf("lexseed: %v", cerrs[0])
		}
		return nil, fmt.Errorf("lexseed: %w", err)
	}
	skip := map[mlspec.LexKindID]bool{}
	for id, name := range compiled.KindNames {
		switch name.String() {
		case kindComment, kindSpace:
			skip[mlspec.LexKindID(id)] = true
		}
	}
	return &Lexer{compiled: compiled, skip: skip}, nil
}

// Tokenize reads all of src and interns every non-skipped token into ward,
// returning a Tokenization ready for the Seed interpreter.
func (lx *Lexer) Tokenize(ward *catalog.Ward, file string, src io.Reader) (*Tokenization, error) {
	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(lx.compiled), src)
	if err != nil {
		return nil, fmt.Errorf("lexseed: %w", err)
	}

	tz := &Tokenization{ward: ward, file: file}
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("lexseed: %w", err)
		}
		if tok.EOF {
			break
		}
		if tok.Invalid {
			return nil, fmt.Errorf("lexseed: %s:%d:%d: invalid token %q", file, tok.Row+1, tok.Col+1, string(tok.Lexeme))
		}
		if lx.skip[tok.KindID] {
			continue
		}
		kindName := lx.compiled.KindNames[tok.KindID].String()
		id := ward.Intern(string(tok.Lexeme), categoryOf(kindName))
		tz.ids = append(tz.ids, id)
		tz.locs = append(tz.locs, tree.Location{File: file, Line: tok.Row + 1, Col: tok.Col + 1})
	}
	return tz, nil
}
