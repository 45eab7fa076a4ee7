package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/lexseed"
	"github.com/TobyBrull/silva-sub000/seed"
)

// loadGrammar tokenizes the Seed source at grammarPath, parses it with the
// bootstrap recognizer (no grammar exists yet to drive a compiled Seed
// interpreter over its own meta-language), and compiles the result into a
// seed.Grammar.
func loadGrammar(ward *catalog.Ward, lx *lexseed.Lexer, grammarPath string) (*seed.Grammar, error) {
	f, err := os.Open(grammarPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open grammar file %s: %w", grammarPath, err)
	}
	defer f.Close()

	tz, err := lx.Tokenize(ward, grammarPath, f)
	if err != nil {
		return nil, err
	}
	src, serr := seed.ParseBootstrap(ward, tz.Tokens(), tz)
	if serr != nil {
		return nil, fmt.Errorf("cannot parse grammar: %v", serr)
	}
	names := seed.NewNames(ward)
	g, serr := seed.Compile(ward, names, src)
	if serr != nil {
		return nil, fmt.Errorf("cannot compile grammar: %v", serr)
	}
	return g, nil
}

// loadSource tokenizes the source file at sourcePath against the same Ward
// a grammar was compiled with, so the two share one interned vocabulary.
func loadSource(ward *catalog.Ward, lx *lexseed.Lexer, sourcePath string) (*lexseed.Tokenization, error) {
	var f *os.File
	var err error
	if sourcePath == "" || sourcePath == "-" {
		f = os.Stdin
	} else {
		f, err = os.Open(sourcePath)
		if err != nil {
			return nil, fmt.Errorf("cannot open source file %s: %w", sourcePath, err)
		}
		defer f.Close()
	}
	return lx.Tokenize(ward, sourcePath, f)
}

// resolveGoal turns a dotted rule-name flag ("Program" or "Expr.Mul") into
// the fully-qualified NameId the grammar compiler would have produced for a
// top-level rule of that name.
func resolveGoal(ward *catalog.Ward, goal string) catalog.NameId {
	return ward.NameIdOfPath(strings.Split(goal, ".")...)
}
