package lexseed

import (
	"fmt"
	"strconv"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/tree"
)

// Tokenization is the tree.Tokenization implementation produced by Lexer.Tokenize.
type Tokenization struct {
	ward *catalog.Ward
	file string
	ids  []catalog.TokenId
	locs []tree.Location
}

var _ tree.Tokenization = (*Tokenization)(nil)

func (tz *Tokenization) Tokens() []catalog.TokenId { return tz.ids }

func (tz *Tokenization) TokenCount() int { return len(tz.ids) }

func (tz *Tokenization) CategoryOf(id catalog.TokenId) catalog.Category {
	return tz.ward.TokenInfo(id).Category
}

func (tz *Tokenization) LocationOf(tokenIndex int) tree.Location {
	return tz.locs[tokenIndex]
}

// UnquoteString decodes a STRING-category token's surface text (including
// its surrounding quotes and escapes) to its plain contents, using Go's own
// double-quoted string grammar, which is a superset-compatible decoder for
// Seed's C-style string literals.
func (tz *Tokenization) UnquoteString(id catalog.TokenId) (string, error) {
	info := tz.ward.TokenInfo(id)
	if info.Category != catalog.CategoryString {
		return "", fmt.Errorf("lexseed: token %q is not a string literal", info.Text)
	}
	s, err := strconv.Unquote(info.Text)
	if err != nil {
		return "", fmt.Errorf("lexseed: invalid string literal %q: %w", info.Text, err)
	}
	return s, nil
}
