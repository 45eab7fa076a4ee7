package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/TobyBrull/silva-sub000/catalog"
)

// Print writes an ASCII box-drawing rendering of the span to w, one line per
// node, for debugging and golden-file tests.
func Print(w io.Writer, s Span, ward *catalog.Ward) {
	printSpan(w, s, ward, "", true)
}

func printSpan(w io.Writer, s Span, ward *catalog.Ward, prefix string, last bool) {
	connector := "├─ "
	childPrefix := prefix + "│  "
	if last {
		connector = "└─ "
		childPrefix = prefix + "   "
	}
	n := s.Node()
	name := "_"
	if ward != nil {
		name = ward.Absolute(n.RuleName)
	}
	fmt.Fprintf(w, "%s%s%s [%d,%d)\n", prefix, connector, name, n.TokenBegin, n.TokenEnd)

	children := s.ChildIndexes()
	for i, idx := range children {
		printSpan(w, s.SubTreeSpanAt(idx), ward, childPrefix, i == len(children)-1)
	}
}

// String renders the span to a string, for use in test assertions.
func String(s Span, ward *catalog.Ward) string {
	var b strings.Builder
	Print(&b, s, ward)
	return b.String()
}
