package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/lexseed"
	"github.com/TobyBrull/silva-sub000/seed"
	"github.com/TobyBrull/silva-sub000/tree"
)

const (
	outputFormatText = "text"
	outputFormatTree = "tree"
	outputFormatJSON = "json"
)

var parseFlags = struct {
	goal   *string
	format *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <grammar file> <source file>",
		Short:   "Parse a source file against a Seed grammar",
		Example: `  silva parse grammar.seed program.txt --goal Program`,
		Args:    cobra.ExactArgs(2),
		RunE:    runParse,
	}
	parseFlags.goal = cmd.Flags().StringP("goal", "g", "", "goal rule name, e.g. Program or Expr.Primary (required)")
	parseFlags.format = cmd.Flags().StringP("format", "f", outputFormatTree, "output format: one of text|tree|json")
	cmd.MarkFlagRequired("goal")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if *parseFlags.format != outputFormatText && *parseFlags.format != outputFormatTree && *parseFlags.format != outputFormatJSON {
		return fmt.Errorf("invalid output format: %v", *parseFlags.format)
	}

	ward := catalog.New()
	lx, err := lexseed.NewLexer()
	if err != nil {
		return err
	}

	g, err := loadGrammar(ward, lx, args[0])
	if err != nil {
		return err
	}
	tz, err := loadSource(ward, lx, args[1])
	if err != nil {
		return err
	}

	goal := resolveGoal(ward, *parseFlags.goal)
	in := seed.NewInterpreter(g)
	result, serr := in.Parse(tz.Tokens(), tz, goal)
	if serr != nil {
		return fmt.Errorf("%v", serr)
	}

	switch *parseFlags.format {
	case outputFormatTree:
		tree.Print(os.Stdout, result.Span(), ward)
	case outputFormatJSON:
		return printJSON(result, ward)
	default:
		printLeaves(result.Span(), ward)
	}
	return nil
}

// jsonNode is a plain projection of a tree.Node suitable for encoding/json.
type jsonNode struct {
	Rule     string     `json:"rule"`
	Begin    uint32     `json:"token_begin"`
	End      uint32     `json:"token_end"`
	Children []jsonNode `json:"children,omitempty"`
}

func toJSONNode(sp tree.Span, ward *catalog.Ward) jsonNode {
	n := sp.Node()
	jn := jsonNode{Rule: ward.Absolute(n.RuleName), Begin: n.TokenBegin, End: n.TokenEnd}
	for _, idx := range sp.ChildIndexes() {
		jn.Children = append(jn.Children, toJSONNode(sp.SubTreeSpanAt(idx), ward))
	}
	return jn
}

func printJSON(t tree.Tree, ward *catalog.Ward) error {
	b, err := json.Marshal(toJSONNode(t.Span(), ward))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(b))
	return nil
}

// printLeaves writes one line per leaf token, in pre-order, the text form
// useful when skimming what a grammar actually matched.
func printLeaves(sp tree.Span, ward *catalog.Ward) {
	n := sp.Node()
	if n.NumChildren == 0 {
		b, e := sp.TokenRange()
		fmt.Fprintf(os.Stdout, "%s [%d,%d)\n", ward.Absolute(n.RuleName), b, e)
		return
	}
	for _, idx := range sp.ChildIndexes() {
		printLeaves(sp.SubTreeSpanAt(idx), ward)
	}
}
