package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobyBrull/silva-sub000/catalog"
	"github.com/TobyBrull/silva-sub000/lexseed"
)

func init() {
	cmd := &cobra.Command{
		Use:     "tokens <source file>",
		Short:   "Tokenize a source file and print the resulting token stream",
		Example: `  silva tokens program.txt`,
		Args:    cobra.ExactArgs(1),
		RunE:    runTokens,
	}
	rootCmd.AddCommand(cmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	ward := catalog.New()
	lx, err := lexseed.NewLexer()
	if err != nil {
		return err
	}
	tz, err := loadSource(ward, lx, args[0])
	if err != nil {
		return err
	}
	for i, id := range tz.Tokens() {
		loc := tz.LocationOf(i)
		info := ward.TokenInfo(id)
		fmt.Fprintf(os.Stdout, "%d:%d\t%v\t%q\n", loc.Line, loc.Col, info.Category, info.Text)
	}
	return nil
}
