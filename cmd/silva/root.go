package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "silva",
	Short: "Parse a grammar written in Seed and run it against a source file",
	Long: `silva provides two features:
- Compiles a grammar written in the Seed meta-language and runs it (via the
  Seed interpreter and its embedded Axe expression engine) against a source
  file, producing a parse tree.
- Tokenizes a text stream the same way, primarily for debugging a grammar's
  lexical layer.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
