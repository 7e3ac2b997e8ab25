package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/nanoquery/parser"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
)

func (cli *CLI) newParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <query text>",
		Short: "Show the filter a query text produces",
		Long: `Parse query text against the schema and print the resulting filter tree.
With --tokens, print the lexical tokens instead; no schema is needed then.

Examples:
  nanoquery --schema posts.yaml parse 'status:draft "hello"'
  nanoquery parse --tokens 'views>=10 -tags:misc'`,
		Args: cobra.MinimumNArgs(1),
		RunE: cli.runParse,
	}
	cmd.Flags().Bool("tokens", false, "Print tokens instead of the filter tree")
	return cmd
}

func (cli *CLI) runParse(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if tokens, _ := cmd.Flags().GetBool("tokens"); tokens {
		toks, err := parser.Tokenize(text)
		if err != nil {
			return err
		}
		for _, t := range toks {
			if t.Kind == parser.EOF {
				break
			}
			fmt.Fprintf(out, "%4d  %-12s %s\n", t.Pos, t.Kind, t.Lexeme)
		}
		return nil
	}

	schema, err := cli.loadSchema()
	if err != nil {
		return err
	}
	// parse always reports syntax errors
	node, err := query.Parse(text, schema, query.Options{Strict: true})
	if err != nil {
		return err
	}
	if node == nil {
		fmt.Fprintln(out, "<no filter>")
		return nil
	}
	fmt.Fprintln(out, node.String())
	return nil
}
