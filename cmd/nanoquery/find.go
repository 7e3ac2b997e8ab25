package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/nanoquery"
	"github.com/arthur-debert/nanoquery/types"
)

func (cli *CLI) newFindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Fetch one page of records",
		Long: `Fetch one page of the records matching the query text and --where
constraints, ordered by --order-by and the record id.

Page forwards with --first/--after, backwards with --last/--before, passing
the endCursor or startCursor of the previous page.

Examples:
  nanoquery find -q 'status:draft "hello"' --first 1
  nanoquery find --where status=draft --where tags=go,db --order-by views --desc
  nanoquery find --first 5 --after eyJpZCI6eyJ0Ijoic3RyaW5nIiwidiI6InAwNSJ9fQ`,
		Args: cobra.NoArgs,
		RunE: cli.runFind,
	}

	flags := cmd.Flags()
	flags.Int("first", 0, "Page size when paging forwards")
	flags.String("after", "", "Cursor to page forwards from")
	flags.Int("last", 0, "Page size when paging backwards")
	flags.String("before", "", "Cursor to page backwards from")
	flags.StringP("query", "q", "", "Filter query text")
	flags.StringArrayP("where", "w", nil, "Equality constraint field=value (comma separated values match any)")
	flags.String("order-by", "", "Field to order by (defaults to id)")
	flags.Bool("desc", false, "Order descending")
	return cmd
}

func (cli *CLI) runFind(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.GetLogger("cli")

	args, err := findArgs(cmd)
	if err != nil {
		return err
	}

	be, err := cli.openBackend(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()

	m := nanoquery.New(be.store,
		nanoquery.WithStrict(cli.viperInst.GetBool("strict")),
		nanoquery.WithDefaultLimit(cli.viperInst.GetInt("default-limit")),
		nanoquery.WithMaxLimit(cli.viperInst.GetInt("max-limit")),
		nanoquery.WithLogger(log),
	)
	conn, err := m.Find(ctx, be.schema, args, nil)
	if err != nil {
		return err
	}
	return cli.writeOutput(cmd.OutOrStdout(), conn)
}

// findArgs maps the find flags onto paging arguments. Only flags given on
// the command line are set, so that paging direction conflicts surface.
func findArgs(cmd *cobra.Command) (nanoquery.Args, error) {
	flags := cmd.Flags()
	var args nanoquery.Args

	if flags.Changed("first") {
		n, _ := flags.GetInt("first")
		args.First = &n
	}
	if flags.Changed("last") {
		n, _ := flags.GetInt("last")
		args.Last = &n
	}
	if flags.Changed("after") {
		s, _ := flags.GetString("after")
		args.After = &s
	}
	if flags.Changed("before") {
		s, _ := flags.GetString("before")
		args.Before = &s
	}
	args.Query, _ = flags.GetString("query")

	if orderBy, _ := flags.GetString("order-by"); orderBy != "" {
		args.OrderBy = &nanoquery.OrderBy{Field: orderBy, Direction: types.Ascending}
		if desc, _ := flags.GetBool("desc"); desc {
			args.OrderBy.Direction = types.Descending
		}
	} else if desc, _ := flags.GetBool("desc"); desc {
		args.OrderBy = &nanoquery.OrderBy{Field: types.IDField, Direction: types.Descending}
	}

	where, _ := flags.GetStringArray("where")
	filter, err := parseWhere(where)
	if err != nil {
		return args, err
	}
	args.Filter = filter
	return args, nil
}

// parseWhere turns field=value pairs into request filters. Comma separated
// values and repeated fields both mean any of the values.
func parseWhere(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --where %q: expected field=value", pair)
		}

		var values []any
		for _, v := range strings.Split(value, ",") {
			values = append(values, strings.TrimSpace(v))
		}

		switch existing := out[name].(type) {
		case nil:
			if len(values) == 1 {
				out[name] = values[0]
			} else {
				out[name] = values
			}
		case []any:
			out[name] = append(existing, values...)
		default:
			out[name] = append([]any{existing}, values...)
		}
	}
	return out, nil
}
