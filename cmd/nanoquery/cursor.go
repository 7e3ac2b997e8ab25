package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/nanoquery/connection"
	"github.com/arthur-debert/nanoquery/nanoquery/filter"
)

func (cli *CLI) newCursorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or build pagination cursors",
	}

	decode := &cobra.Command{
		Use:   "decode <cursor>",
		Short: "Print the position a cursor points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connection.DecodeCursor(args[0])
			if err != nil {
				return err
			}
			out := map[string]any{"id": filter.FormatValue(c.ID)}
			if c.HasValue {
				out["value"] = filter.FormatValue(c.Value)
			}
			return cli.writeOutput(cmd.OutOrStdout(), out)
		},
	}

	encode := &cobra.Command{
		Use:   "encode",
		Short: "Build a cursor for a record id and optional sort value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			c := connection.NewCursor(id)
			if cmd.Flags().Changed("value") {
				v, _ := cmd.Flags().GetString("value")
				c = c.WithValue(v)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), connection.EncodeCursor(c))
			return err
		},
	}
	encode.Flags().String("id", "", "Record id")
	encode.Flags().String("value", "", "Sort value (string)")

	cmd.AddCommand(decode, encode)
	return cmd
}
