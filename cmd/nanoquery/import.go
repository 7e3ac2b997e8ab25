package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/types"
)

func (cli *CLI) newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <records.json>",
		Short: "Append records from a JSON array to the data source",
		Long: `Append the records of a JSON array to the JSON data file or SQLite table.
Records without an id are given a new UUID.

Examples:
  nanoquery --schema posts.yaml --data posts.json import new-posts.json
  nanoquery --schema posts.yaml --sqlite posts.db --table posts import posts.json`,
		Args: cobra.ExactArgs(1),
		RunE: cli.runImport,
	}
}

func (cli *CLI) runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.GetLogger("cli")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	var records []types.Record
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	be, err := cli.openBackend(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()

	switch {
	case be.json != nil:
		added, err := be.json.Append(ctx, records...)
		if err != nil {
			return err
		}
		log.Info().Int("records", len(added)).Msg("imported")
	case be.sql != nil:
		for _, r := range records {
			if id := r.ID(); id == nil || id == "" {
				r[types.IDField] = uuid.New().String()
			}
		}
		if err := be.sql.Insert(ctx, records...); err != nil {
			return err
		}
		log.Info().Int("records", len(records)).Msg("imported")
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", len(records))
	return err
}
