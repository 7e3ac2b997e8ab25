package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/internal/logging"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/types"
)

// Issue is a stored value that does not fit its field declaration
type Issue struct {
	ID      any    `json:"id" yaml:"id"`
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

// Report summarizes a validation run
type Report struct {
	Records int     `json:"records" yaml:"records"`
	Issues  []Issue `json:"issues" yaml:"issues"`
}

func (cli *CLI) newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate that all records conform to the schema",
		Long: `Check every record of the data source against the schema: each record
needs an id, and stored values must convert to their field's type. Array
fields must hold lists. Missing and null values are accepted.

Examples:
  nanoquery --schema posts.yaml --data posts.json validate
  nanoquery --schema posts.yaml --sqlite posts.db --table posts validate -f yaml`,
		Args: cobra.NoArgs,
		RunE: cli.runValidate,
	}
}

func (cli *CLI) runValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.GetLogger("cli")

	be, err := cli.openBackend(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()

	records, err := be.store.Find(ctx, types.FindOptions{
		Sort: []types.SortKey{{Field: types.IDField, Direction: types.Ascending}},
	})
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	report := validateRecords(be.schema, records)
	log.Debug().Int("records", report.Records).Int("issues", len(report.Issues)).Msg("validated")

	if err := cli.writeOutput(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if n := len(report.Issues); n > 0 {
		return fmt.Errorf("%d validation issues found", n)
	}
	return nil
}

func validateRecords(schema *types.Schema, records []types.Record) Report {
	report := Report{Records: len(records), Issues: []Issue{}}
	for _, r := range records {
		id := r.ID()
		if id == nil || id == "" {
			report.Issues = append(report.Issues, Issue{Field: types.IDField, Message: "record has no id"})
		}

		for _, f := range schema.Fields() {
			// transformed fields have no stored value
			if _, ok := f.Transformer(); ok {
				continue
			}
			raw, ok := r.Lookup(f.StorePath())
			if !ok || raw == nil {
				continue
			}
			if msg := checkValue(f, raw); msg != "" {
				report.Issues = append(report.Issues, Issue{ID: id, Field: f.Name, Message: msg})
			}
		}
	}
	return report
}

func checkValue(f types.Field, raw any) string {
	if !f.Array {
		if _, ok := query.Coerce(f.Type, raw); !ok {
			return fmt.Sprintf("value %v is not a valid %s", raw, f.Type)
		}
		return ""
	}

	items, ok := raw.([]any)
	if !ok {
		return fmt.Sprintf("expected a list, got %T", raw)
	}
	for i, item := range items {
		if _, ok := query.Coerce(f.Type, item); !ok {
			return fmt.Sprintf("element %d: value %v is not a valid %s", i, item, f.Type)
		}
	}
	return ""
}
