package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/arthur-debert/nanoquery/nanoquery"
	"github.com/arthur-debert/nanoquery/nanoquery/store"
	"github.com/arthur-debert/nanoquery/types"
)

// backend is an opened store together with its schema
type backend struct {
	schema *types.Schema
	store  types.Store
	json   *store.JSONFileStore
	sql    *store.SQLStore
	close  func() error
}

func (cli *CLI) loadSchema() (*types.Schema, error) {
	path := cli.viperInst.GetString("schema")
	if path == "" {
		return nil, fmt.Errorf("a schema file is required (--schema or NANOQUERY_SCHEMA)")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer func() { _ = f.Close() }()

	schema, err := nanoquery.LoadSchema(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schema, nil
}

// openBackend opens the data file or the SQLite table named by the flags
func (cli *CLI) openBackend(ctx context.Context) (*backend, error) {
	schema, err := cli.loadSchema()
	if err != nil {
		return nil, err
	}

	dataPath := cli.viperInst.GetString("data")
	dbPath := cli.viperInst.GetString("sqlite")
	switch {
	case dataPath != "" && dbPath != "":
		return nil, fmt.Errorf("--data and --sqlite are mutually exclusive")
	case dataPath != "":
		s := store.NewJSONFileStore(dataPath, store.WithSchema(schema))
		return &backend{schema: schema, store: s, json: s, close: func() error { return nil }}, nil
	case dbPath != "":
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s, err := store.NewSQLStore(db, cli.viperInst.GetString("table"), schema)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := s.CreateTable(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{schema: schema, store: s, sql: s, close: db.Close}, nil
	}
	return nil, fmt.Errorf("a data source is required (--data or --sqlite)")
}
