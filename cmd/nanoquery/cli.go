package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/nanoquery/internal/logging"
)

// CLI is the nanoquery command line, configured through flags, NANOQUERY_*
// environment variables and an optional nanoquery.yaml file
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
}

// NewCLI creates the command tree
func NewCLI() *CLI {
	cli := &CLI{viperInst: viper.New()}
	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the command line
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	if configFile := os.Getenv("NANOQUERY_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("nanoquery")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.nanoquery")
	}

	cli.viperInst.SetEnvPrefix("NANOQUERY")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cli.viperInst.AutomaticEnv()

	cli.viperInst.SetDefault("format", "json")
	cli.viperInst.SetDefault("table", "records")
	cli.viperInst.SetDefault("default-limit", 20)
	cli.viperInst.SetDefault("log-level", logging.DefaultConfig().Level)

	// A missing config file is fine
	_ = cli.viperInst.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanoquery",
		Short: "Query and paginate records with filter query text",
		Long: `nanoquery runs filter queries with cursor pagination against a JSON data
file or a SQLite table, using a YAML field schema.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOQUERY_*)
3. Configuration file (NANOQUERY_CONFIG or ./nanoquery.yaml)

Examples:
  nanoquery --schema posts.yaml --data posts.json find -q 'status:draft "hello"' --first 5
  nanoquery --schema posts.yaml --sqlite posts.db --table posts find --order-by views --desc
  nanoquery --schema posts.yaml parse 'tags:go,db -status:archived'
  nanoquery cursor decode eyJpZCI6eyJ0Ijoic3RyaW5nIiwidiI6InAwMSJ9fQ`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = cli.viperInst.BindPFlags(cmd.Flags())
			return logging.Setup(logging.Config{
				Level:  cli.viperInst.GetString("log-level"),
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	flags := cli.rootCmd.PersistentFlags()
	flags.String("schema", "", "YAML schema file")
	flags.String("data", "", "JSON data file")
	flags.String("sqlite", "", "SQLite database file")
	flags.String("table", "records", "SQLite table name")
	flags.StringP("format", "f", "json", "Output format (json|yaml)")
	flags.String("log-level", "warn", "Log level (trace|debug|info|warn|error)")
	flags.Bool("strict", false, "Fail on malformed query text instead of ignoring it")
	flags.Int("default-limit", 20, "Page size when neither --first nor --last is given")
	flags.Int("max-limit", 0, "Maximum page size (0 for no maximum)")

	for _, name := range []string{"schema", "data", "sqlite", "table", "format", "log-level", "strict", "default-limit", "max-limit"} {
		_ = cli.viperInst.BindPFlag(name, flags.Lookup(name))
	}
}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newFindCommand(),
		cli.newParseCommand(),
		cli.newCursorCommand(),
		cli.newImportCommand(),
		cli.newValidateCommand(),
	)
}
