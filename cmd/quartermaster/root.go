package main

import (
	stderrors "errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quartermaster/internal/catalog"
	"quartermaster/internal/config"
	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
)

// app carries the resolved configuration and flag state shared by every
// subcommand.
type app struct {
	configPath  string
	catalogPath string
	jsonOutput  bool
	noColor     bool
	verbose     bool

	config  config.Config
	logger  logging.Logger
	clients llm.Factory
}

// NewRootCommand builds the quartermaster command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "quartermaster",
		Short: "Procurement planning over a parts catalog",
		Long: "Quartermaster ranks catalog candidates for a procurement request,\n" +
			"investigates them with deterministic market tools, and drives\n" +
			"negotiation and cost-optimization reviews.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default quartermaster.yaml in $HOME or .)")
	rootCmd.PersistentFlags().StringVar(&a.catalogPath, "catalog", "", "catalog file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit raw JSON instead of formatted output")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug detail to ~/.quartermaster/debug.log")

	rootCmd.AddCommand(
		newPlanCommand(a),
		newSearchCommand(a),
		newCatalogCommand(a),
		newNegotiateCommand(a),
		newOptimizeCommand(a),
		newWizardCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// setup resolves the config file via viper, loads the typed configuration,
// and applies flag overrides. Runs once before any subcommand.
func (a *app) setup() error {
	if a.configPath != "" {
		viper.SetConfigFile(a.configPath)
	} else {
		viper.SetConfigName("quartermaster")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return err
	}
	if a.catalogPath != "" {
		cfg.CatalogPath = a.catalogPath
	}
	a.config = cfg

	if a.noColor || !isTTY() {
		color.NoColor = true
	}
	if a.verbose {
		a.logger = logging.NewComponentLogger("cli")
	} else {
		a.logger = logging.Nop()
	}
	a.clients = llm.NewFactory(a.config.LLM.Settings(a.logger, nil))
	return nil
}

func (a *app) loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(a.config.CatalogPath)
}
