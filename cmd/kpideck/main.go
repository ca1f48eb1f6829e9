package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/dashboard"
	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/internal/config"
	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/internal/logging"
	"github.com/spektr-org/kpideck/loader"
	"github.com/spektr-org/kpideck/source"
)

// ============================================================================
// KPIDECK CLI — config-driven KPI dashboards from flat-file extracts
// ============================================================================

const version = "0.3.0"

var (
	// Global flags
	verbose    bool
	sourceRoot string
	currency   string
	delimiter  string

	// Shared state, built in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "kpideck",
	Short:   "KPI dashboards for revenue-cycle extracts",
	Version: version,
	Long: `kpideck resolves a client's dashboard config, loads the flat-file
extracts it names, computes the configured KPIs and builds chart series.

Configs live at <source>/configs/<clientId>.json (or .yaml), extracts at
<source>/data/<clientId>/<file>. <source> is a directory or an http(s) URL.

Environment:
  KPIDECK_SOURCE          default --source
  KPIDECK_DELIMITER       extract delimiter (default ",", "tab" allowed)
  KPIDECK_CURRENCY        default currency symbol (default "$")
  KPIDECK_ADDR            listen address for serve (default ":8080")
  KPIDECK_FETCH_TIMEOUT   per-extract fetch timeout (default 15s)
  KPIDECK_LOG_LEVEL       debug, info, warn, error (default info)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := applyFlagOverrides(cmd); err != nil {
			return err
		}

		logger, err = logging.New(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&sourceRoot, "source", "s", "", "Config/extract root: directory or http(s) URL (default $KPIDECK_SOURCE or .)")
	rootCmd.PersistentFlags().StringVar(&currency, "currency", "", "Default currency symbol (default $KPIDECK_CURRENCY or $)")
	rootCmd.PersistentFlags().StringVar(&delimiter, "delimiter", "", `Extract delimiter, e.g. ";" or "tab" (default $KPIDECK_DELIMITER or ,)`)

	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "pretty", "Output format: json, pretty, table, csv")
	resolveCmd.Flags().StringVarP(&resolveOut, "out", "o", "", "Write output to file instead of stdout")

	configCmd.Flags().StringVarP(&configFormat, "format", "f", "pretty", "Output format: json, pretty, yaml")
	clientsCmd.Flags().StringVarP(&clientsFormat, "format", "f", "table", "Output format: json, pretty, table")

	inspectCmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read from an .xlsx workbook (default: first)")
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "pretty", "Output format: json, pretty")

	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "PDF file to write (default <clientId>.pdf)")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $KPIDECK_ADDR or :8080)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(browseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", describe(err))
	}
}

// applyFlagOverrides lets explicit flags win over the environment.
func applyFlagOverrides(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = sourceRoot
	}
	if flags.Changed("currency") {
		cfg.Currency = currency
	}
	if flags.Changed("delimiter") {
		d, err := config.ParseDelimiter(delimiter)
		if err != nil {
			return err
		}
		cfg.Delimiter = d
	}
	return nil
}

// newService builds the dashboard service from the shared config.
func newService() *dashboard.Service {
	return dashboard.NewService(source.New(cfg.Source),
		dashboard.WithLogger(logger),
		dashboard.WithEngineOptions(engine.WithCurrencySymbol(cfg.Currency)),
		dashboard.WithLoaderOptions(
			loader.WithDelimiter(cfg.Delimiter),
			loader.WithFetchTimeout(cfg.FetchTimeout),
		))
}

// describe prefixes pipeline errors with their code.
func describe(err error) string {
	if code := errors.GetCode(err); code != "UNKNOWN" {
		return fmt.Sprintf("[%s] %v", code, err)
	}
	return err.Error()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
