package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/kpideck/dashboard"
	"github.com/spektr-org/kpideck/helpers"
	"github.com/spektr-org/kpideck/internal/errors"
	"github.com/spektr-org/kpideck/render"
	"github.com/spektr-org/kpideck/schema"
	"github.com/spektr-org/kpideck/server"
)

var (
	resolveFormat string
	resolveOut    string
	configFormat  string
	clientsFormat string
	inspectFormat string
	sheet         string
	reportOut     string
	addr          string
)

// ============================================================================
// COMMANDS
// ============================================================================

var resolveCmd = &cobra.Command{
	Use:   "resolve [clientId]",
	Short: "Load a client and print its KPI bundle",
	Long: `Resolves the client's config, fetches every extract it names, and
prints the computed KPIs and chart series.

Formats:
  json      Compact bundle JSON
  pretty    Indented bundle JSON (default)
  table     KPI and series tables for the terminal
  csv       KPI and series tables as CSV (ready for Sheets/Excel)`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List the clients in the registry",
	RunE:  runClients,
}

var configCmd = &cobra.Command{
	Use:   "config [clientId]",
	Short: "Print a client's validated config without loading data",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfig,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Profile a local extract and suggest a column mapping",
	Long: `Parses a local .csv or .xlsx extract, profiles each column, and
suggests the columnMapping overrides a client config would need.

Example:
  kpideck inspect exports/charges_2026q1.xlsx --sheet Charges`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var reportCmd = &cobra.Command{
	Use:   "report [clientId]",
	Short: "Render a client's dashboard as a PDF report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve bundles, configs and reports over HTTP",
	RunE:  runServe,
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Switch between clients interactively (one clientId per line)",
	Long: `Reads client ids from stdin, one per line. Each line starts a load
and supersedes any load still in flight; only the latest client's
dashboard is printed.`,
	RunE: runBrowse,
}

// commandContext is canceled on SIGINT / SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ── resolve ───────────────────────────────────────────────────────────────────

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	bundle, err := newService().Load(ctx, args[0])
	if err != nil {
		return err
	}
	for _, w := range bundle.Warnings {
		logger.Warn("partial data", zap.String("warning", w))
	}

	w, closeOut, err := openOutput(cmd, resolveOut)
	if err != nil {
		return err
	}
	defer closeOut()

	symbol := symbolFor(bundle, cfg.Currency)
	switch resolveFormat {
	case "table":
		return writeBundleTable(w, bundle, symbol)
	case "csv":
		return writeBundleCSV(w, bundle, symbol)
	case "json", "pretty":
		return writeJSON(w, bundle, resolveFormat)
	default:
		return fmt.Errorf("unknown format %q", resolveFormat)
	}
}

// ── clients / config ──────────────────────────────────────────────────────────

func runClients(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	clients, err := newService().Clients(ctx)
	if err != nil {
		return err
	}
	if clientsFormat == "table" {
		return writeClientsTable(cmd.OutOrStdout(), clients)
	}
	return writeJSON(cmd.OutOrStdout(), clients, clientsFormat)
}

func runConfig(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	clientCfg, err := newService().Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	if configFormat == "yaml" {
		return writeYAML(cmd.OutOrStdout(), clientCfg)
	}
	return writeJSON(cmd.OutOrStdout(), clientCfg, configFormat)
}

// ── inspect ───────────────────────────────────────────────────────────────────

type inspectOutput struct {
	File             string                 `json:"file"`
	Rows             int                    `json:"rows"`
	Columns          []schema.ColumnProfile `json:"columns"`
	SuggestedMapping schema.ColumnMapping   `json:"suggestedMapping"`
	MissingColumns   map[string][]string    `json:"missingColumns,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ds, err := helpers.ParseExtract(filepath.Base(path), path, data,
		helpers.WithDelimiter(cfg.Delimiter),
		helpers.WithSheet(sheet),
		helpers.WithLogger(logger))
	if err != nil {
		return err
	}

	profiles := schema.ProfileColumns(ds.Columns, ds.Rows)
	mapping := schema.SuggestMapping(profiles)
	out := inspectOutput{
		File:             path,
		Rows:             ds.Len(),
		Columns:          profiles,
		SuggestedMapping: mapping,
	}

	// Which logical sources this extract could serve under the suggestion.
	merged := mapping.WithDefaults()
	for _, src := range []string{schema.SourceCharges, schema.SourcePayments, schema.SourceAdjustments, schema.SourceDenials, schema.SourceOpenAR} {
		if absent := merged.MissingColumns(src, ds.Columns); len(absent) > 0 {
			if out.MissingColumns == nil {
				out.MissingColumns = make(map[string][]string)
			}
			out.MissingColumns[src] = absent
		}
	}

	logger.Debug("extract profiled", zap.String("file", path), zap.Int("rows", ds.Len()), zap.Int("columns", len(ds.Columns)))
	return writeJSON(cmd.OutOrStdout(), out, inspectFormat)
}

// ── report ────────────────────────────────────────────────────────────────────

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	bundle, err := newService().Load(ctx, args[0])
	if err != nil {
		return err
	}

	path := reportOut
	if path == "" {
		path = bundle.Config.ClientID + ".pdf"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := render.WritePDF(f, bundle, cfg.Currency); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("report written", zap.String("client", bundle.Config.ClientID), zap.String("file", path))
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}

// ── serve ─────────────────────────────────────────────────────────────────────

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	listen := cfg.Addr
	if addr != "" {
		listen = addr
	}
	srv := &http.Server{
		Addr: listen,
		Handler: server.New(newService(),
			server.WithLogger(logger),
			server.WithCurrencySymbol(cfg.Currency)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", listen), zap.String("source", cfg.Source))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ── browse ────────────────────────────────────────────────────────────────────

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	nav := dashboard.NewNavigator(newService(), logger)
	defer nav.Close()

	return browse(ctx, nav, cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Currency)
}

// browse starts one navigation per input line. Superseded loads are dropped
// silently; every other outcome is printed as it completes.
func browse(ctx context.Context, nav *dashboard.Navigator, in io.Reader, out io.Writer, symbol string) error {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	emit := func(f func(io.Writer)) {
		mu.Lock()
		defer mu.Unlock()
		f(out)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		clientID := strings.TrimSpace(scanner.Text())
		if clientID == "" {
			continue
		}
		if clientID == "quit" || clientID == "exit" {
			break
		}

		// Begin runs here, in line order, so a later line always supersedes
		// an earlier one regardless of goroutine scheduling.
		pending := nav.Begin(ctx, clientID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle, err := pending.Wait()
			switch {
			case stderrors.Is(err, errors.ErrLoadSuperseded):
				return
			case err != nil:
				emit(func(w io.Writer) { fmt.Fprintf(w, "Error: %s\n", describe(err)) })
			default:
				emit(func(w io.Writer) { writeBundleTable(w, bundle, symbolFor(bundle, symbol)) })
			}
		}()
	}
	wg.Wait()
	return scanner.Err()
}
