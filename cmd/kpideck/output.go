package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/kpideck/engine"
	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// OUTPUT — JSON / YAML / terminal tables / Sheets-ready CSV
// ============================================================================

// openOutput returns the command's stdout, or a created file when path is set.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return enc.Close()
}

// symbolFor prefers the client's currency over the process default.
func symbolFor(b *engine.Bundle, def string) string {
	if b != nil && b.Config != nil && b.Config.Currency != "" {
		return b.Config.Currency
	}
	return def
}

// bundleTables lists the KPI table followed by one table per chart section.
func bundleTables(b *engine.Bundle, symbol string) []*engine.TableData {
	title := ""
	var sections []schema.SectionID
	if b.Config != nil {
		title = b.Config.Name
		sections = b.Config.Layout.Sections
	}

	tables := []*engine.TableData{engine.BuildKPITable(title, b.KPIs)}
	for _, id := range sections {
		sec, ok := engine.LookupSection(id)
		if !ok {
			continue
		}
		tables = append(tables, engine.BuildSeriesTable(sec, b.ChartData[string(id)], symbol))
	}
	return tables
}

// ── Terminal tables ───────────────────────────────────────────────────────────

func writeBundleTable(w io.Writer, b *engine.Bundle, symbol string) error {
	tables := bundleTables(b, symbol)
	fmt.Fprintf(w, "%s  (%s)\n", tables[0].Title, b.Period)
	for _, m := range b.MissingSources {
		fmt.Fprintf(w, "  missing source: %s\n", m)
	}

	for i, t := range tables {
		if i > 0 {
			fmt.Fprintf(w, "\n%s\n", t.Title)
		}
		if len(t.Rows) == 0 {
			fmt.Fprintln(w, "  No data")
			continue
		}
		if err := writeTabular(w, t); err != nil {
			return err
		}
	}
	return nil
}

func writeTabular(w io.Writer, t *engine.TableData) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Label
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func writeClientsTable(w io.Writer, clients []schema.ClientSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSHORT NAME\tNAME")
	for _, c := range clients {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.ShortName, c.Name)
	}
	return tw.Flush()
}

// ── CSV ───────────────────────────────────────────────────────────────────────

// writeBundleCSV writes each table as a CSV block separated by a blank record.
func writeBundleCSV(w io.Writer, b *engine.Bundle, symbol string) error {
	cw := csv.NewWriter(w)
	for i, t := range bundleTables(b, symbol) {
		if i > 0 {
			cw.Write([]string{})
		}
		headers := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			headers[j] = c.Label
		}
		cw.Write(headers)
		for _, row := range t.Rows {
			cw.Write(row)
		}
	}
	cw.Flush()
	return cw.Error()
}
