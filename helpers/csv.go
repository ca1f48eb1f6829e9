package helpers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/engine"
)

// ============================================================================
// CSV HELPER — Parses extract bytes into an engine.Dataset
// ============================================================================
// The loader fetches the bytes from wherever they live (directory, HTTP).
// This helper turns them into rows keyed by the header line. Cells are kept
// as trimmed strings; formulas parse what they need.
// ============================================================================

// Option configures parsing.
type Option func(*parseConfig)

type parseConfig struct {
	delimiter rune
	sheet     string
	logger    *zap.Logger
}

func defaultParseConfig() parseConfig {
	return parseConfig{delimiter: ',', logger: zap.NewNop()}
}

// WithDelimiter sets the field delimiter. Default: ','.
func WithDelimiter(d rune) Option {
	return func(c *parseConfig) {
		if d != 0 {
			c.delimiter = d
		}
	}
}

// WithSheet selects the workbook sheet ParseXLSX reads. Default: the first sheet.
func WithSheet(name string) Option {
	return func(c *parseConfig) {
		c.sheet = name
	}
}

// WithLogger sets the logger used for skipped-row diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *parseConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ParseRows parses delimited text into a present dataset named name.
// Empty content yields an empty dataset. The first line is the header;
// blank lines are skipped and short rows are padded with "".
func ParseRows(name string, data []byte, opts ...Option) (*engine.Dataset, error) {
	cfg := defaultParseConfig()
	for _, o := range opts {
		o(&cfg)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return engine.NewDataset(name, nil, []engine.Row{}), nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = cfg.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}
	columns := normalizeHeader(header)

	rows := []engine.Row{}
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				cfg.logger.Debug("skipping malformed row",
					zap.String("source", name), zap.Int("line", pe.Line), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if row, ok := buildRow(columns, record); ok {
			rows = append(rows, row)
		}
	}

	if skipped > 0 {
		cfg.logger.Warn("malformed rows skipped", zap.String("source", name), zap.Int("count", skipped))
	}
	return engine.NewDataset(name, columns, rows), nil
}

// WriteRows writes columns as a header line followed by rows in column order.
func WriteRows(w io.Writer, columns []string, rows []engine.Row, opts ...Option) error {
	cfg := defaultParseConfig()
	for _, o := range opts {
		o(&cfg)
	}

	writer := csv.NewWriter(w)
	writer.Comma = cfg.delimiter
	if err := writer.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ParseExtract dispatches on the file extension: .xlsx goes to ParseXLSX,
// everything else is treated as delimited text.
func ParseExtract(name, file string, data []byte, opts ...Option) (*engine.Dataset, error) {
	if strings.EqualFold(filepath.Ext(file), ".xlsx") {
		return ParseXLSX(name, data, opts...)
	}
	return ParseRows(name, data, opts...)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeHeader trims header names and makes them unique: a repeated name
// gets a numeric suffix (a, a_2, a_3) and an empty one becomes column_<n>.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			base := name
			for n := 2; seen[name]; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
			}
		}
		seen[name] = true
		columns[i] = name
	}
	return columns
}

// buildRow maps a record onto columns. Extra trailing fields are dropped.
// Reports false only for records with no content at all: no fields, or a
// single blank field (a whitespace-only line). "a,," style records of empty
// cells are real rows.
func buildRow(columns, record []string) (engine.Row, bool) {
	if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
		return nil, false
	}
	row := make(engine.Row, len(columns))
	for i, col := range columns {
		val := ""
		if i < len(record) {
			val = strings.TrimSpace(record[i])
		}
		row[col] = val
	}
	return row, true
}
