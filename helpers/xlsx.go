package helpers

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spektr-org/kpideck/engine"
)

// ParseXLSX reads one sheet of a workbook (WithSheet, else the first) with the
// same rules as ParseRows: first row is the header, blank rows skipped, short
// rows padded.
func ParseXLSX(name string, data []byte, opts ...Option) (*engine.Dataset, error) {
	cfg := defaultParseConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return engine.NewDataset(name, nil, []engine.Row{}), nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open workbook: %w", name, err)
	}
	defer f.Close()

	sheet := cfg.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return engine.NewDataset(name, nil, []engine.Row{}), nil
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read sheet %q: %w", name, sheet, err)
	}
	cfg.logger.Debug("workbook sheet read", zap.String("source", name),
		zap.String("sheet", sheet), zap.Int("records", len(records)))
	if len(records) == 0 {
		return engine.NewDataset(name, nil, []engine.Row{}), nil
	}

	columns := normalizeHeader(records[0])
	rows := []engine.Row{}
	for _, record := range records[1:] {
		if row, ok := buildRow(columns, record); ok {
			rows = append(rows, row)
		}
	}
	return engine.NewDataset(name, columns, rows), nil
}
