package engine

import (
	"sort"

	"github.com/spektr-org/kpideck/schema"
)

// ============================================================================
// KPIDECK ENGINE TYPES
// ============================================================================
// Rows are untyped string maps straight from the extract. Formulas and chart
// sections parse the cells they need; the parser never coerces.
// ============================================================================

// ============================================================================
// ROW / DATASET
// ============================================================================

// Row maps column name → raw cell value.
type Row = map[string]string

// SourceStatus tells an absent data source apart from one that loaded empty.
type SourceStatus int

const (
	StatusPresent SourceStatus = iota
	StatusMissing
)

func (s SourceStatus) String() string {
	if s == StatusMissing {
		return "missing"
	}
	return "present"
}

// MarshalText renders the status as "present" / "missing" in JSON.
func (s SourceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Dataset is the parsed rows of one logical data source.
type Dataset struct {
	Name    string       `json:"name"`
	Columns []string     `json:"columns"`
	Rows    []Row        `json:"rows"`
	Status  SourceStatus `json:"status"`
}

// NewDataset creates a present dataset.
func NewDataset(name string, columns []string, rows []Row) *Dataset {
	return &Dataset{Name: name, Columns: columns, Rows: rows, Status: StatusPresent}
}

// MissingDataset creates an empty dataset for a source that could not be found.
func MissingDataset(name string) *Dataset {
	return &Dataset{Name: name, Status: StatusMissing}
}

// Len returns the row count. Safe on nil.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Missing reports whether the source was absent.
func (d *Dataset) Missing() bool {
	return d == nil || d.Status == StatusMissing
}

// Datasets is the collection one client load works on.
type Datasets struct {
	Sources map[string]*Dataset
	Columns schema.ColumnMapping
}

// NewDatasets collects sets under their names.
func NewDatasets(cols schema.ColumnMapping, sets ...*Dataset) Datasets {
	ds := Datasets{Sources: make(map[string]*Dataset, len(sets)), Columns: cols}
	for _, s := range sets {
		ds.Sources[s.Name] = s
	}
	return ds
}

// Get returns the named dataset. Never nil: unknown names yield a missing dataset.
func (d Datasets) Get(name string) *Dataset {
	if s, ok := d.Sources[name]; ok && s != nil {
		return s
	}
	return MissingDataset(name)
}

// Missing reports whether the named source is absent.
func (d Datasets) Missing(name string) bool {
	return d.Get(name).Missing()
}

// MissingSources lists loaded-but-absent source names, sorted.
func (d Datasets) MissingSources() []string {
	var names []string
	for name, s := range d.Sources {
		if s.Missing() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ============================================================================
// KPI RESULT
// ============================================================================

// Format is a KPI display format tag.
type Format string

const (
	NumberFormat   Format = "number"
	PercentFormat  Format = "percent"
	CurrencyFormat Format = "currency"
)

// KpiResult is the computed, display-ready value of one KPI.
type KpiResult struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	RawValue   float64 `json:"rawValue"`
	Change     string  `json:"change"`
	ChangeRaw  float64 `json:"changeRaw"`
	Format     Format  `json:"format"`
	DownBetter bool    `json:"downBetter"`
	Degraded   bool    `json:"degraded,omitempty"` // a source the formula reads was missing
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartPoint is one aggregated group of a series.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// ============================================================================
// BUNDLE — Resolved client handed to the presentation layer
// ============================================================================

// Bundle is the output of one client load.
type Bundle struct {
	LoadID         string                  `json:"loadId"`
	Config         *schema.ClientConfig    `json:"config"`
	KPIs           []KpiResult             `json:"kpis"`
	ChartData      map[string][]ChartPoint `json:"chartData"`
	Period         string                  `json:"period"`
	MissingSources []string                `json:"missingSources,omitempty"`
	Warnings       []string                `json:"warnings,omitempty"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData is a flat rendering of KPI results for text/CSV output.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Align string `json:"align"` // "left", "right"
}
