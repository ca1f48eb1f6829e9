package schema

// ============================================================================
// SCHEMA — Declarative per-client dashboard config
// ============================================================================
// One ClientConfig per client: which extracts to load, which KPI formulas to
// evaluate, which chart sections to render. Loaded once per navigation and
// treated as immutable afterwards.
// ============================================================================

// Logical data source names referenced by formulas and chart sections.
const (
	SourceCharges     = "chargeByPostDate"
	SourcePayments    = "paymentsByPostDate"
	SourceAdjustments = "adjustments"
	SourceDenials     = "denials"
	SourceOpenAR      = "openAR"
)

// SectionID names a chart/visual block in the layout.
type SectionID string

const (
	SectionKPICards        SectionID = "kpiCards"
	SectionChargesByMonth  SectionID = "chargesByMonth"
	SectionPaymentsByMonth SectionID = "paymentsByMonth"
	SectionDenialsByMonth  SectionID = "denialsByMonth"
	SectionARAging         SectionID = "arAging"
	SectionDenialsByReason SectionID = "denialsByReason"
	SectionPayerMix        SectionID = "payerMix"
)

// Sections is the fixed enumeration of valid layout sections.
var Sections = []SectionID{
	SectionKPICards,
	SectionChargesByMonth,
	SectionPaymentsByMonth,
	SectionDenialsByMonth,
	SectionARAging,
	SectionDenialsByReason,
	SectionPayerMix,
}

// IsSection reports whether s is a member of Sections.
func IsSection(s SectionID) bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// ClientConfig is the declarative document for one client.
type ClientConfig struct {
	ClientID  string `json:"clientId" yaml:"clientId"`
	Name      string `json:"name" yaml:"name"`
	ShortName string `json:"shortName" yaml:"shortName"`

	// logical name → filename under data/<clientId>/
	DataSources map[string]string `json:"dataSources" yaml:"dataSources"`

	// Optional prior-period extracts, same logical names. Enables KPI deltas.
	ComparisonSources map[string]string `json:"comparisonSources,omitempty" yaml:"comparisonSources,omitempty"`

	KPIs   []KpiDefinition `json:"kpis" yaml:"kpis"`
	Layout Layout          `json:"layout" yaml:"layout"`

	ColumnMapping *ColumnMapping `json:"columnMapping,omitempty" yaml:"columnMapping,omitempty"`

	// Currency symbol for currency-formatted KPIs. Empty → application default.
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// KpiDefinition binds a display label to a registered formula.
type KpiDefinition struct {
	Key        string `json:"key" yaml:"key"`
	Label      string `json:"label" yaml:"label"`
	FormulaKey string `json:"formulaKey" yaml:"formulaKey"`
}

// Layout lists the sections to render, in display order.
type Layout struct {
	Sections []SectionID `json:"sections" yaml:"sections"`
}

// Columns returns the effective column mapping (overrides merged over defaults).
func (c *ClientConfig) Columns() ColumnMapping {
	if c.ColumnMapping == nil {
		return DefaultColumnMapping()
	}
	return c.ColumnMapping.WithDefaults()
}

// HasSection reports whether the layout declares s.
func (c *ClientConfig) HasSection(s SectionID) bool {
	for _, sec := range c.Layout.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// ClientSummary is one entry of the client registry.
type ClientSummary struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	ShortName string `json:"shortName" yaml:"shortName"`
}
