package schema

import "strings"

// ColumnMapping names the extract columns the pipeline reads.
// Every field is optional in a config; empty fields fall back to the defaults.
type ColumnMapping struct {
	ClaimID          string `json:"claimId,omitempty" yaml:"claimId,omitempty"`
	ChargeAmount     string `json:"chargeAmount,omitempty" yaml:"chargeAmount,omitempty"`
	PaymentAmount    string `json:"paymentAmount,omitempty" yaml:"paymentAmount,omitempty"`
	AdjustmentAmount string `json:"adjustmentAmount,omitempty" yaml:"adjustmentAmount,omitempty"`
	OpenARAmount     string `json:"openArAmount,omitempty" yaml:"openArAmount,omitempty"`
	PostDate         string `json:"postDate,omitempty" yaml:"postDate,omitempty"`
	AgingBucket      string `json:"agingBucket,omitempty" yaml:"agingBucket,omitempty"`
	DaysOutstanding  string `json:"daysOutstanding,omitempty" yaml:"daysOutstanding,omitempty"`
	DenialReason     string `json:"denialReason,omitempty" yaml:"denialReason,omitempty"`
	Payer            string `json:"payer,omitempty" yaml:"payer,omitempty"`

	// Go time layout for PostDate cells. Empty → try the common layouts.
	DateLayout string `json:"dateLayout,omitempty" yaml:"dateLayout,omitempty"`
}

// DefaultColumnMapping returns the stock extract column names.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		ClaimID:          "claim_id",
		ChargeAmount:     "charge_amount",
		PaymentAmount:    "payment_amount",
		AdjustmentAmount: "adjustment_amount",
		OpenARAmount:     "balance",
		PostDate:         "post_date",
		AgingBucket:      "aging_bucket",
		DaysOutstanding:  "days_outstanding",
		DenialReason:     "denial_reason",
		Payer:            "payer",
	}
}

// WithDefaults fills empty fields from DefaultColumnMapping.
func (m ColumnMapping) WithDefaults() ColumnMapping {
	d := DefaultColumnMapping()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	return ColumnMapping{
		ClaimID:          pick(m.ClaimID, d.ClaimID),
		ChargeAmount:     pick(m.ChargeAmount, d.ChargeAmount),
		PaymentAmount:    pick(m.PaymentAmount, d.PaymentAmount),
		AdjustmentAmount: pick(m.AdjustmentAmount, d.AdjustmentAmount),
		OpenARAmount:     pick(m.OpenARAmount, d.OpenARAmount),
		PostDate:         pick(m.PostDate, d.PostDate),
		AgingBucket:      pick(m.AgingBucket, d.AgingBucket),
		DaysOutstanding:  pick(m.DaysOutstanding, d.DaysOutstanding),
		DenialReason:     pick(m.DenialReason, d.DenialReason),
		Payer:            pick(m.Payer, d.Payer),
		DateLayout:       strings.TrimSpace(m.DateLayout),
	}
}

// ExpectedColumns lists the columns the pipeline reads from a logical source.
// Used for header checks only; absent columns degrade values, they never fail a load.
func (m ColumnMapping) ExpectedColumns(source string) []string {
	switch source {
	case SourceCharges:
		return []string{m.ChargeAmount, m.PostDate}
	case SourcePayments:
		return []string{m.PaymentAmount, m.PostDate}
	case SourceAdjustments:
		return []string{m.AdjustmentAmount}
	case SourceDenials:
		return []string{m.DenialReason}
	case SourceOpenAR:
		return []string{m.OpenARAmount}
	default:
		return nil
	}
}

// MissingColumns returns the expected columns of source that header lacks.
func (m ColumnMapping) MissingColumns(source string, header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range m.ExpectedColumns(source) {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
