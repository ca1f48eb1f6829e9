package schema

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// PROFILING — Heuristic column typing for extracts
// ============================================================================
// Inspects parsed rows and reports per-column type, fill rate and samples,
// then suggests a ColumnMapping for extracts whose headers differ from the
// defaults. Used by `kpideck inspect` when onboarding a new client.
//
// Classification per column:
//   1. Non-empty values → detect type (number, date, bool, text)
//   2. 80%+ of values must match for a non-text type
//   3. Name + type → mapping suggestion
// ============================================================================

// ColumnType is the detected type of an extract column.
type ColumnType string

const (
	TypeText   ColumnType = "text"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
	TypeBool   ColumnType = "bool"
)

// ColumnProfile summarizes one column.
type ColumnProfile struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	NonEmpty int        `json:"nonEmpty"`
	Empty    int        `json:"empty"`
	Unique   int        `json:"unique"`
	Samples  []string   `json:"samples"`
}

// ProfileOptions controls profiling.
type ProfileOptions struct {
	SampleSize int // Max rows to inspect (0 = all). Default: 1000
	MaxSamples int // Sample values kept per column. Default: 5
}

// DefaultProfileOptions returns sensible defaults.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{
		SampleSize: 1000,
		MaxSamples: 5,
	}
}

// ProfileColumns profiles every header column over rows.
func ProfileColumns(header []string, rows []map[string]string, opts ...ProfileOptions) []ColumnProfile {
	opt := DefaultProfileOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	limit := len(rows)
	if opt.SampleSize > 0 && opt.SampleSize < limit {
		limit = opt.SampleSize
	}

	profiles := make([]ColumnProfile, 0, len(header))
	for _, col := range header {
		profiles = append(profiles, profileColumn(col, rows[:limit], opt.MaxSamples))
	}
	return profiles
}

func profileColumn(name string, rows []map[string]string, maxSamples int) ColumnProfile {
	p := ColumnProfile{Name: name, Type: TypeText}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		val := strings.TrimSpace(row[name])
		if isNullish(val) {
			p.Empty++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	p.NonEmpty = len(values)
	p.Unique = len(uniqueSet)
	p.Samples = collectSamples(uniqueSet, maxSamples)
	p.Type = detectType(values)
	return p
}

func isNullish(v string) bool {
	switch v {
	case "", "null", "NULL", "N/A", "n/a":
		return true
	}
	return false
}

// detectType requires 80%+ of non-empty values to match for number/date/bool.
func detectType(values []string) ColumnType {
	if len(values) == 0 {
		return TypeText
	}

	numCount, dateCount, boolCount := 0, 0, 0
	for _, v := range values {
		if isNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)
	if threshold == 0 {
		threshold = 1
	}

	switch {
	case boolCount >= threshold:
		return TypeBool
	case dateCount >= threshold:
		return TypeDate
	case numCount >= threshold:
		return TypeNumber
	default:
		return TypeText
	}
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// DateLayouts are tried in order when a mapping has no explicit DateLayout.
var DateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01",
	"Jan-2006",
	"01/02/06",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no", "y", "n":
		return true
	}
	return false
}

func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if maxSamples > 0 && len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}

// ============================================================================
// MAPPING SUGGESTION
// ============================================================================

// mappingHints lists name fragments per mapping field, strongest first.
var mappingHints = []struct {
	field     string
	want      ColumnType
	fragments []string
}{
	{"claimId", "", []string{"claim_id", "claim", "encounter"}},
	{"chargeAmount", TypeNumber, []string{"charge_amount", "charge", "billed"}},
	{"paymentAmount", TypeNumber, []string{"payment_amount", "payment", "paid", "receipt"}},
	{"adjustmentAmount", TypeNumber, []string{"adjustment_amount", "adjustment", "writeoff", "write_off"}},
	{"openArAmount", TypeNumber, []string{"balance", "open_ar", "outstanding"}},
	{"daysOutstanding", TypeNumber, []string{"days_outstanding", "age_days", "days"}},
	{"postDate", TypeDate, []string{"post_date", "posted", "date"}},
	{"agingBucket", TypeText, []string{"aging_bucket", "bucket", "aging"}},
	{"denialReason", TypeText, []string{"denial_reason", "reason", "carc"}},
	{"payer", TypeText, []string{"payer", "insurance", "plan"}},
}

// SuggestMapping proposes mapping overrides for columns whose names differ from
// the defaults. Only fields that need overriding are set.
func SuggestMapping(profiles []ColumnProfile) ColumnMapping {
	suggested := make(map[string]string)
	used := make(map[string]bool)

	for _, hint := range mappingHints {
		for _, frag := range hint.fragments {
			if _, done := suggested[hint.field]; done {
				break
			}
			for _, p := range profiles {
				key := toSnakeCase(p.Name)
				if used[p.Name] || !strings.Contains(key, frag) {
					continue
				}
				if hint.want != "" && p.Type != hint.want {
					continue
				}
				suggested[hint.field] = p.Name
				used[p.Name] = true
				break
			}
		}
	}

	d := DefaultColumnMapping()
	override := func(field, def string) string {
		if v, ok := suggested[field]; ok && v != def {
			return v
		}
		return ""
	}
	return ColumnMapping{
		ClaimID:          override("claimId", d.ClaimID),
		ChargeAmount:     override("chargeAmount", d.ChargeAmount),
		PaymentAmount:    override("paymentAmount", d.PaymentAmount),
		AdjustmentAmount: override("adjustmentAmount", d.AdjustmentAmount),
		OpenARAmount:     override("openArAmount", d.OpenARAmount),
		PostDate:         override("postDate", d.PostDate),
		AgingBucket:      override("agingBucket", d.AgingBucket),
		DaysOutstanding:  override("daysOutstanding", d.DaysOutstanding),
		DenialReason:     override("denialReason", d.DenialReason),
		Payer:            override("payer", d.Payer),
	}
}

// toSnakeCase converts "Charge Amount" → "charge_amount".
func toSnakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
