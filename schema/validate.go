package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spektr-org/kpideck/internal/errors"
)

// ============================================================================
// VALIDATION — Structural checks at the load boundary
// ============================================================================
// Runs once per resolve. Downstream code never re-checks optional fields.
// Every problem is collected; the returned error carries the first field path
// and lists all of them.
// ============================================================================

// Problem is one validation failure.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks cfg against the structural rules. clientID is the id the
// document was requested under; knownFormula reports registered formula keys
// (nil skips the formula check).
func Validate(cfg *ClientConfig, clientID string, knownFormula func(string) bool) error {
	problems := Check(cfg, clientID, knownFormula)
	if len(problems) == 0 {
		return nil
	}

	msgs := make([]string, len(problems))
	for i, p := range problems {
		msgs[i] = p.Field + ": " + p.Message
	}
	return errors.ConfigInvalid(problems[0].Field, strings.Join(msgs, "; "))
}

// Check returns every structural problem in cfg, in document order.
func Check(cfg *ClientConfig, clientID string, knownFormula func(string) bool) []Problem {
	var problems []Problem
	add := func(field, format string, args ...interface{}) {
		problems = append(problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg == nil {
		add("", "document is empty")
		return problems
	}

	// ── Required top-level fields ─────────────────────────────────────────
	switch {
	case strings.TrimSpace(cfg.ClientID) == "":
		add("clientId", "required")
	case clientID != "" && cfg.ClientID != clientID:
		add("clientId", "%q does not match requested client %q", cfg.ClientID, clientID)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		add("name", "required")
	}
	if strings.TrimSpace(cfg.ShortName) == "" {
		add("shortName", "required")
	}

	// ── Data sources ──────────────────────────────────────────────────────
	if cfg.DataSources == nil {
		add("dataSources", "required")
	}
	checkSources := func(field string, sources map[string]string) {
		for _, name := range sortedKeys(sources) {
			if strings.TrimSpace(name) == "" {
				add(field, "empty logical name")
				continue
			}
			if strings.TrimSpace(sources[name]) == "" {
				add(field+"."+name, "filename required")
			}
		}
	}
	checkSources("dataSources", cfg.DataSources)
	checkSources("comparisonSources", cfg.ComparisonSources)

	// ── KPIs ──────────────────────────────────────────────────────────────
	if cfg.KPIs == nil {
		add("kpis", "required")
	}
	seen := make(map[string]int)
	for i, k := range cfg.KPIs {
		path := fmt.Sprintf("kpis[%d]", i)
		if strings.TrimSpace(k.Key) == "" {
			add(path+".key", "required")
		} else if prev, dup := seen[k.Key]; dup {
			add(path+".key", "duplicate key %q (first at kpis[%d])", k.Key, prev)
		} else {
			seen[k.Key] = i
		}
		if strings.TrimSpace(k.Label) == "" {
			add(path+".label", "required")
		}
		switch {
		case strings.TrimSpace(k.FormulaKey) == "":
			add(path+".formulaKey", "required")
		case knownFormula != nil && !knownFormula(k.FormulaKey):
			add(path+".formulaKey", "unknown formula %q", k.FormulaKey)
		}
	}

	// ── Layout ────────────────────────────────────────────────────────────
	if cfg.Layout.Sections == nil {
		add("layout.sections", "required")
	}
	for i, s := range cfg.Layout.Sections {
		if !IsSection(s) {
			add(fmt.Sprintf("layout.sections[%d]", i), "unknown section %q", s)
		}
	}

	return problems
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
