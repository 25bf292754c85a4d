package fallback

import (
	"strconv"
	"strings"
	"time"
)

// Record is a raw reference-dataset row keyed by column name. Missing
// columns read as empty strings.
type Record map[string]string

const (
	invalidIPSentinel = "invalid_ip"
	ipPlaceholder     = "0.0.0.0"
	defaultEventHour  = 12
	unknownTenureDays = -1
	unknownCategory   = "Unknown"
)

// dateLayouts accepted for timestamp-ish dataset columns.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Builder converts raw records into the model's fixed-order feature vector.
// It is total: every input, including a fully empty record, produces a
// vector of the model's full column count with documented sentinel values.
type Builder struct {
	model   *Model
	refDate time.Time
}

// NewBuilder creates a feature builder bound to a model's input contract.
// An unparsable reference date falls back to the current day, keeping
// tenure computation monotonic rather than failing.
func NewBuilder(m *Model) *Builder {
	ref, err := time.Parse("2006-01-02", m.ReferenceDate)
	if err != nil {
		ref = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return &Builder{model: m, refDate: ref}
}

// Build produces the feature vector for a record, in FeatureColumns order.
func (b *Builder) Build(rec Record) []float64 {
	features := make([]float64, len(b.model.FeatureColumns))
	for i, col := range b.model.FeatureColumns {
		features[i] = b.featureValue(rec, col)
	}
	return features
}

func (b *Builder) featureValue(rec Record, col string) float64 {
	switch col {
	case "event_hour":
		return float64(eventHour(rec["timestamp"]))
	case "trained":
		if _, ok := parseDate(rec["last_security_training"]); ok {
			return 1
		}
		return 0
	case "tenure_days":
		return float64(b.tenureDays(rec["employee_join_date"]))
	case "ip_valid":
		if rec["ip_address"] == invalidIPSentinel {
			return 0
		}
		return 1
	case "time_in_position_months":
		return float64(positionMonths(rec["time_in_position"]))
	case "past_violations":
		n, err := strconv.Atoi(strings.TrimSpace(rec["past_violations"]))
		if err != nil {
			return 0
		}
		return float64(n)
	default:
		return float64(b.encodeCategory(col, rec[col]))
	}
}

// encodeCategory applies the three-tier fallback: exact value, then the
// "Unknown" category, then code 0. It never fails for any input.
func (b *Builder) encodeCategory(col, raw string) int {
	if col == "ip_address" && raw == invalidIPSentinel {
		raw = ipPlaceholder
	}
	if raw == "" {
		raw = unknownCategory
	}

	mapping, ok := b.model.Encoders[col]
	if !ok {
		return 0
	}
	if code, ok := mapping[raw]; ok {
		return code
	}
	if code, ok := mapping[unknownCategory]; ok {
		return code
	}
	return 0
}

func eventHour(raw string) int {
	if t, ok := parseDate(raw); ok {
		return t.Hour()
	}
	return defaultEventHour
}

func (b *Builder) tenureDays(raw string) int {
	t, ok := parseDate(raw)
	if !ok {
		return unknownTenureDays
	}
	return int(b.refDate.Sub(t).Hours() / 24)
}

// positionMonths parses "N years" / "N months" into integer months. The
// units are matched as plural substrings anywhere in the value; singular
// forms and unrecognized formats map to 0. This mirrors the encoding the
// model was fitted against, so it must not be made more forgiving.
func positionMonths(raw string) int {
	lower := strings.ToLower(raw)
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	switch {
	case strings.Contains(lower, "years"):
		return n * 12
	case strings.Contains(lower, "months"):
		return n
	default:
		return 0
	}
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
