package fallback

import (
	"math"
	"testing"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := LoadModel("testdata/model.json")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	return m
}

func featureIndex(t *testing.T, m *Model, col string) int {
	t.Helper()
	for i, c := range m.FeatureColumns {
		if c == col {
			return i
		}
	}
	t.Fatalf("column %q not in model", col)
	return -1
}

func TestBuildEmptyRecordUsesSentinels(t *testing.T) {
	m := testModel(t)
	b := NewBuilder(m)

	vec := b.Build(Record{})
	if len(vec) != len(m.FeatureColumns) {
		t.Fatalf("vector length = %d, want %d", len(vec), len(m.FeatureColumns))
	}

	want := map[string]float64{
		"event_hour":              12,
		"trained":                 0,
		"tenure_days":             -1,
		"ip_valid":                1,
		"time_in_position_months": 0,
		"past_violations":         0,
		"department":              0,
		"employee_status":         0,
		"location":                0,
		"region":                  0,
		"ip_address":              0,
	}
	for col, w := range want {
		got := vec[featureIndex(t, m, col)]
		if got != w {
			t.Errorf("%s = %v, want %v", col, got, w)
		}
	}
}

func TestBuildFullRecord(t *testing.T) {
	m := testModel(t)
	b := NewBuilder(m)

	vec := b.Build(Record{
		"department":             "Finance",
		"employee_status":        "Active",
		"location":               "Berlin",
		"region":                 "EMEA",
		"ip_address":             "10.0.0.5",
		"timestamp":              "2023-06-15 09:30:00",
		"last_security_training": "2023-03-01",
		"employee_join_date":     "2020-01-01",
		"time_in_position":       "2 years",
		"past_violations":        "1",
	})

	want := map[string]float64{
		"department":              1,
		"employee_status":         1,
		"location":                1,
		"region":                  2,
		"ip_address":              1,
		"event_hour":              9,
		"trained":                 1,
		"tenure_days":             1461,
		"ip_valid":                1,
		"time_in_position_months": 24,
		"past_violations":         1,
	}
	for col, w := range want {
		got := vec[featureIndex(t, m, col)]
		if got != w {
			t.Errorf("%s = %v, want %v", col, got, w)
		}
	}
}

func TestBuildInvalidIPSubstitution(t *testing.T) {
	m := testModel(t)
	b := NewBuilder(m)

	vec := b.Build(Record{"ip_address": "invalid_ip"})

	if got := vec[featureIndex(t, m, "ip_valid")]; got != 0 {
		t.Errorf("ip_valid = %v, want 0", got)
	}
	// invalid_ip is replaced by the placeholder before encoding, which
	// the model was fitted with.
	if got := vec[featureIndex(t, m, "ip_address")]; got != 0 {
		t.Errorf("ip_address code = %v, want 0", got)
	}
}

func TestEncodeCategoryThreeTierFallback(t *testing.T) {
	m := testModel(t)
	b := NewBuilder(m)

	tests := []struct {
		name string
		col  string
		raw  string
		want int
	}{
		{"exact match", "department", "IT", 3},
		{"unseen value falls to Unknown", "department", "Legal", 0},
		{"empty value falls to Unknown", "department", "", 0},
		{"unseen value no Unknown category", "ip_address", "172.16.0.9", 0},
		{"column without encoder", "nonexistent", "anything", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.encodeCategory(tt.col, tt.raw); got != tt.want {
				t.Errorf("encodeCategory(%q, %q) = %d, want %d", tt.col, tt.raw, got, tt.want)
			}
		})
	}
}

func TestPositionMonths(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"2 years", 24},
		{"6 months", 6},
		{"2 years 3 months", 24},
		// singular units are not an encoding the model was fitted with
		{"1 year", 0},
		{"1 month", 0},
		{"", 0},
		{"forever", 0},
		{"two years", 0},
		{"3 weeks", 0},
	}
	for _, tt := range tests {
		if got := positionMonths(tt.raw); got != tt.want {
			t.Errorf("positionMonths(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestEventHourDefaults(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"2023-06-15 23:05:00", 23},
		{"2023-06-15T08:00:00Z", 8},
		{"not a date", 12},
		{"", 12},
	}
	for _, tt := range tests {
		if got := eventHour(tt.raw); got != tt.want {
			t.Errorf("eventHour(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestModelScoreIsSigmoid(t *testing.T) {
	m := &Model{
		FeatureColumns: []string{"a", "b"},
		Weights:        []float64{1, 1},
		Bias:           0,
		Threshold:      0.5,
	}
	if got := m.Score([]float64{0, 0}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Score at zero = %v, want 0.5", got)
	}
	if got := m.Score([]float64{100, 100}); got < 0.999 {
		t.Errorf("Score saturates high = %v", got)
	}
	if got := m.Score([]float64{-100, -100}); got > 0.001 {
		t.Errorf("Score saturates low = %v", got)
	}
}

func TestLoadModelRejectsWeightMismatch(t *testing.T) {
	if _, err := LoadModel("testdata/model.json"); err != nil {
		t.Fatalf("valid artifact rejected: %v", err)
	}
	if _, err := LoadModel("testdata/missing.json"); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
