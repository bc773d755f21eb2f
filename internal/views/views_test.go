package views

import (
	"reflect"
	"testing"
	"time"

	"github.com/ishannjr/neonblue/internal/model"
)

func sampleResults() *model.ExperimentResults {
	return &model.ExperimentResults{
		ExperimentID:   1,
		ExperimentName: "checkout",
		Status:         model.StatusRunning,
		Summary: model.ResultsSummary{
			TotalAssignments:      220,
			TotalEvents:           48,
			OverallConversionRate: 14.1,
			ConfidenceLevel:       model.ConfidenceMedium,
		},
		VariantMetrics: []model.VariantMetrics{
			{
				VariantID:             1,
				VariantName:           "A",
				ConversionRate:        12.5,
				TotalAssignments:      100,
				TotalEvents:           20,
				EventsByType:          map[string]int{"click": 15, "view": 5},
				UniqueUsersWithEvents: 18,
				EventsPerUser:         0.2,
			},
			{
				VariantID:             2,
				VariantName:           "B",
				ConversionRate:        17.4,
				TotalAssignments:      120,
				TotalEvents:           28,
				EventsByType:          map[string]int{"click": 20, "purchase": 8},
				UniqueUsersWithEvents: 21,
				EventsPerUser:         0.23,
			},
		},
		TimeSeries: []model.TimeSeriesPoint{
			{Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), VariantName: "A", EventCount: 4, ConversionRate: 10},
			{Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), VariantName: "A", EventCount: 7, ConversionRate: 13},
		},
		EventsByType: map[string]int{"click": 35, "view": 5, "purchase": 8},
	}
}

func TestAllocationMatchesVariants(t *testing.T) {
	exp := &model.Experiment{
		ID:     1,
		Name:   "checkout",
		Status: model.StatusRunning,
		Variants: []model.Variant{
			{Name: "control", TrafficAllocation: 50},
			{Name: "treatment", TrafficAllocation: 50},
		},
	}

	rows := Allocation(exp)
	if len(rows) != len(exp.Variants) {
		t.Fatalf("expected %d rows, got %d", len(exp.Variants), len(rows))
	}
	for i, v := range exp.Variants {
		if rows[i].Variant != v.Name || rows[i].Allocation != v.TrafficAllocation {
			t.Fatalf("row %d does not match variant: %+v vs %+v", i, rows[i], v)
		}
	}
}

func TestAllocationIndependentOfResults(t *testing.T) {
	// Works before any results arrive and with odd allocations that do not
	// sum to 100.
	exp := &model.Experiment{
		Variants: []model.Variant{{Name: "only", TrafficAllocation: 73}},
	}
	rows := Allocation(exp)
	if len(rows) != 1 || rows[0].Allocation != 73 {
		t.Fatalf("unexpected allocation rows: %+v", rows)
	}
}

func TestAllocationNilExperiment(t *testing.T) {
	if rows := Allocation(nil); len(rows) != 0 {
		t.Fatalf("expected empty rows for nil experiment, got %+v", rows)
	}
}

func TestConversionExactRows(t *testing.T) {
	rows := Conversion(sampleResults())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := ConversionRow{Variant: "A", Rate: 12.5, Assignments: 100, Events: 20}
	if rows[0] != want {
		t.Fatalf("expected %+v, got %+v", want, rows[0])
	}
}

func TestConversionRateNotRescaled(t *testing.T) {
	results := &model.ExperimentResults{
		VariantMetrics: []model.VariantMetrics{{VariantName: "A", ConversionRate: 0.5}},
	}
	rows := Conversion(results)
	if rows[0].Rate != 0.5 {
		t.Fatalf("rate must pass through unscaled, got %v", rows[0].Rate)
	}
}

func TestEventTypesCapitalizedAndSorted(t *testing.T) {
	rows := EventTypes(sampleResults())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Label != "Click" || rows[0].Count != 35 {
		t.Fatalf("expected Click/35 first, got %+v", rows[0])
	}
	if rows[1].Label != "Purchase" || rows[2].Label != "View" {
		t.Fatalf("unexpected order: %+v", rows)
	}
}

func TestVariantEventMatrixShapeAndZeroFill(t *testing.T) {
	matrix := VariantEventMatrix(sampleResults())
	if !reflect.DeepEqual(matrix.Variants, []string{"A", "B"}) {
		t.Fatalf("unexpected variant columns: %v", matrix.Variants)
	}
	if len(matrix.Rows) != 3 {
		t.Fatalf("expected one row per distinct event type, got %d", len(matrix.Rows))
	}
	byType := map[string][]int{}
	for _, row := range matrix.Rows {
		if len(row.Counts) != len(matrix.Variants) {
			t.Fatalf("row %q has %d cells for %d variants", row.EventType, len(row.Counts), len(matrix.Variants))
		}
		byType[row.EventType] = row.Counts
	}
	if !reflect.DeepEqual(byType["Click"], []int{15, 20}) {
		t.Fatalf("unexpected Click counts: %v", byType["Click"])
	}
	// Variant A has no purchase events; the cell must be zero, not absent.
	if !reflect.DeepEqual(byType["Purchase"], []int{0, 8}) {
		t.Fatalf("unexpected Purchase counts: %v", byType["Purchase"])
	}
	if !reflect.DeepEqual(byType["View"], []int{5, 0}) {
		t.Fatalf("unexpected View counts: %v", byType["View"])
	}
}

func TestVariantEventMatrixFirstSeenOrder(t *testing.T) {
	matrix := VariantEventMatrix(sampleResults())
	// Variant A contributes click and view; purchase first appears with B
	// and must come after A's types.
	want := []string{"Click", "View", "Purchase"}
	got := make([]string, len(matrix.Rows))
	for i, row := range matrix.Rows {
		got[i] = row.EventType
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected first-seen order %v, got %v", want, got)
	}
}

func TestTimeSeriesPreservesOrder(t *testing.T) {
	rows := TimeSeries(sampleResults())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date != "2026-03-01" || rows[1].Date != "2026-03-02" {
		t.Fatalf("bucket order must pass through verbatim: %+v", rows)
	}
	if rows[0].Events != 4 || rows[0].Rate != 10 {
		t.Fatalf("unexpected first bucket: %+v", rows[0])
	}
}

func TestFormatBucketHourly(t *testing.T) {
	ts := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	if got := FormatBucket(ts); got != "2026-03-01 14:00" {
		t.Fatalf("expected hourly format, got %q", got)
	}
}

func TestTransformersIdempotent(t *testing.T) {
	results := sampleResults()
	before := sampleResults()

	first := VariantEventMatrix(results)
	second := VariantEventMatrix(results)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("matrix differs across calls with identical input")
	}
	if !reflect.DeepEqual(Conversion(results), Conversion(results)) {
		t.Fatalf("conversion differs across calls with identical input")
	}
	if !reflect.DeepEqual(EventTypes(results), EventTypes(results)) {
		t.Fatalf("event types differ across calls with identical input")
	}
	if !reflect.DeepEqual(results, before) {
		t.Fatalf("transformers mutated their input")
	}
}

func TestTransformersTolerateEmptyInput(t *testing.T) {
	empty := &model.ExperimentResults{}
	if rows := Conversion(nil); len(rows) != 0 {
		t.Fatalf("expected empty conversion view, got %+v", rows)
	}
	if rows := Conversion(empty); len(rows) != 0 {
		t.Fatalf("expected empty conversion view, got %+v", rows)
	}
	if rows := EventTypes(empty); len(rows) != 0 {
		t.Fatalf("expected empty histogram, got %+v", rows)
	}
	if matrix := VariantEventMatrix(empty); len(matrix.Rows) != 0 || len(matrix.Variants) != 0 {
		t.Fatalf("expected empty matrix, got %+v", matrix)
	}
	if rows := TimeSeries(empty); len(rows) != 0 {
		t.Fatalf("expected empty time series, got %+v", rows)
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"click":    "Click",
		"Purchase": "Purchase",
		"étape":    "Étape",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Fatalf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
