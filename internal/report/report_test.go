package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ishannjr/neonblue/internal/model"
)

func reportFixture() model.ExperimentResults {
	leader := "B"
	return model.ExperimentResults{
		ExperimentID:   4,
		ExperimentName: "pricing-page",
		Status:         model.StatusRunning,
		Summary: model.ResultsSummary{
			TotalAssignments:      220,
			TotalEvents:           48,
			OverallConversionRate: 14.1,
			LeadingVariant:        &leader,
			ConfidenceLevel:       model.ConfidenceHigh,
		},
		VariantMetrics: []model.VariantMetrics{
			{VariantName: "A", ConversionRate: 12.5, TotalAssignments: 100, TotalEvents: 20, EventsByType: map[string]int{"click": 15}},
			{VariantName: "B", ConversionRate: 17.4, TotalAssignments: 120, TotalEvents: 28, EventsByType: map[string]int{"click": 20, "purchase": 8}},
		},
		TimeSeries: []model.TimeSeriesPoint{
			{Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), VariantName: "A", EventCount: 4, ConversionRate: 10},
			{Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), VariantName: "B", EventCount: 6, ConversionRate: 12},
			{Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), VariantName: "A", EventCount: 7, ConversionRate: 13},
			{Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), VariantName: "B", EventCount: 9, ConversionRate: 15},
		},
		EventsByType: map[string]int{"click": 35, "purchase": 8},
	}
}

func TestRenderSummaryLines(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, reportFixture()); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Experiment: pricing-page (#4, running)",
		"Assignments: 220",
		"Overall conversion: 14.10%",
		"Leading variant: B",
		"Confidence: High",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderSummaryNoLeader(t *testing.T) {
	results := reportFixture()
	results.Summary.LeadingVariant = nil
	var buf bytes.Buffer
	if err := RenderSummary(&buf, results); err != nil {
		t.Fatalf("RenderSummary failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Leading variant: none") {
		t.Fatalf("expected none for missing leader:\n%s", buf.String())
	}
}

func TestRenderConversionTable(t *testing.T) {
	results := reportFixture()
	var buf bytes.Buffer
	if err := RenderConversion(&buf, &results); err != nil {
		t.Fatalf("RenderConversion failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "12.50%") || !strings.Contains(out, "17.40%") {
		t.Fatalf("conversion rates missing:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
}

func TestRenderEventTypesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderEventTypes(&buf, &model.ExperimentResults{}); err != nil {
		t.Fatalf("RenderEventTypes failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No events recorded.") {
		t.Fatalf("expected placeholder, got:\n%s", buf.String())
	}
}

func TestRenderMatrixColumns(t *testing.T) {
	results := reportFixture()
	var buf bytes.Buffer
	if err := RenderMatrix(&buf, &results); err != nil {
		t.Fatalf("RenderMatrix failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus one row per event type, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "A") || !strings.Contains(lines[0], "B") {
		t.Fatalf("header must list variant columns: %q", lines[0])
	}
	var purchaseLine string
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "Purchase") {
			purchaseLine = line
		}
	}
	if purchaseLine == "" {
		t.Fatalf("missing Purchase row:\n%s", buf.String())
	}
	if !strings.Contains(purchaseLine, "0") || !strings.Contains(purchaseLine, "8") {
		t.Fatalf("expected zero-filled cell and count: %q", purchaseLine)
	}
}

func TestRenderResultsFullReport(t *testing.T) {
	results := reportFixture()
	exp := &model.Experiment{
		ID:   4,
		Name: "pricing-page",
		Variants: []model.Variant{
			{Name: "A", TrafficAllocation: 50},
			{Name: "B", TrafficAllocation: 50},
		},
	}
	var buf bytes.Buffer
	if err := RenderResults(&buf, exp, results, 1, 80, false); err != nil {
		t.Fatalf("RenderResults failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Traffic Allocation", "Conversion", "Events by Variant", "Time Series", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing section %q:\n%s", want, out)
		}
	}
}

func TestConversionSeriesGroupsByVariant(t *testing.T) {
	results := reportFixture()
	series := conversionSeries(&results)
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].Name != "A" || series[1].Name != "B" {
		t.Fatalf("series must keep first-seen variant order: %+v", series)
	}
	if len(series[0].Values) != 2 || series[0].Values[1] != 13 {
		t.Fatalf("unexpected values for A: %v", series[0].Values)
	}
}

func TestMovingAverage(t *testing.T) {
	values := []float64{2, 4, 6, 8}
	out := MovingAverage(values, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], out[i])
		}
	}
	if values[0] != 2 || values[3] != 8 {
		t.Fatalf("input must not be mutated: %v", values)
	}
}

func TestMovingAverageWindowOne(t *testing.T) {
	values := []float64{1, 2, 3}
	out := MovingAverage(values, 1)
	for i := range values {
		if out[i] != values[i] {
			t.Fatalf("window 1 must copy values, got %v", out)
		}
	}
}

func TestHistogramBarScaling(t *testing.T) {
	if bar := histogramBar(30, 30); len([]rune(bar)) != histogramBarWidth {
		t.Fatalf("max count must fill the bar, got %d cells", len([]rune(bar)))
	}
	if bar := histogramBar(1, 1000); len([]rune(bar)) != 1 {
		t.Fatalf("tiny counts still get one cell, got %q", bar)
	}
	if bar := histogramBar(0, 10); bar != "" {
		t.Fatalf("zero count renders empty, got %q", bar)
	}
}
