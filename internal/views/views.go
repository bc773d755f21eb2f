// Package views derives chart-ready view models from results payloads.
// Every function is pure: nil or partial input yields an empty view model,
// and the input payload is never mutated.
package views

import (
	"sort"
	"time"
	"unicode"

	"github.com/ishannjr/neonblue/internal/model"
)

// AllocationRow is one variant's traffic share.
type AllocationRow struct {
	Variant    string
	Allocation float64
}

// Allocation lists each variant's traffic allocation. It depends only on
// the selected experiment, so it is usable before results arrive.
func Allocation(exp *model.Experiment) []AllocationRow {
	if exp == nil || len(exp.Variants) == 0 {
		return nil
	}
	rows := make([]AllocationRow, 0, len(exp.Variants))
	for _, v := range exp.Variants {
		rows = append(rows, AllocationRow{Variant: v.Name, Allocation: v.TrafficAllocation})
	}
	return rows
}

// ConversionRow is one variant's headline metrics. Rate is the backend's
// percentage in [0, 100], carried through without re-scaling.
type ConversionRow struct {
	Variant     string
	Rate        float64
	Assignments int
	Events      int
}

// Conversion lists per-variant conversion metrics in payload order.
func Conversion(results *model.ExperimentResults) []ConversionRow {
	if results == nil || len(results.VariantMetrics) == 0 {
		return nil
	}
	rows := make([]ConversionRow, 0, len(results.VariantMetrics))
	for _, m := range results.VariantMetrics {
		rows = append(rows, ConversionRow{
			Variant:     m.VariantName,
			Rate:        m.ConversionRate,
			Assignments: m.TotalAssignments,
			Events:      m.TotalEvents,
		})
	}
	return rows
}

// EventTypeRow is one bar of the experiment-wide event histogram. Label is
// the capitalized display form; the raw type string is untouched elsewhere.
type EventTypeRow struct {
	Label string
	Count int
}

// EventTypes builds the experiment-wide event histogram, largest count
// first (ties broken by label to keep the order stable).
func EventTypes(results *model.ExperimentResults) []EventTypeRow {
	if results == nil || len(results.EventsByType) == 0 {
		return nil
	}
	rows := make([]EventTypeRow, 0, len(results.EventsByType))
	for eventType, count := range results.EventsByType {
		rows = append(rows, EventTypeRow{Label: Capitalize(eventType), Count: count})
	}
	sortEventRows(rows)
	return rows
}

// Matrix is the variant-by-event-type count table. Rows are keyed by
// capitalized event type; Counts is parallel to Variants, zero-filled for
// variants without that event type.
type Matrix struct {
	Variants []string
	Rows     []MatrixRow
}

// MatrixRow is one event type's counts across all variants.
type MatrixRow struct {
	EventType string
	Counts    []int
}

// VariantEventMatrix joins per-variant event counts into one table. The
// server keys metrics by variant, so this needs two passes: collect the
// union of event types in first-seen order, then fill each cell.
func VariantEventMatrix(results *model.ExperimentResults) Matrix {
	if results == nil || len(results.VariantMetrics) == 0 {
		return Matrix{}
	}

	variants := make([]string, 0, len(results.VariantMetrics))
	for _, m := range results.VariantMetrics {
		variants = append(variants, m.VariantName)
	}

	seen := make(map[string]struct{})
	eventTypes := make([]string, 0)
	for _, m := range results.VariantMetrics {
		for _, eventType := range sortedKeys(m.EventsByType) {
			if _, ok := seen[eventType]; ok {
				continue
			}
			seen[eventType] = struct{}{}
			eventTypes = append(eventTypes, eventType)
		}
	}

	rows := make([]MatrixRow, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		counts := make([]int, len(results.VariantMetrics))
		for i, m := range results.VariantMetrics {
			counts[i] = m.EventsByType[eventType]
		}
		rows = append(rows, MatrixRow{EventType: Capitalize(eventType), Counts: counts})
	}
	return Matrix{Variants: variants, Rows: rows}
}

// TimeSeriesRow is one rendered time-series bucket.
type TimeSeriesRow struct {
	Date    string
	Variant string
	Events  int
	Rate    float64
}

// TimeSeries formats time-series points for display, preserving the
// server's bucket order and granularity.
func TimeSeries(results *model.ExperimentResults) []TimeSeriesRow {
	if results == nil || len(results.TimeSeries) == 0 {
		return nil
	}
	rows := make([]TimeSeriesRow, 0, len(results.TimeSeries))
	for _, p := range results.TimeSeries {
		rows = append(rows, TimeSeriesRow{
			Date:    FormatBucket(p.Timestamp),
			Variant: p.VariantName,
			Events:  p.EventCount,
			Rate:    p.ConversionRate,
		})
	}
	return rows
}

// FormatBucket renders a bucket timestamp, keeping the time component only
// when the bucket is finer than a day.
func FormatBucket(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

// Capitalize upper-cases the first rune for display. Lookup keys keep the
// raw type string.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func sortEventRows(rows []EventTypeRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
}

// sortedKeys gives map iteration a stable order. Event types are
// first-seen across variants; within one variant the map has no order, so
// alphabetical stands in.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
