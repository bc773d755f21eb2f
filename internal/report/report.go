package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ishannjr/neonblue/internal/model"
	"github.com/ishannjr/neonblue/internal/views"
)

const histogramBarWidth = 30

// RenderExperiments prints one page of experiments as a table.
func RenderExperiments(w io.Writer, list model.ExperimentList) error {
	if len(list.Experiments) == 0 {
		_, err := fmt.Fprintln(w, "No experiments found.")
		return err
	}
	headers := []string{"ID", "Name", "Status", "Variants", "Created"}
	rows := make([][]string, 0, len(list.Experiments))
	for _, exp := range list.Experiments {
		rows = append(rows, []string{
			fmt.Sprintf("%d", exp.ID),
			exp.Name,
			string(exp.Status),
			fmt.Sprintf("%d", len(exp.Variants)),
			exp.CreatedAt.Format("2006-01-02"),
		})
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 3: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nShowing %d of %d (offset %d)\n", len(list.Experiments), list.Total, list.Offset)
	return err
}

// RenderSummary prints the experiment-wide roll-up.
func RenderSummary(w io.Writer, results model.ExperimentResults) error {
	lines := []string{
		fmt.Sprintf("Experiment: %s (#%d, %s)", results.ExperimentName, results.ExperimentID, results.Status),
	}
	if results.PeriodStart != nil && results.PeriodEnd != nil {
		lines = append(lines, fmt.Sprintf("Window: %s to %s",
			results.PeriodStart.Format("2006-01-02"), results.PeriodEnd.Format("2006-01-02")))
	}
	leader := "none"
	if results.Summary.LeadingVariant != nil {
		leader = *results.Summary.LeadingVariant
	}
	rule := views.LookupConfidence(results.Summary.ConfidenceLevel)
	lines = append(lines,
		fmt.Sprintf("Assignments: %d", results.Summary.TotalAssignments),
		fmt.Sprintf("Events: %d", results.Summary.TotalEvents),
		fmt.Sprintf("Overall conversion: %.2f%%", results.Summary.OverallConversionRate),
		fmt.Sprintf("Leading variant: %s", leader),
		fmt.Sprintf("Confidence: %s (%s)", rule.Label, rule.Threshold),
	)
	if !results.GeneratedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Generated: %s", results.GeneratedAt.Format("2006-01-02 15:04")))
	}
	return writeLines(w, lines)
}

// RenderAllocation prints the traffic split of the selected experiment.
// It needs only the experiment, not the results payload.
func RenderAllocation(w io.Writer, exp *model.Experiment) error {
	rows := views.Allocation(exp)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No variants.")
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{row.Variant, fmt.Sprintf("%.1f%%", row.Allocation)})
	}
	return writeLines(w, formatTable([]string{"Variant", "Allocation"}, tableRows, map[int]bool{1: true}))
}

// RenderConversion prints per-variant conversion metrics.
func RenderConversion(w io.Writer, results *model.ExperimentResults) error {
	rows := views.Conversion(results)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No variant metrics.")
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			row.Variant,
			fmt.Sprintf("%.2f%%", row.Rate),
			fmt.Sprintf("%d", row.Assignments),
			fmt.Sprintf("%d", row.Events),
		})
	}
	headers := []string{"Variant", "Conversion", "Assignments", "Events"}
	return writeLines(w, formatTable(headers, tableRows, map[int]bool{1: true, 2: true, 3: true}))
}

// RenderEventTypes prints the experiment-wide event histogram.
func RenderEventTypes(w io.Writer, results *model.ExperimentResults) error {
	rows := views.EventTypes(results)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No events recorded.")
		return err
	}
	maxCount := rows[0].Count
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			row.Label,
			fmt.Sprintf("%d", row.Count),
			histogramBar(row.Count, maxCount),
		})
	}
	return writeLines(w, formatTable([]string{"Event", "Count", ""}, tableRows, map[int]bool{1: true}))
}

// RenderMatrix prints the variant-by-event-type count table.
func RenderMatrix(w io.Writer, results *model.ExperimentResults) error {
	matrix := views.VariantEventMatrix(results)
	if len(matrix.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No variant metrics.")
		return err
	}
	headers := append([]string{"Event"}, matrix.Variants...)
	rightAlign := map[int]bool{}
	for i := range matrix.Variants {
		rightAlign[i+1] = true
	}
	tableRows := make([][]string, 0, len(matrix.Rows))
	for _, row := range matrix.Rows {
		cells := make([]string, 0, len(row.Counts)+1)
		cells = append(cells, row.EventType)
		for _, count := range row.Counts {
			cells = append(cells, fmt.Sprintf("%d", count))
		}
		tableRows = append(tableRows, cells)
	}
	return writeLines(w, formatTable(headers, tableRows, rightAlign))
}

// RenderTimeSeries prints the raw buckets in server order.
func RenderTimeSeries(w io.Writer, results *model.ExperimentResults) error {
	rows := views.TimeSeries(results)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No time series data.")
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, []string{
			row.Date,
			row.Variant,
			fmt.Sprintf("%d", row.Events),
			fmt.Sprintf("%.2f%%", row.Rate),
		})
	}
	headers := []string{"Date", "Variant", "Events", "Conversion"}
	return writeLines(w, formatTable(headers, tableRows, map[int]bool{2: true, 3: true}))
}

// RenderConversionCurve plots each variant's conversion rate over the
// analysis window, optionally smoothed with a moving average.
func RenderConversionCurve(w io.Writer, results *model.ExperimentResults, window, totalWidth, height int, useColor bool) error {
	series := conversionSeries(results)
	if len(series) == 0 {
		return nil
	}
	for i := range series {
		series[i].Values = MovingAverage(series[i].Values, window)
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Conversion Rate", series, width, height, useColor)
}

// RenderResults prints the full report for one experiment.
func RenderResults(w io.Writer, exp *model.Experiment, results model.ExperimentResults, window, totalWidth int, useColor bool) error {
	sections := []func() error{
		func() error { return RenderSummary(w, results) },
		func() error { return section(w, "Traffic Allocation", func() error { return RenderAllocation(w, exp) }) },
		func() error { return section(w, "Conversion", func() error { return RenderConversion(w, &results) }) },
		func() error { return section(w, "Events", func() error { return RenderEventTypes(w, &results) }) },
		func() error { return section(w, "Events by Variant", func() error { return RenderMatrix(w, &results) }) },
		func() error { return section(w, "Time Series", func() error { return RenderTimeSeries(w, &results) }) },
		func() error {
			if len(results.TimeSeries) == 0 {
				return nil
			}
			if _, err := fmt.Fprintln(w, ""); err != nil {
				return err
			}
			return RenderConversionCurve(w, &results, window, totalWidth, 0, useColor)
		},
	}
	for _, render := range sections {
		if err := render(); err != nil {
			return err
		}
	}
	return nil
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

func conversionSeries(results *model.ExperimentResults) []Series {
	if results == nil || len(results.TimeSeries) == 0 {
		return nil
	}
	index := map[string]int{}
	series := make([]Series, 0)
	for _, p := range results.TimeSeries {
		i, ok := index[p.VariantName]
		if !ok {
			i = len(series)
			index[p.VariantName] = i
			series = append(series, Series{Name: p.VariantName})
		}
		series[i].Values = append(series[i].Values, p.ConversionRate)
	}
	return series
}

func histogramBar(count, maxCount int) string {
	if maxCount <= 0 || count <= 0 {
		return ""
	}
	n := count * histogramBarWidth / maxCount
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func section(w io.Writer, title string, render func() error) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	return render()
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
