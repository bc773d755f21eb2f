package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is one named line on a plot, e.g. a variant's conversion rate
// over the analysis window.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var plotColors = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// PlotSeries renders a braille line plot. All series share one vertical
// scale so variant curves are directly comparable.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	series = nonEmptySeries(series)
	if len(series) == 0 {
		return nil
	}

	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	low, high := valueRange(series)
	if math.Abs(high-low) < 1e-9 {
		low--
		high++
	}

	grid := make([][]uint8, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
	}
	colors := make([][]int, height)
	for y := range colors {
		colors[y] = make([]int, width)
		for x := range colors[y] {
			colors[y][x] = -1
		}
	}

	for si, s := range series {
		values := fitSeries(s.Values, width)
		prevX, prevY := -1, -1
		for x, v := range values {
			px := x * 2
			py := dotRow(v, low, high, height*4)
			if prevX >= 0 {
				traceLine(prevX, prevY, px, py, func(dx, dy int) {
					setDot(grid, colors, si, dx, dy)
				})
			} else {
				setDot(grid, colors, si, px, py)
			}
			prevX, prevY = px, py
		}
	}

	axisLabels := axisLabelsFor(low, high, height)
	labelWidth := 0
	for _, label := range axisLabels {
		if w := runewidth.StringWidth(label); w > labelWidth {
			labelWidth = w
		}
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", labelWidth, axisLabels[y], axisSeparator))
		for x := 0; x < width; x++ {
			mask := grid[y][x]
			if mask == 0 {
				row.WriteRune(' ')
				continue
			}
			ch := rune(0x2800 + int(mask))
			if useColor && colors[y][x] >= 0 {
				row.WriteString(plotColors[colors[y][x]%len(plotColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	return writeLegend(w, series, useColor)
}

// PlotWidthFor computes the plot width that fits a total terminal width
// next to the axis labels.
func PlotWidthFor(totalWidth int) int {
	plotWidth := totalWidth - 8 - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		return minPlotWidth
	}
	return plotWidth
}

// ShouldUseColor reports whether ANSI colors are appropriate for w.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// OutputWidth returns the terminal width for stdout, or a fallback when
// stdout is not a terminal.
func OutputWidth() int {
	return terminalWidth()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func nonEmptySeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func valueRange(series []Series) (float64, float64) {
	low := math.Inf(1)
	high := math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			if v < low {
				low = v
			}
			if v > high {
				high = v
			}
		}
	}
	if math.IsInf(low, 1) {
		low = 0
	}
	if math.IsInf(high, -1) {
		high = 0
	}
	return low, high
}

func axisLabelsFor(low, high float64, height int) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = fmt.Sprintf("%.1f%%", high)
	if height > 2 {
		labels[height/2] = fmt.Sprintf("%.1f%%", (low+high)/2)
	}
	if height > 1 {
		labels[height-1] = fmt.Sprintf("%.1f%%", low)
	}
	return labels
}

// fitSeries resizes values to the plot width: averaging buckets when the
// series is longer, linear interpolation when shorter.
func fitSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	if len(values) == width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	if len(values) > width {
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			if end > len(values) {
				end = len(values)
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	if width == 1 || len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(width-1)
		idx := int(math.Floor(pos))
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func dotRow(v, low, high float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pos := (v - low) / (high - low)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	if row < 0 {
		return 0
	}
	if row >= rows {
		return rows - 1
	}
	return row
}

func setDot(grid [][]uint8, colors [][]int, seriesIdx, x, y int) {
	if x < 0 || y < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(grid) || cellX >= len(grid[cellY]) {
		return
	}
	grid[cellY][cellX] |= brailleDotMask(x%2, y%4)
	if colors[cellY][cellX] == -1 {
		colors[cellY][cellX] = seriesIdx
	}
}

func brailleDotMask(x, y int) uint8 {
	masks := [2][4]uint8{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	if x < 0 || x > 1 || y < 0 || y > 3 {
		return 0
	}
	return masks[x][y]
}

// traceLine walks the cells between two dots (Bresenham).
func traceLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			err += dx
			y0 += sy
		}
	}
}

func writeLegend(w io.Writer, series []Series, useColor bool) error {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s", rune(0x2800+0x01), s.Name)
		if useColor {
			label = plotColors[i%len(plotColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	_, err := fmt.Fprintln(w, "Legend: "+strings.Join(parts, "  "))
	return err
}
