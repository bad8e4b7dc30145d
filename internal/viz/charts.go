package viz

import (
	"fmt"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

const maxPieSlices = 12

func (r *Renderer) histogram(df *frame.DataFrame, name string) ([]byte, error) {
	col, err := r.column(df, "column", name)
	if err != nil {
		return nil, err
	}
	if col.Kind != frame.Numeric {
		return r.countBars(KindHistogram, col, fmt.Sprintf("Distribution of %s", name))
	}
	x := col.NonMissing()
	if len(x) == 0 {
		return nil, apierrors.Validation("column", "column %q has no values", name)
	}

	edges, counts := sturgesBins(x)
	xs, ys := stepOutline(edges, counts)
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Distribution of %s", name),
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Font:   r.font,
		XAxis: chart.XAxis{
			Name:  name,
			Range: &chart.ContinuousRange{Min: edges[0], Max: edges[len(edges)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "Count",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: name,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 1.5,
					FillColor:   chart.ColorBlue.WithAlpha(96),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return encodePNG(KindHistogram, graph.Render)
}

// sturgesBins splits x into ceil(log2(n)) + 1 equal-width bins. The last bin is closed.
func sturgesBins(x []float64) (edges []float64, counts []int) {
	bins := int(math.Ceil(math.Log2(float64(len(x))))) + 1
	lo, hi := minMax(x)
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	edges = make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts = make([]int, bins)
	for _, v := range x {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	return edges, counts
}

// stepOutline turns bins into the closed outline of adjacent bars.
func stepOutline(edges []float64, counts []int) (xs, ys []float64) {
	xs = append(xs, edges[0])
	ys = append(ys, 0)
	for i, c := range counts {
		xs = append(xs, edges[i], edges[i+1])
		ys = append(ys, float64(c), float64(c))
	}
	xs = append(xs, edges[len(edges)-1])
	ys = append(ys, 0)
	return xs, ys
}

func (r *Renderer) xy(df *frame.DataFrame, xName, yName string, connect bool) ([]byte, error) {
	if xName == "" {
		return nil, apierrors.Validation("xColumn", "is required")
	}
	if yName == "" {
		return nil, apierrors.Validation("yColumn", "is required")
	}
	if err := df.RequireNumeric(xName, yName); err != nil {
		return nil, err
	}
	xc, _ := df.Col(xName)
	yc, _ := df.Col(yName)

	var xs, ys []float64
	for i := 0; i < df.Len(); i++ {
		if xc.IsMissing(i) || yc.IsMissing(i) {
			continue
		}
		xs = append(xs, xc.Floats[i])
		ys = append(ys, yc.Floats[i])
	}
	if len(xs) == 0 {
		return nil, apierrors.InvalidColumns("columns have no complete rows", xName, yName)
	}

	kind, title := KindScatter, fmt.Sprintf("%s vs %s", yName, xName)
	style := chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    chart.ColorBlue.WithAlpha(180),
	}
	if connect {
		kind, title = KindLine, fmt.Sprintf("%s over %s", yName, xName)
		style = chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2}
		if len(xs) == 1 {
			style.DotWidth = 4
			style.DotColor = chart.ColorBlue
		}
	}

	xlo, xhi := minMax(xs)
	ylo, yhi := minMax(ys)
	graph := chart.Chart{
		Title:  title,
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Font:   r.font,
		XAxis:  chart.XAxis{Name: xName, Range: paddedRange(xlo, xhi)},
		YAxis:  chart.YAxis{Name: yName, Range: paddedRange(ylo, yhi)},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: yName, Style: style, XValues: xs, YValues: ys},
		},
	}
	return encodePNG(kind, graph.Render)
}

func (r *Renderer) pie(df *frame.DataFrame, name string) ([]byte, error) {
	col, err := r.column(df, "column", name)
	if err != nil {
		return nil, err
	}
	counts := valueCounts(col)
	if len(counts) == 0 {
		return nil, apierrors.Validation("column", "column %q has no values", name)
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if len(counts) > maxPieSlices {
		other := 0
		for _, c := range counts[maxPieSlices-1:] {
			other += c.Count
		}
		counts = append(counts[:maxPieSlices-1:maxPieSlices-1], valueCount{Label: "other", Count: other})
	}

	values := make([]chart.Value, len(counts))
	for i, c := range counts {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", truncate(c.Label, 24), 100*float64(c.Count)/float64(total)),
			Value: float64(c.Count),
		}
	}
	graph := chart.PieChart{
		Title:  fmt.Sprintf("Share of %s", name),
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Font:   r.font,
		Values: values,
	}
	return encodePNG(KindPie, graph.Render)
}

// countBars draws the value counts of a column as a bar chart.
func (r *Renderer) countBars(kind Kind, col *frame.Column, title string) ([]byte, error) {
	counts := valueCounts(col)
	if len(counts) == 0 {
		return nil, apierrors.Validation("column", "column %q has no values", col.Name)
	}
	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		bars[i] = chart.Value{Label: truncate(c.Label, 16), Value: float64(c.Count)}
	}
	graph := chart.BarChart{
		Title:  title,
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Font:   r.font,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(counts[0].Count) * 1.1},
		},
		BarSpacing: 8,
		Bars:       bars,
	}
	return encodePNG(kind, graph.Render)
}

// boxStats summarises a sample the way a box-and-whisker plot draws it.
type boxStats struct {
	Q1, Median, Q3          float64
	LowWhisker, HighWhisker float64
	Outliers                []float64
}

// quantile interpolates linearly between order statistics of sorted data.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func summarize(x []float64) boxStats {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	s := boxStats{
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
	}
	iqr := s.Q3 - s.Q1
	lowFence, highFence := s.Q1-1.5*iqr, s.Q3+1.5*iqr
	s.LowWhisker, s.HighWhisker = s.Q1, s.Q3
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			s.Outliers = append(s.Outliers, v)
			continue
		}
		s.LowWhisker = math.Min(s.LowWhisker, v)
		s.HighWhisker = math.Max(s.HighWhisker, v)
	}
	return s
}

func (r *Renderer) box(df *frame.DataFrame, name string) ([]byte, error) {
	col, err := r.column(df, "column", name)
	if err != nil {
		return nil, err
	}
	if col.Kind != frame.Numeric {
		return r.countBars(KindBox, col, fmt.Sprintf("Counts of %s", name))
	}
	x := col.NonMissing()
	if len(x) == 0 {
		return nil, apierrors.Validation("column", "column %q has no values", name)
	}
	s := summarize(x)

	const left, right, center = 0.7, 1.3, 1.0
	outline := chart.Style{StrokeColor: chart.ColorBlack, StrokeWidth: 1.5}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name: "box",
			Style: chart.Style{
				StrokeColor: chart.ColorBlack,
				StrokeWidth: 1.5,
				FillColor:   chart.ColorBlue.WithAlpha(110),
			},
			XValues: []float64{left, right, right, left, left},
			YValues: []float64{s.Q1, s.Q1, s.Q3, s.Q3, s.Q1},
		},
		chart.ContinuousSeries{
			Name:    "median",
			Style:   chart.Style{StrokeColor: chart.ColorOrange, StrokeWidth: 2.5},
			XValues: []float64{left, right},
			YValues: []float64{s.Median, s.Median},
		},
		chart.ContinuousSeries{Name: "lower whisker", Style: outline, XValues: []float64{center, center}, YValues: []float64{s.Q1, s.LowWhisker}},
		chart.ContinuousSeries{Name: "upper whisker", Style: outline, XValues: []float64{center, center}, YValues: []float64{s.Q3, s.HighWhisker}},
		chart.ContinuousSeries{Name: "lower cap", Style: outline, XValues: []float64{0.85, 1.15}, YValues: []float64{s.LowWhisker, s.LowWhisker}},
		chart.ContinuousSeries{Name: "upper cap", Style: outline, XValues: []float64{0.85, 1.15}, YValues: []float64{s.HighWhisker, s.HighWhisker}},
	}
	lo, hi := s.LowWhisker, s.HighWhisker
	if len(s.Outliers) > 0 {
		xs := make([]float64, len(s.Outliers))
		for i := range xs {
			xs[i] = center
		}
		series = append(series, chart.ContinuousSeries{
			Name: "outliers",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
				DotColor:    chart.ColorRed,
			},
			XValues: xs,
			YValues: s.Outliers,
		})
		olo, ohi := minMax(s.Outliers)
		lo, hi = math.Min(lo, olo), math.Max(hi, ohi)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Box plot of %s", name),
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Font:   r.font,
		XAxis: chart.XAxis{
			Ticks: []chart.Tick{{Value: 0, Label: ""}, {Value: center, Label: name}, {Value: 2, Label: ""}},
		},
		YAxis: chart.YAxis{
			Name:  name,
			Range: paddedRange(lo, hi),
		},
		Series: series,
	}
	return encodePNG(KindBox, graph.Render)
}
