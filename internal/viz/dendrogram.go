package viz

import (
	"fmt"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

const maxLabelledLeaves = 60

// dendrogramInput returns the observations to cluster and their labels. Numeric
// columns contribute their present values labelled by row; other columns
// contribute the frequency of each distinct value labelled by that value.
func dendrogramInput(col *frame.Column) ([][]float64, []string) {
	var points [][]float64
	var labels []string
	if col.Kind == frame.Numeric {
		for i, v := range col.Floats {
			if col.IsMissing(i) {
				continue
			}
			points = append(points, []float64{v})
			labels = append(labels, strconv.Itoa(i))
		}
		return points, labels
	}
	for _, vc := range valueCounts(col) {
		points = append(points, []float64{float64(vc.Count)})
		labels = append(labels, vc.Label)
	}
	return points, labels
}

func (r *Renderer) dendrogram(df *frame.DataFrame, name string) ([]byte, error) {
	col, err := r.column(df, "column", name)
	if err != nil {
		return nil, err
	}
	points, labels := dendrogramInput(col)
	n := len(points)
	if n < 2 {
		return nil, apierrors.Validation("column", "dendrogram needs at least 2 observations, column %q has %d", name, n)
	}
	if n > r.cfg.DendrogramMaxLeaves {
		return nil, apierrors.Validation("column", "dendrogram supports at most %d observations, column %q has %d",
			r.cfg.DendrogramMaxLeaves, name, n)
	}

	merges := WardLinkage(points)
	order := leafOrder(merges, n)

	xs := make([]float64, n+len(merges))
	ys := make([]float64, n+len(merges))
	for pos, leaf := range order {
		xs[leaf] = float64(pos) + 0.5
	}
	maxDist := 0.0
	series := make([]chart.Series, 0, len(merges))
	link := chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.5}
	for i, m := range merges {
		id := n + i
		xs[id] = (xs[m.Left] + xs[m.Right]) / 2
		ys[id] = m.Distance
		if m.Distance > maxDist {
			maxDist = m.Distance
		}
		series = append(series, chart.ContinuousSeries{
			Style:   link,
			XValues: []float64{xs[m.Left], xs[m.Left], xs[m.Right], xs[m.Right]},
			YValues: []float64{ys[m.Left], m.Distance, m.Distance, ys[m.Right]},
		})
	}
	if maxDist == 0 {
		maxDist = 1
	}

	ticks := []chart.Tick{{Value: 0}, {Value: float64(n)}}
	if n <= maxLabelledLeaves {
		ticks = make([]chart.Tick, 0, n+2)
		ticks = append(ticks, chart.Tick{Value: 0})
		for pos, leaf := range order {
			ticks = append(ticks, chart.Tick{Value: float64(pos) + 0.5, Label: truncate(labels[leaf], 12)})
		}
		ticks = append(ticks, chart.Tick{Value: float64(n)})
	}
	tickStyle := chart.Style{}
	if n > 15 {
		tickStyle.TextRotationDegrees = 90
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Hierarchical clustering of %s (Ward)", name),
		Width:  r.cfg.Width,
		Height: r.cfg.Height,
		Font:   r.font,
		XAxis:  chart.XAxis{Ticks: ticks, TickStyle: tickStyle},
		YAxis: chart.YAxis{
			Name:  "Distance",
			Range: &chart.ContinuousRange{Min: 0, Max: maxDist * 1.05},
		},
		Series: series,
	}
	return encodePNG(KindDendrogram, graph.Render)
}
