package viz

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"dataviz-backend/internal/frame"
	"dataviz-backend/internal/transform"
)

// heatmap draws the annotated Pearson correlation matrix of numeric columns.
func (r *Renderer) heatmap(df *frame.DataFrame, requested []string) ([]byte, error) {
	names, err := numericColumns(df, requested)
	if err != nil {
		return nil, err
	}
	n := len(names)
	corr := make([][]float64, n)
	for i, a := range names {
		ca, _ := df.Col(a)
		corr[i] = make([]float64, n)
		for j, b := range names {
			cb, _ := df.Col(b)
			corr[i][j] = transform.Correlation(ca.Floats, cb.Floats)
		}
	}

	c, err := newCanvas(r.cfg.Width, r.cfg.Height, r.font)
	if err != nil {
		return nil, err
	}

	const (
		top        = 50
		bottom     = 90
		left       = 140
		legendGap  = 30
		legendBarW = 20
		legendArea = 90
	)
	gridW := r.cfg.Width - left - legendArea
	gridH := r.cfg.Height - top - bottom
	cell := math.Min(float64(gridW)/float64(n), float64(gridH)/float64(n))
	if cell < 1 {
		cell = 1
	}
	at := func(i int) int { return int(math.Round(float64(i) * cell)) }

	c.textCentered("Correlation matrix", r.cfg.Width/2, top/2, 14, chart.ColorBlack)

	labelSize := math.Max(6, math.Min(12, cell/4))
	valueSize := math.Max(5, math.Min(12, cell/5))
	annotate := cell >= 24

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0, y0 := left+at(j), top+at(i)
			x1, y1 := left+at(j+1), top+at(i+1)
			fill := coolwarm(corr[i][j])
			c.rect(x0, y0, x1, y1, fill, chart.ColorWhite)
			if annotate {
				label := "n/a"
				if !math.IsNaN(corr[i][j]) {
					label = fmt.Sprintf("%.2f", corr[i][j])
				}
				c.textCentered(label, (x0+x1)/2, (y0+y1)/2, valueSize, textColorFor(fill))
			}
		}
		c.textRight(truncate(names[i], 18), left-6, top+at(i)+at(1)/2, labelSize, chart.ColorBlack)
	}

	gridBottom := top + at(n)
	c.r.ResetStyle()
	c.r.SetFont(c.font)
	c.r.SetFontSize(labelSize)
	c.r.SetFontColor(chart.ColorBlack)
	c.r.SetTextRotation(chart.DegreesToRadians(45))
	for j := 0; j < n; j++ {
		c.r.Text(truncate(names[j], 18), left+at(j)+at(1)/2, gridBottom+10)
	}
	c.r.ClearTextRotation()

	// colour bar from +1 at the top to -1 at the bottom
	barX := left + at(n) + legendGap
	steps := gridBottom - top
	for s := 0; s < steps; s++ {
		v := 1 - 2*float64(s)/float64(steps)
		c.rect(barX, top+s, barX+legendBarW, top+s+1, coolwarm(v), drawing.Color{})
	}
	for _, v := range []float64{1, 0.5, 0, -0.5, -1} {
		y := top + int(math.Round((1-v)/2*float64(steps)))
		c.line(barX+legendBarW, y, barX+legendBarW+4, y, chart.ColorBlack, 1)
		c.textRight(fmt.Sprintf("%.1f", v), barX+legendBarW+40, y, 9, chart.ColorBlack)
	}

	return c.png()
}
