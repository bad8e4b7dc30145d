package viz

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

const matrixMargin = 24

// scatterMatrix draws pairwise scatter plots with per-column histograms on the diagonal.
func (r *Renderer) scatterMatrix(df *frame.DataFrame, requested []string) ([]byte, error) {
	names, err := numericColumns(df, requested)
	if err != nil {
		return nil, err
	}
	if len(names) > r.cfg.ScatterMatrixMaxColumns {
		return nil, apierrors.Validation("columns", "scatter matrix supports at most %d columns, got %d",
			r.cfg.ScatterMatrixMaxColumns, len(names))
	}

	n := len(names)
	cellW := (r.cfg.Width - matrixMargin) / n
	cellH := (r.cfg.Height - matrixMargin) / n
	if cellW < 16 || cellH < 16 {
		return nil, apierrors.Validation("columns", "too many columns for a %dx%d canvas", r.cfg.Width, r.cfg.Height)
	}

	out := image.NewRGBA(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)

	cols := make([]*frame.Column, n)
	for i, name := range names {
		cols[i], _ = df.Col(name)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var cell chart.Chart
			var ok bool
			if i == j {
				cell, ok = histogramCell(cols[i].NonMissing())
			} else {
				cell, ok = scatterCell(cols[j], cols[i])
			}
			origin := image.Pt(matrixMargin+j*cellW, matrixMargin+i*cellH)
			if !ok {
				frameCell(out, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cellW, cellH))})
				continue
			}
			cell.Width, cell.Height, cell.Font = cellW, cellH, r.font
			img, err := renderCell(cell)
			if err != nil {
				return nil, fmt.Errorf("render scatter matrix cell %s/%s: %w", names[i], names[j], err)
			}
			draw.Draw(out, img.Bounds().Add(origin), img, img.Bounds().Min, draw.Over)
		}
	}

	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: out, Src: image.NewUniform(color.RGBA{R: 51, G: 51, B: 51, A: 255}), Face: face}
	maxChars := cellW / 7
	for j, name := range names {
		label := truncate(name, maxChars)
		w := dr.MeasureString(label).Ceil()
		dr.Dot = fixed.P(matrixMargin+j*cellW+(cellW-w)/2, matrixMargin-8)
		dr.DrawString(label)
	}
	for i, name := range names {
		label := truncate(name, 3)
		dr.Dot = fixed.P(2, matrixMargin+i*cellH+cellH/2+face.Metrics().Ascent.Ceil()/2)
		dr.DrawString(label)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellAxes() (chart.XAxis, chart.YAxis) {
	return chart.XAxis{Style: chart.Hidden()}, chart.YAxis{Style: chart.Hidden()}
}

func cellBackground() chart.Style {
	return chart.Style{
		Padding:     chart.Box{Top: 4, Left: 4, Right: 4, Bottom: 4},
		StrokeColor: chart.ColorLightGray,
		StrokeWidth: 1,
	}
}

func histogramCell(x []float64) (chart.Chart, bool) {
	if len(x) == 0 {
		return chart.Chart{}, false
	}
	edges, counts := sturgesBins(x)
	xs, ys := stepOutline(edges, counts)
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	xa, ya := cellAxes()
	xa.Range = &chart.ContinuousRange{Min: edges[0], Max: edges[len(edges)-1]}
	ya.Range = &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.1}
	return chart.Chart{
		Background: cellBackground(),
		XAxis:      xa,
		YAxis:      ya,
		Series: []chart.Series{chart.ContinuousSeries{
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 1,
				FillColor:   chart.ColorBlue.WithAlpha(96),
			},
			XValues: xs,
			YValues: ys,
		}},
	}, true
}

func scatterCell(xc, yc *frame.Column) (chart.Chart, bool) {
	var xs, ys []float64
	for k := range xc.Floats {
		if xc.IsMissing(k) || yc.IsMissing(k) {
			continue
		}
		xs = append(xs, xc.Floats[k])
		ys = append(ys, yc.Floats[k])
	}
	if len(xs) == 0 {
		return chart.Chart{}, false
	}
	xa, ya := cellAxes()
	xlo, xhi := minMax(xs)
	ylo, yhi := minMax(ys)
	xa.Range = paddedRange(xlo, xhi)
	ya.Range = paddedRange(ylo, yhi)
	return chart.Chart{
		Background: cellBackground(),
		XAxis:      xa,
		YAxis:      ya,
		Series: []chart.Series{chart.ContinuousSeries{
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColor:    chart.ColorBlue.WithAlpha(160),
			},
			XValues: xs,
			YValues: ys,
		}},
	}, true
}

func renderCell(c chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

func frameCell(dst *image.RGBA, rect image.Rectangle) {
	border := image.NewUniform(color.RGBA{R: 239, G: 239, B: 239, A: 255})
	for _, edge := range []image.Rectangle{
		{Min: rect.Min, Max: image.Pt(rect.Max.X, rect.Min.Y+1)},
		{Min: image.Pt(rect.Min.X, rect.Max.Y-1), Max: rect.Max},
		{Min: rect.Min, Max: image.Pt(rect.Min.X+1, rect.Max.Y)},
		{Min: image.Pt(rect.Max.X-1, rect.Min.Y), Max: rect.Max},
	} {
		draw.Draw(dst, edge, border, image.Point{}, draw.Src)
	}
}
