package viz

import (
	"bytes"
	"math"
	"sort"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"dataviz-backend/internal/frame"
)

// canvas draws free-form shapes on a go-chart raster renderer.
type canvas struct {
	r    chart.Renderer
	font *truetype.Font
	w, h int
}

func newCanvas(w, h int, font *truetype.Font) (*canvas, error) {
	r, err := chart.PNG(w, h)
	if err != nil {
		return nil, err
	}
	c := &canvas{r: r, font: font, w: w, h: h}
	c.rect(0, 0, w, h, chart.ColorWhite, drawing.Color{})
	return c, nil
}

func (c *canvas) rect(x0, y0, x1, y1 int, fill, stroke drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.LineTo(x0, y0)
	c.r.Close()
	if stroke.IsZero() {
		c.r.Fill()
		return
	}
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.FillStroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, color drawing.Color, width float64) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(color)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

// textCentered draws s centred on (x, y).
func (c *canvas) textCentered(s string, x, y int, size float64, color drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFont(c.font)
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	box := c.r.MeasureText(s)
	c.r.Text(s, x-box.Width()/2, y+box.Height()/2)
}

// textRight draws s right-aligned at x and vertically centred on y.
func (c *canvas) textRight(s string, x, y int, size float64, color drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFont(c.font)
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	box := c.r.MeasureText(s)
	c.r.Text(s, x-box.Width(), y+box.Height()/2)
}

func (c *canvas) measure(s string, size float64) chart.Box {
	c.r.ResetStyle()
	c.r.SetFont(c.font)
	c.r.SetFontSize(size)
	return c.r.MeasureText(s)
}

func (c *canvas) png() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.r.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// coolwarm interpolates a diverging blue-white-red scale over v in [-1, 1].
func coolwarm(v float64) drawing.Color {
	if math.IsNaN(v) {
		return chart.ColorLightGray
	}
	v = math.Max(-1, math.Min(1, v))
	blue := drawing.Color{R: 59, G: 76, B: 192, A: 255}
	white := drawing.Color{R: 221, G: 221, B: 221, A: 255}
	red := drawing.Color{R: 180, G: 4, B: 38, A: 255}
	if v < 0 {
		return mix(white, blue, -v)
	}
	return mix(white, red, v)
}

func mix(a, b drawing.Color, t float64) drawing.Color {
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// textColorFor picks black or white text for legibility on bg.
func textColorFor(bg drawing.Color) drawing.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma < 128 {
		return chart.ColorWhite
	}
	return chart.ColorBlack
}

func paletteColor(i int) drawing.Color {
	return chart.DefaultColors[i%len(chart.DefaultColors)]
}

// valueCount is one distinct value of a column and its frequency.
type valueCount struct {
	Label string
	Count int
}

// valueCounts counts the present values of col, most frequent first and ties by label.
func valueCounts(col *frame.Column) []valueCount {
	counts := make(map[string]int)
	for i := 0; i < col.Len(); i++ {
		if !col.IsMissing(i) {
			counts[col.Key(i)]++
		}
	}
	out := make([]valueCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, valueCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// paddedRange widens [lo, hi] by 5% on each side, or by one unit when it is empty.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if hi <= lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func minMax(x []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}
