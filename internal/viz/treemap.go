package viz

import (
	"math"
	"sort"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	apierrors "dataviz-backend/internal/errors"
)

// tile is an axis-aligned rectangle in canvas units.
type tile struct {
	X, Y, W, H float64
}

// minExtent is the smallest side a rectangle may have and still be split.
const minExtent = 1e-9

func (t tile) degenerate() bool {
	return !(t.W > minExtent && t.H > minExtent) || math.IsInf(t.W, 0) || math.IsInf(t.H, 0)
}

// squarify lays out sizes, sorted in decreasing order and scaled so that they
// sum to area(r), as tiles with aspect ratios close to one.
func squarify(sizes []float64, r tile) []tile {
	if len(sizes) == 0 {
		return nil
	}
	if r.degenerate() {
		// nothing left to split; the remaining items get empty tiles
		out := make([]tile, len(sizes))
		for i := range out {
			out[i] = tile{X: r.X, Y: r.Y}
		}
		return out
	}
	if len(sizes) == 1 {
		return layoutStrip(sizes, r)
	}
	i := 1
	for i < len(sizes) && worstRatio(sizes[:i], r) >= worstRatio(sizes[:i+1], r) {
		i++
	}
	return append(layoutStrip(sizes[:i], r), squarify(sizes[i:], leftover(sizes[:i], r))...)
}

// layoutStrip stacks sizes along the shorter side of r.
func layoutStrip(sizes []float64, r tile) []tile {
	var covered float64
	for _, s := range sizes {
		covered += s
	}
	out := make([]tile, 0, len(sizes))
	if r.W >= r.H {
		width := covered / r.H
		y := r.Y
		for _, s := range sizes {
			out = append(out, tile{X: r.X, Y: y, W: width, H: s / width})
			y += s / width
		}
		return out
	}
	height := covered / r.W
	x := r.X
	for _, s := range sizes {
		out = append(out, tile{X: x, Y: r.Y, W: s / height, H: height})
		x += s / height
	}
	return out
}

func leftover(sizes []float64, r tile) tile {
	var covered float64
	for _, s := range sizes {
		covered += s
	}
	if r.W >= r.H {
		width := covered / r.H
		return tile{X: r.X + width, Y: r.Y, W: r.W - width, H: r.H}
	}
	height := covered / r.W
	return tile{X: r.X, Y: r.Y + height, W: r.W, H: r.H - height}
}

func worstRatio(sizes []float64, r tile) float64 {
	worst := 0.0
	for _, t := range layoutStrip(sizes, r) {
		worst = math.Max(worst, math.Max(t.W/t.H, t.H/t.W))
	}
	return worst
}

func validateTreeMap(values []float64, labels []string) error {
	if len(values) == 0 {
		return apierrors.Validation("values", "is required")
	}
	if len(labels) != len(values) {
		return apierrors.Validation("labels", "has %d entries but values has %d", len(labels), len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return apierrors.Validation("values", "entry %d must be a positive number", i)
		}
	}
	return nil
}

// treeMap draws values as nested rectangles with areas proportional to each value.
func (r *Renderer) treeMap(values []float64, labels []string) ([]byte, error) {
	if err := validateTreeMap(values, labels); err != nil {
		return nil, err
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	const top, pad = 40, 10
	area := tile{X: pad, Y: top, W: float64(r.cfg.Width - 2*pad), H: float64(r.cfg.Height - top - pad)}
	var total float64
	for _, v := range values {
		total += v
	}
	sizes := make([]float64, len(order))
	for k, i := range order {
		sizes[k] = values[i] / total * area.W * area.H
	}
	tiles := squarify(sizes, area)

	c, err := newCanvas(r.cfg.Width, r.cfg.Height, r.font)
	if err != nil {
		return nil, err
	}
	c.textCentered("Tree map", r.cfg.Width/2, top/2, 14, chart.ColorBlack)

	for k, t := range tiles {
		i := order[k]
		x0, y0 := clampRound(t.X, area.X, area.X+area.W), clampRound(t.Y, area.Y, area.Y+area.H)
		x1, y1 := clampRound(t.X+t.W, area.X, area.X+area.W), clampRound(t.Y+t.H, area.Y, area.Y+area.H)
		if x1-x0 < 1 || y1-y0 < 1 {
			continue
		}
		fill := paletteColor(k).WithAlpha(200)
		c.rect(x0, y0, x1, y1, fill, chart.ColorWhite)

		label := labels[i]
		value := strconv.FormatFloat(values[i], 'g', 6, 64)
		size := math.Max(7, math.Min(14, math.Min(float64(x1-x0), float64(y1-y0))/5))
		lb := c.measure(label, size)
		if lb.Width()+6 > x1-x0 || 2*lb.Height()+8 > y1-y0 {
			continue
		}
		cx, cy := (x0+x1)/2, (y0+y1)/2
		c.textCentered(label, cx, cy-lb.Height()/2-2, size, chart.ColorWhite)
		c.textCentered(value, cx, cy+lb.Height()/2+2, size, chart.ColorWhite)
	}
	return c.png()
}

// clampRound rounds v to a pixel inside [lo, hi]. Non-finite values clamp to lo.
func clampRound(v, lo, hi float64) int {
	if math.IsNaN(v) || math.IsInf(v, -1) {
		return int(lo)
	}
	return int(math.Round(math.Max(lo, math.Min(hi, v))))
}
