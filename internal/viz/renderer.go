// Package viz renders datasets into PNG charts.
package viz

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// Kind selects a chart type.
type Kind string

// Supported chart kinds.
const (
	KindHistogram     Kind = "histogram"
	KindScatter       Kind = "scatter"
	KindLine          Kind = "line"
	KindPie           Kind = "pie"
	KindBox           Kind = "box"
	KindHeatmap       Kind = "heatmap"
	KindScatterMatrix Kind = "scatter_matrix"
	KindTreeMap       Kind = "tree_map"
	KindDendrogram    Kind = "dendrogram"
)

var kinds = []Kind{
	KindHistogram, KindScatter, KindLine, KindPie, KindBox,
	KindHeatmap, KindScatterMatrix, KindTreeMap, KindDendrogram,
}

// Kinds returns every supported chart kind.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind validates a chart type name.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	if s == "" {
		return "", apierrors.Validation("chartType", "is required, expected one of %s", strings.Join(names, ", "))
	}
	return "", apierrors.Validation("chartType", "unsupported chart type %q, expected one of %s", s, strings.Join(names, ", "))
}

// NeedsData reports whether the kind draws from a dataset.
func (k Kind) NeedsData() bool {
	return k != KindTreeMap
}

// Params carries the kind-specific chart inputs.
type Params struct {
	Column  string
	XColumn string
	YColumn string
	Columns []string
	Values  []float64
	Labels  []string
}

// Config holds the rendering settings.
type Config struct {
	Width                   int
	Height                  int
	FontPath                string
	ScatterMatrixMaxColumns int
	DendrogramMaxLeaves     int
}

// DefaultConfig returns a 1000x600 canvas with the built-in font.
func DefaultConfig() Config {
	return Config{
		Width:                   1000,
		Height:                  600,
		ScatterMatrixMaxColumns: 8,
		DendrogramMaxLeaves:     2000,
	}
}

// Renderer draws charts with a fixed size and font.
type Renderer struct {
	cfg    Config
	font   *truetype.Font
	logger *slog.Logger
}

// NewRenderer loads the configured font and returns a Renderer.
func NewRenderer(cfg Config, logger *slog.Logger) (*Renderer, error) {
	def := DefaultConfig()
	if cfg.Width <= 0 {
		cfg.Width = def.Width
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.ScatterMatrixMaxColumns <= 0 {
		cfg.ScatterMatrixMaxColumns = def.ScatterMatrixMaxColumns
	}
	if cfg.DendrogramMaxLeaves <= 0 {
		cfg.DendrogramMaxLeaves = def.DendrogramMaxLeaves
	}

	font, err := loadFont(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		cfg:    cfg,
		font:   font,
		logger: logger.With(slog.String("component", "viz")),
	}, nil
}

func loadFont(path string) (*truetype.Font, error) {
	if path == "" {
		return chart.GetDefaultFont()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	font, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return font, nil
}

// Render draws a chart of the given kind and returns the PNG bytes.
// df may be nil for kinds that do not need a dataset.
func (r *Renderer) Render(kind Kind, df *frame.DataFrame, p Params) ([]byte, error) {
	if kind.NeedsData() && df == nil {
		return nil, apierrors.Validation("data", "is required for %s charts", kind)
	}

	var (
		img []byte
		err error
	)
	switch kind {
	case KindHistogram:
		img, err = r.histogram(df, p.Column)
	case KindScatter:
		img, err = r.xy(df, p.XColumn, p.YColumn, false)
	case KindLine:
		img, err = r.xy(df, p.XColumn, p.YColumn, true)
	case KindPie:
		img, err = r.pie(df, p.Column)
	case KindBox:
		img, err = r.box(df, p.Column)
	case KindHeatmap:
		img, err = r.heatmap(df, p.Columns)
	case KindScatterMatrix:
		img, err = r.scatterMatrix(df, p.Columns)
	case KindTreeMap:
		img, err = r.treeMap(p.Values, p.Labels)
	case KindDendrogram:
		img, err = r.dendrogram(df, p.Column)
	default:
		_, err = ParseKind(string(kind))
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("chart rendered", slog.String("kind", string(kind)), slog.Int("bytes", len(img)))
	return img, nil
}

// RenderBase64 renders a chart and encodes the PNG as standard base64.
func (r *Renderer) RenderBase64(kind Kind, df *frame.DataFrame, p Params) (string, error) {
	img, err := r.Render(kind, df, p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(img), nil
}

func encodePNG(kind Kind, render func(chart.RendererProvider, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) column(df *frame.DataFrame, field, name string) (*frame.Column, error) {
	if name == "" {
		return nil, apierrors.Validation(field, "is required")
	}
	col, ok := df.Col(name)
	if !ok {
		return nil, apierrors.InvalidColumns("columns not found", name)
	}
	return col, nil
}

// numericColumns resolves an explicit column list or every numeric column.
func numericColumns(df *frame.DataFrame, requested []string) ([]string, error) {
	if len(requested) > 0 {
		if err := df.RequireNumeric(requested...); err != nil {
			return nil, err
		}
		return requested, nil
	}
	names := df.NumericNames()
	if len(names) == 0 {
		return nil, apierrors.Validation("columns", "dataset has no numeric columns")
	}
	return names, nil
}
