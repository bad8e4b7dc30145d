package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dataviz-backend/internal/transform"
	"dataviz-backend/internal/viz"
)

func (c *cli) statsCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print descriptive statistics, a preview and the cleaning report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, report, err := c.load(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("rows") {
				rows = c.cfg.Analysis.PreviewRows
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"columns":    df.Names(),
				"rows":       df.Len(),
				"preview":    transform.Preview(df, rows),
				"statistics": transform.Describe(df),
				"cleaning":   report,
			})
		},
	}
	cmd.Flags().IntVar(&rows, "rows", transform.DefaultPreviewRows, "preview rows")
	return cmd
}

func (c *cli) chartCmd() *cobra.Command {
	var (
		kind   string
		out    string
		params viz.Params
	)
	cmd := &cobra.Command{
		Use:   "chart <file>",
		Short: "Render a chart to a PNG file",
		Long: "Render one of: histogram, scatter, line, pie, box, heatmap, scatter_matrix, tree_map, dendrogram.\n" +
			"tree_map takes --values and --labels and ignores the file.",
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := viz.ParseKind(kind)
			if err != nil {
				return err
			}
			renderer, err := viz.NewRenderer(c.cfg.VizConfig(), c.logger)
			if err != nil {
				return err
			}
			if k.NeedsData() && len(args) == 0 {
				return fmt.Errorf("%s needs a data file", k)
			}
			var img []byte
			if k.NeedsData() {
				df, _, err := c.load(args[0])
				if err != nil {
					return err
				}
				img, err = renderer.Render(k, df, params)
				if err != nil {
					return err
				}
			} else if img, err = renderer.Render(k, nil, params); err != nil {
				return err
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(img))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&kind, "type", "t", "", "chart type")
	f.StringVarP(&out, "out", "o", "chart.png", "output PNG path")
	f.StringVar(&params.Column, "column", "", "column for histogram, pie, box and dendrogram")
	f.StringVar(&params.XColumn, "x", "", "x column for scatter and line")
	f.StringVar(&params.YColumn, "y", "", "y column for scatter and line")
	f.StringSliceVar(&params.Columns, "columns", nil, "numeric columns for heatmap and scatter_matrix")
	f.Float64SliceVar(&params.Values, "values", nil, "tree map sizes")
	f.StringSliceVar(&params.Labels, "labels", nil, "tree map labels")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (c *cli) regressCmd() *cobra.Command {
	var (
		x []string
		y string
	)
	cmd := &cobra.Command{
		Use:   "regress <file>",
		Short: "Fit an ordinary least squares regression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, _, err := c.load(args[0])
			if err != nil {
				return err
			}
			result, err := c.analyzer().Regression(df, x, y)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringSliceVar(&x, "x", nil, "predictor columns")
	cmd.Flags().StringVar(&y, "y", "", "response column")
	return cmd
}

func (c *cli) forecastCmd() *cobra.Command {
	var (
		column    string
		periods   int
		decompose bool
	)
	cmd := &cobra.Command{
		Use:   "forecast <file>",
		Short: "Forecast a column with ARIMA and optionally decompose it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, _, err := c.load(args[0])
			if err != nil {
				return err
			}
			var dec *bool
			if cmd.Flags().Changed("decompose") {
				dec = &decompose
			}
			result, err := c.analyzer().TimeSeries(df, column, periods, dec)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&column, "column", "c", "", "series column, rows in chronological order")
	cmd.Flags().IntVarP(&periods, "periods", "n", 1, "forecast horizon")
	cmd.Flags().BoolVar(&decompose, "decompose", false, "force seasonal decomposition on or off")
	return cmd
}

func (c *cli) aggregateCmd() *cobra.Command {
	var (
		groupBy []string
		column  string
		fn      string
	)
	cmd := &cobra.Command{
		Use:   "aggregate <file>",
		Short: "Aggregate a column by one or more group columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, _, err := c.load(args[0])
			if err != nil {
				return err
			}
			result, err := c.analyzer().Aggregate(df, groupBy, column, fn)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringSliceVarP(&groupBy, "group-by", "g", nil, "group columns")
	cmd.Flags().StringVarP(&column, "column", "c", "", "aggregated column")
	cmd.Flags().StringVarP(&fn, "func", "f", "mean", "mean, sum or count")
	return cmd
}

func (c *cli) rescaleCmd() *cobra.Command {
	var (
		method  string
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "rescale <file>",
		Short: "Standardize or normalize numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, _, err := c.load(args[0])
			if err != nil {
				return err
			}
			out, err := c.analyzer().Rescale(df, method, columns)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.ColumnMap())
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "standardize or normalize")
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "columns to rescale")
	return cmd
}
