package qc

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// TrendPoint is one QC metric sample plotted against its owning frame.
type TrendPoint struct {
	Label string // frame identifier (e.g. file name or MJD-OBS)
	Value float64
}

// TrendReport renders a named QC metric's history across a set-of-frames
// as an HTML line chart, a diagnostic not required by any recipe but
// useful for spotting drift across a night's calibrations.
func TrendReport(w io.Writer, metricName string, points []TrendPoint) error {
	if len(points) == 0 {
		return kind.New(kind.IllegalInput, "trend report requires at least one point")
	}
	x := make([]string, len(points))
	y := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = p.Label
		y[i] = opts.LineData{Value: p.Value}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: metricName + " trend"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).AddSeries(metricName, y)

	if err := line.Render(w); err != nil {
		return kind.Wrap(kind.FileIO, err, "rendering trend report for %s", metricName)
	}
	return nil
}
