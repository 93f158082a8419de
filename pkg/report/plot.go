package report

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/telemetry"
)

const (
	shortHashLen = 8

	// emptyPoint is how echarts marks a gap in a line.
	emptyPoint = "-"

	fullZoomPct = 100
)

// PlotSink renders numeric metric results over the measured commits as an
// HTML line chart, oldest commit first.
type PlotSink struct {
	path  string
	title string
}

// NewPlotSink creates a PlotSink.
func NewPlotSink(path, title string) *PlotSink {
	return &PlotSink{path: path, title: title}
}

// Name implements Sink.
func (s *PlotSink) Name() string { return config.SinkPlot }

// Report implements Sink.
func (s *PlotSink) Report(_ context.Context, bundle Bundle) error {
	line := BuildChart(s.title, bundle.Results, bundle.Metrics)

	_, err := writeFile(s.path, func(w io.Writer) error {
		return line.Render(w)
	})

	return err
}

// BuildChart builds one series per metric that has at least one numeric value.
// Results arrive newest first and are plotted oldest first.
func BuildChart(title string, results []*metric.CommitResult, names []string) *charts.Line {
	measured := make([]*metric.CommitResult, 0, len(results))

	for _, res := range results {
		if res != nil {
			measured = append(measured, res)
		}
	}

	slices.Reverse(measured)

	labels := make([]string, len(measured))
	for i, res := range measured {
		labels[i] = pointLabel(res, i)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: strconv.Itoa(len(measured)) + " commits"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "5px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Commit"}),
	)
	line.SetXAxis(labels)

	for _, name := range names {
		data := make([]opts.LineData, len(measured))
		numeric := false

		for i, res := range measured {
			data[i] = opts.LineData{Value: emptyPoint}

			m, ok := res.Lookup(name)
			if !ok {
				continue
			}

			if v, ok := numericValue(m); ok {
				data[i] = opts.LineData{Value: v}
				numeric = true
			}
		}

		if numeric {
			line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(true)}))
		}
	}

	return line
}

func pointLabel(res *metric.CommitResult, i int) string {
	if len(res.Hash) >= shortHashLen {
		return res.Hash[:shortHashLen]
	}

	return "#" + strconv.Itoa(i)
}

// numericValue extracts a plottable number: the value itself, its "result"
// field when structured, or a coerced version string.
func numericValue(m metric.Result) (float64, bool) {
	value := m.Value
	if nested, ok := m.Structured(); ok {
		value = nested[telemetry.FieldResult]
	}

	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	case string:
		if strings.Contains(m.Name, "Version") {
			return telemetry.CoerceVersion(v)
		}
	}

	return 0, false
}
