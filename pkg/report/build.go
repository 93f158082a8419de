package report

import (
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
)

// BuildSinks creates the sinks listed in cfg.Active, in dispatch order.
// ingester backs the telemetry sink; out receives the console table.
func BuildSinks(cfg config.ReportersConfig, ingester Ingester, out io.Writer, logger *slog.Logger) []Sink {
	var sinks []Sink

	for _, name := range config.KnownSinks {
		if !cfg.IsActive(name) {
			continue
		}

		switch name {
		case config.SinkConsole:
			sinks = append(sinks, NewConsoleSink(out))
		case config.SinkJSON:
			sinks = append(sinks, NewJSONSink(cfg.JSON.OutputFile, cfg.JSON.Compress, logger))
		case config.SinkFormattedFile:
			sinks = append(sinks, NewFormattedFileSink(cfg.FormattedFile))
		case config.SinkPlot:
			sinks = append(sinks, NewPlotSink(cfg.Plot.OutputFile, cfg.Plot.Title))
		case config.SinkTelemetry:
			if ingester != nil {
				sinks = append(sinks, NewTelemetrySink(ingester))
			}
		}
	}

	return sinks
}
