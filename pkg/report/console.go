package report

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
)

// ConsoleSink prints the results table.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink creates a ConsoleSink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Name implements Sink.
func (s *ConsoleSink) Name() string { return config.SinkConsole }

// Report implements Sink.
func (s *ConsoleSink) Report(_ context.Context, bundle Bundle) error {
	title := "Frontend metrics"
	if bundle.Repo != nil {
		title += ": " + bundle.Repo.Label
	}

	_, err := color.New(color.FgCyan, color.Bold).Fprintln(s.w, title)
	if err != nil {
		return fmt.Errorf("write console: %w", err)
	}

	_, err = fmt.Fprintln(s.w, RenderTable(bundle.Results, bundle.Metrics))
	if err != nil {
		return fmt.Errorf("write console: %w", err)
	}

	return nil
}
