package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/config"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755

	lz4Ext = ".lz4"
)

// JSONSink dumps the raw result sequence, optionally lz4-compressed.
type JSONSink struct {
	path     string
	compress bool
	logger   *slog.Logger
}

// NewJSONSink creates a JSONSink. With compress the output is an lz4 frame
// and path gets a .lz4 suffix.
func NewJSONSink(path string, compress bool, logger *slog.Logger) *JSONSink {
	if compress && !strings.HasSuffix(path, lz4Ext) {
		path += lz4Ext
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &JSONSink{path: path, compress: compress, logger: logger}
}

// Name implements Sink.
func (s *JSONSink) Name() string { return config.SinkJSON }

// Path returns the output file path.
func (s *JSONSink) Path() string { return s.path }

// Report implements Sink.
func (s *JSONSink) Report(ctx context.Context, bundle Bundle) error {
	data, err := json.MarshalIndent(bundle.Results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	written, err := writeFile(s.path, func(w io.Writer) error {
		if !s.compress {
			_, writeErr := w.Write(data)

			return writeErr
		}

		zw := lz4.NewWriter(w)

		_, writeErr := zw.Write(data)
		if writeErr != nil {
			return writeErr
		}

		return zw.Close()
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "json report written",
		"path", s.path,
		"size", humanize.Bytes(uint64(written)),
		"raw_size", humanize.Bytes(uint64(len(data))),
		"compressed", s.compress)

	return nil
}

// FormattedFileSink writes the results table as text.
type FormattedFileSink struct {
	path string
}

// NewFormattedFileSink creates a FormattedFileSink.
func NewFormattedFileSink(path string) *FormattedFileSink {
	return &FormattedFileSink{path: path}
}

// Name implements Sink.
func (s *FormattedFileSink) Name() string { return config.SinkFormattedFile }

// Report implements Sink.
func (s *FormattedFileSink) Report(_ context.Context, bundle Bundle) error {
	text := RenderTable(bundle.Results, bundle.Metrics) + "\n"

	_, err := writeFile(s.path, func(w io.Writer) error {
		_, writeErr := io.WriteString(w, text)

		return writeErr
	})

	return err
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}

// writeFile creates path (and its directory) and fills it with fill.
func writeFile(path string, fill func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}

	cw := &countingWriter{w: f}

	err = fill(cw)
	if err != nil {
		f.Close()

		return cw.n, fmt.Errorf("write %s: %w", path, err)
	}

	err = f.Close()
	if err != nil {
		return cw.n, fmt.Errorf("close %s: %w", path, err)
	}

	return cw.n, nil
}
