package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/gitlib"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
)

// Commit dates never change, so cached entries only expire to bound memory.
const (
	dateCacheTTL     = 30 * time.Minute
	dateCacheCleanup = 10 * time.Minute
)

// ErrIngestFailed is returned when at least one document was not delivered.
var ErrIngestFailed = errors.New("ingestion incomplete")

// DateSource resolves commit timestamps, normally a *gitlib.Repository.
type DateSource interface {
	CommitTime(hash gitlib.Hash) (time.Time, error)
}

// Recorder receives per-document delivery counters.
type Recorder interface {
	DocumentIngested(ctx context.Context)
	DocumentFailed(ctx context.Context)
}

// Stats summarizes one ingestion pass.
type Stats struct {
	Sent    int
	Failed  int
	Skipped int
}

// Err returns ErrIngestFailed when documents were lost.
func (s Stats) Err() error {
	if s.Failed == 0 {
		return nil
	}

	return fmt.Errorf("%w: %d of %d documents failed", ErrIngestFailed, s.Failed, s.Sent+s.Failed)
}

// IngesterOptions configures an Ingester.
type IngesterOptions struct {
	IndexPrefix string
	// MaxConcurrency bounds in-flight posts. Zero means unbounded; the rate
	// limiter still paces them.
	MaxConcurrency int
	Logger         *slog.Logger
	Recorder       Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Ingester turns commit results into documents and posts them, one per metric
// per measured commit. Delivery is at most once: failures are logged and
// counted, never retried.
type Ingester struct {
	client      *Client
	prefix      string
	concurrency int
	logger      *slog.Logger
	recorder    Recorder
	now         func() time.Time
	dates       *cache.Cache
}

// NewIngester creates an Ingester.
func NewIngester(client *Client, opts IngesterOptions) *Ingester {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Ingester{
		client:      client,
		prefix:      opts.IndexPrefix,
		concurrency: opts.MaxConcurrency,
		logger:      logger,
		recorder:    opts.Recorder,
		now:         now,
		dates:       cache.New(dateCacheTTL, dateCacheCleanup),
	}
}

type pending struct {
	index string
	doc   map[string]any
}

// Ingest posts every document for results and waits for all posts to finish.
// When source is nil every document is stamped with the current time;
// otherwise with the commit's date, falling back to the current time.
// A metric that failed to measure (nil value) produces no document and is
// counted in Stats.Skipped.
func (i *Ingester) Ingest(ctx context.Context, results []*metric.CommitResult, source DateSource) Stats {
	var stats Stats

	docs := make([]pending, 0, len(results))

	for _, res := range results {
		if res == nil {
			continue
		}

		ts := i.timestamp(ctx, source, res.Hash)

		for _, m := range res.Metrics {
			if m.Value == nil {
				stats.Skipped++

				continue
			}

			docs = append(docs, pending{
				index: IndexName(i.prefix, m.Name),
				doc:   BuildDocument(res.Repository, m, ts, res.Hash),
			})
		}
	}

	var sent, failed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	if i.concurrency > 0 {
		group.SetLimit(i.concurrency)
	}

	for _, p := range docs {
		group.Go(func() error {
			err := i.client.IndexDocument(groupCtx, p.index, p.doc)
			if err != nil {
				failed.Add(1)
				i.recordFailed(groupCtx)
				i.logger.ErrorContext(groupCtx, "document not ingested",
					"index", p.index, "hash", p.doc[FieldHash], "error", err)

				return nil
			}

			sent.Add(1)
			i.recordIngested(groupCtx)
			i.logger.DebugContext(groupCtx, "document ingested", "index", p.index)

			return nil
		})
	}

	_ = group.Wait()

	stats.Sent = int(sent.Load())
	stats.Failed = int(failed.Load())

	i.logger.InfoContext(ctx, "ingestion pass finished",
		"sent", stats.Sent, "failed", stats.Failed, "skipped", stats.Skipped)

	return stats
}

func (i *Ingester) timestamp(ctx context.Context, source DateSource, hash string) time.Time {
	if source == nil || hash == "" {
		return i.now()
	}

	if cached, ok := i.dates.Get(hash); ok {
		if ts, isTime := cached.(time.Time); isTime {
			return ts
		}
	}

	parsed, err := gitlib.ParseHash(hash)
	if err != nil {
		i.logger.WarnContext(ctx, "cannot resolve commit date", "hash", hash, "error", err)

		return i.now()
	}

	ts, err := source.CommitTime(parsed)
	if err != nil || ts.IsZero() {
		i.logger.WarnContext(ctx, "cannot resolve commit date", "hash", hash, "error", err)

		return i.now()
	}

	i.dates.SetDefault(hash, ts)

	return ts
}

func (i *Ingester) recordIngested(ctx context.Context) {
	if i.recorder != nil {
		i.recorder.DocumentIngested(ctx)
	}
}

func (i *Ingester) recordFailed(ctx context.Context) {
	if i.recorder != nil {
		i.recorder.DocumentFailed(ctx)
	}
}
