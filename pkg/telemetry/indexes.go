package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
)

// Index creation retry policy.
const (
	indexAttempts   = 3
	indexRetryDelay = 500 * time.Millisecond
)

// alreadyExists is the error type the store reports for an existing index.
const alreadyExists = "resource_already_exists_exception"

// baseFields are mapped in every metric index.
func baseFields() map[string]any {
	return map[string]any{
		FieldMetric:    map[string]any{"type": "keyword"},
		FieldProject:   map[string]any{"type": "keyword"},
		FieldTimestamp: map[string]any{"type": "date"},
		FieldHash:      map[string]any{"type": "keyword"},
	}
}

// IndexMapping returns the index body for a metric: the base fields merged
// with the metric's schema. Schema fields override base fields of the same
// name.
func IndexMapping(schema metric.Schema) map[string]any {
	properties := baseFields()

	fields := make(map[string]any, len(schema))
	for name, field := range schema {
		fields[name] = map[string]any{"type": field.Type}
	}

	maps.Copy(properties, fields)

	return map[string]any{
		"mappings": map[string]any{"properties": properties},
	}
}

// CreateIndexes creates one index per registered metric. Server errors are
// retried; an index that already exists counts as created. Every metric is
// attempted and the failures are returned together.
func CreateIndexes(
	ctx context.Context, client *Client, prefix string, registry *metric.Registry, logger *slog.Logger,
) error {
	if logger == nil {
		logger = slog.Default()
	}

	var result *multierror.Error

	for _, m := range registry.Metrics() {
		name := m.Info().Name
		index := IndexName(prefix, name)
		body := IndexMapping(m.Schema())

		err := retry.Do(
			func() error {
				return client.CreateIndex(ctx, index, body)
			},
			retry.Context(ctx),
			retry.Attempts(indexAttempts),
			retry.Delay(indexRetryDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(isRetryable),
			retry.OnRetry(func(attempt uint, err error) {
				logger.WarnContext(ctx, "index creation failed, retrying",
					"index", index, "attempt", attempt+1, "error", err)
			}),
		)

		switch {
		case err == nil:
			logger.InfoContext(ctx, "index created", "index", index, "metric", name)
		case isAlreadyExists(err):
			logger.InfoContext(ctx, "index already exists", "index", index, "metric", name)
		default:
			logger.ErrorContext(ctx, "index not created", "index", index, "metric", name, "error", err)
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func isAlreadyExists(err error) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) && strings.Contains(statusErr.Body, alreadyExists)
}
