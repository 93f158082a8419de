// Package telemetry ships metric results to a document store with an
// Elasticsearch-compatible HTTP API.
package telemetry

import (
	"maps"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
)

// Document field names.
const (
	FieldProject   = "project"
	FieldMetric    = "metric"
	FieldTimestamp = "timestamp"
	FieldHash      = "hash"
	FieldResult    = "result"
)

const metricFieldPrefix = "frontend_"

// versionMarker selects metrics whose string result is coerced to major.minor.
const versionMarker = "Version"

// leadingFloat matches what a lenient float parse accepts at the start of a string.
var leadingFloat = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)`)

// MetricField returns the document "metric" value, e.g.
// "Framework Version" -> "frontend_framework_version".
func MetricField(name string) string {
	return metricFieldPrefix + strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// IndexName returns the index a metric is stored in, e.g.
// ("fe", "Framework Version") -> "fe-framework-version".
func IndexName(prefix, name string) string {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	if prefix == "" {
		return slug
	}

	return prefix + "-" + slug
}

// BuildDocument converts one metric result of a commit into a document.
// Structured results are merged into the document; anything else is stored
// under "result".
func BuildDocument(project string, res metric.Result, ts time.Time, hash string) map[string]any {
	doc := map[string]any{
		FieldProject:   project,
		FieldMetric:    MetricField(res.Name),
		FieldTimestamp: ts,
		FieldHash:      hash,
	}

	if nested, ok := res.Structured(); ok {
		maps.Copy(doc, nested)
	} else {
		doc[FieldResult] = res.Value
	}

	if strings.Contains(res.Name, versionMarker) {
		if raw, ok := doc[FieldResult].(string); ok {
			if coerced, ok := CoerceVersion(raw); ok {
				doc[FieldResult] = coerced
			}
		}
	}

	return doc
}

// CoerceVersion compresses a declared version to a major.minor float:
// "^3.14.1" -> 3.14. The conversion is lossy ("1.10" and "1.1" collide) and
// kept for existing dashboards. ok is false when no number can be read, in
// which case callers keep the original string.
func CoerceVersion(raw string) (float64, bool) {
	parts := strings.Split(strings.TrimPrefix(raw, "^"), ".")

	candidate := parts[0]
	if len(parts) > 1 {
		candidate += "." + parts[1]
	}

	match := leadingFloat.FindString(candidate)
	if match == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(match), 64)
	if err != nil {
		return 0, false
	}

	return value, true
}
