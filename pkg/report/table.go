package report

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
)

// missingCell marks a metric without a value.
const missingCell = "-"

const repositoryHeader = "Repository"

// Table builds the results table: one row per measured commit, one column per
// metric. Absent commits produce no row.
func Table(results []*metric.CommitResult, names []string) table.Writer {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault

	tw := table.NewWriter()
	tw.SetStyle(style)

	header := make(table.Row, 0, len(names)+1)
	header = append(header, repositoryHeader)

	for _, name := range names {
		header = append(header, name)
	}

	tw.AppendHeader(header)

	for _, res := range results {
		if res == nil {
			continue
		}

		row := make(table.Row, 0, len(names)+1)
		row = append(row, res.Repository)

		for _, name := range names {
			m, ok := res.Lookup(name)
			if !ok {
				row = append(row, missingCell)

				continue
			}

			row = append(row, FormatValue(m.Value))
		}

		tw.AppendRow(row)
	}

	return tw
}

// RenderTable renders the results table as text.
func RenderTable(results []*metric.CommitResult, names []string) string {
	return Table(results, names).Render()
}

// FormatValue renders one table cell.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return missingCell
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool, int, int64, json.Number:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	}
}
