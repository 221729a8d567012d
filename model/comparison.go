package model

import "sort"

// ComparisonRow - Per channel and day comparison of first-click against
// last-click credit. Diff columns are last minus first. PctShift is nil when
// first-click revenue is zero, so no-baseline rows are distinguishable from
// a genuine zero shift.
type ComparisonRow struct {
	Channel               string   `json:"channel"`
	Day                   string   `json:"day"`
	FirstClickConversions int64    `json:"first_click_conversions"`
	FirstClickRevenue     float64  `json:"first_click_revenue"`
	LastClickConversions  int64    `json:"last_click_conversions"`
	LastClickRevenue      float64  `json:"last_click_revenue"`
	ConversionsDiff       int64    `json:"conversions_diff"`
	RevenueDiff           float64  `json:"revenue_diff"`
	PctShift              *float64 `json:"pct_shift"`
}

type comparisonKey struct {
	channel string
	day     string
}

// BuildComparison - Full outer join of the two model outputs on
// (channel, conversion day). A channel-day credited under only one model
// still gets a row, with zeros on the absent side. Output sorted by day
// then channel for stable presentation.
func BuildComparison(firstClick, lastClick []AttributionRecord) []ComparisonRow {
	rowsByKey := make(map[comparisonKey]*ComparisonRow)

	rowFor := func(record AttributionRecord) *ComparisonRow {
		key := comparisonKey{channel: record.Channel, day: record.ConversionDay}
		row, exists := rowsByKey[key]
		if !exists {
			row = &ComparisonRow{Channel: record.Channel, Day: record.ConversionDay}
			rowsByKey[key] = row
		}
		return row
	}

	for _, record := range firstClick {
		row := rowFor(record)
		row.FirstClickConversions++
		row.FirstClickRevenue += record.Value
	}
	for _, record := range lastClick {
		row := rowFor(record)
		row.LastClickConversions++
		row.LastClickRevenue += record.Value
	}

	rows := make([]ComparisonRow, 0, len(rowsByKey))
	for _, row := range rowsByKey {
		row.ConversionsDiff = row.LastClickConversions - row.FirstClickConversions
		row.RevenueDiff = row.LastClickRevenue - row.FirstClickRevenue
		if row.FirstClickRevenue != 0 {
			pctShift := (row.RevenueDiff / row.FirstClickRevenue) * 100
			row.PctShift = &pctShift
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day < rows[j].Day
		}
		return rows[i].Channel < rows[j].Channel
	})
	return rows
}

// ExecuteComparisonQuery - Runs the pipeline once and joins both model
// outputs. Reuses the single traversal instead of querying twice.
func ExecuteComparisonQuery(query *AttributionQuery) ([]ComparisonRow, *PipelineStats, error) {
	query.Models = []string{AttributionModelFirstClick, AttributionModelLastClick}
	if err := query.validate(); err != nil {
		return nil, nil, err
	}
	result, err := runQueryPipeline(query)
	if err != nil {
		return nil, nil, err
	}
	rows := BuildComparison(result.Records[AttributionModelFirstClick],
		result.Records[AttributionModelLastClick])
	return rows, &result.Stats, nil
}
