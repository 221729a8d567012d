package model

import (
	"net/http"
	"sort"

	U "attribution/util"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// AttributionQuery - One attribution run over a date range. From/To are unix
// seconds, inclusive. Lookback and conversion types override the configured
// defaults per query.
type AttributionQuery struct {
	From                 int64    `json:"from"`
	To                   int64    `json:"to"`
	LookbackDays         int      `json:"lookback_days"`
	ConversionEventTypes []string `json:"conversion_event_types"`
	Models               []string `json:"models"`
}

// QueryResult - Tabular result for the query API, headers plus rows.
type QueryResult struct {
	Headers []string        `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
	Stats   PipelineStats   `json:"stats"`
}

// PipelineResult - Full output of one pure pipeline run.
type PipelineResult struct {
	Touchpoints []Touchpoint
	Journeys    []Journey
	// model name -> one record per conversion.
	Records map[string][]AttributionRecord
	Stats   PipelineStats
}

func (query *AttributionQuery) withDefaults() {
	if len(query.Models) == 0 {
		query.Models = []string{AttributionModelFirstClick, AttributionModelLastClick}
	}
}

func (query *AttributionQuery) validate() error {
	if query.From <= 0 || query.To <= 0 || query.From > query.To {
		return errors.New("invalid query time range")
	}
	for _, model := range query.Models {
		if !IsValidAttributionModel(model) {
			return errors.Errorf("invalid attribution model %s", model)
		}
	}
	return nil
}

// GetQueryCacheHashString - Stable hash of the query for result caching.
func (query *AttributionQuery) GetQueryCacheHashString() (string, error) {
	return U.GenerateHashStringForStruct(query)
}

func (query *AttributionQuery) pipelineConfig() PipelineConfig {
	return PipelineConfig{
		LookbackDays:         query.LookbackDays,
		ConversionEventTypes: query.ConversionEventTypes,
	}.WithDefaults()
}

// lookbackAdjustedFrom - Effective batch start so touchpoints preceding the
// query range stay eligible for conversions early in the range.
func lookbackAdjustedFrom(from int64, lookbackDays int) int64 {
	if lookbackDays > LookbackCapInDays {
		lookbackDays = LookbackCapInDays
	}
	return from - int64(lookbackDays)*U.SecsInADay
}

// RunAttribution - Pure single-pass batch computation over an immutable
// event batch: normalize, collapse touchpoints, extract conversions inside
// [convFrom, convTo] (micros), build journeys, apply every requested model.
// Stateless and deterministic, no shared mutable state.
func RunAttribution(events []Event, models []string, config PipelineConfig,
	convFrom, convTo, processingTime int64) PipelineResult {

	normalized, stats := NormalizeBatch(events, config, processingTime)
	touchpoints := BuildTouchpoints(normalized)
	stats.Touchpoints = int64(len(touchpoints))

	conversions := ExtractConversions(normalized, config, &stats)
	if convFrom > 0 || convTo > 0 {
		inRange := conversions[:0]
		for _, conversion := range conversions {
			if conversion.Timestamp >= convFrom && conversion.Timestamp <= convTo {
				inRange = append(inRange, conversion)
			}
		}
		conversions = inRange
		stats.Conversions = int64(len(conversions))
	}

	journeys := BuildJourneys(conversions, touchpoints, &stats)

	records := make(map[string][]AttributionRecord, len(models))
	for _, model := range models {
		records[model] = ApplyAttributionBatch(model, journeys)
	}

	return PipelineResult{
		Touchpoints: touchpoints,
		Journeys:    journeys,
		Records:     records,
		Stats:       stats,
	}
}

/* Executes the attribution query using following steps:
1. Fetch the event batch for the range extended backwards by the lookback
   window, so early conversions still see their touchpoints
2. Run the pure pipeline: normalize -> touchpoints -> conversions -> journeys
3. Apply every requested attribution model
4. Aggregate records per channel into the tabular result
*/
func ExecuteAttributionQuery(query *AttributionQuery) (*QueryResult, error) {
	query.withDefaults()
	if err := query.validate(); err != nil {
		return nil, err
	}
	result, err := runQueryPipeline(query)
	if err != nil {
		return nil, err
	}
	queryResult := buildQueryResult(result, query.Models)
	queryResult.Stats = result.Stats
	return queryResult, nil
}

// Fetches the event batch for the lookback-extended range and runs the
// pure pipeline on it.
func runQueryPipeline(query *AttributionQuery) (*PipelineResult, error) {
	config := query.pipelineConfig()
	logCtx := log.WithFields(log.Fields{"from": query.From, "to": query.To,
		"lookback_days": config.LookbackDays})

	batchFrom := lookbackAdjustedFrom(query.From, config.LookbackDays) * U.MicrosPerSecond
	batchTo := query.To*U.MicrosPerSecond + (U.MicrosPerSecond - 1)
	events, errCode := GetEventsInRange(batchFrom, batchTo)
	if errCode != http.StatusFound && errCode != http.StatusNotFound {
		return nil, errors.New("failed to fetch events for attribution query")
	}

	result := RunAttribution(events, query.Models, config,
		query.From*U.MicrosPerSecond, batchTo, U.TimeNowUnixMicro())
	logCtx.WithFields(log.Fields{"events": result.Stats.InputEvents,
		"conversions": result.Stats.Conversions}).Info("Executed attribution query.")
	return &result, nil
}

type channelTotals struct {
	conversions int64
	revenue     float64
}

// Aggregates attribution records per channel, one column pair per model,
// sorted by the first model's conversion count descending.
func buildQueryResult(result *PipelineResult, models []string) *QueryResult {
	queryResult := &QueryResult{Headers: []string{"Channel"}}
	for _, model := range models {
		queryResult.Headers = append(queryResult.Headers,
			model+" - Conversions", model+" - Revenue")
	}

	totalsByChannel := make(map[string]map[string]*channelTotals)
	for _, model := range models {
		for _, record := range result.Records[model] {
			if _, exists := totalsByChannel[record.Channel]; !exists {
				totalsByChannel[record.Channel] = make(map[string]*channelTotals)
			}
			if _, exists := totalsByChannel[record.Channel][model]; !exists {
				totalsByChannel[record.Channel][model] = &channelTotals{}
			}
			totals := totalsByChannel[record.Channel][model]
			totals.conversions++
			totals.revenue += record.Value
		}
	}

	rows := make([][]interface{}, 0, len(totalsByChannel))
	for channel, perModel := range totalsByChannel {
		row := []interface{}{channel}
		for _, model := range models {
			if totals, exists := perModel[model]; exists {
				row = append(row, totals.conversions, totals.revenue)
			} else {
				row = append(row, int64(0), float64(0))
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i][1].(int64) != rows[j][1].(int64) {
			return rows[i][1].(int64) > rows[j][1].(int64)
		}
		return rows[i][0].(string) < rows[j][0].(string)
	})
	queryResult.Rows = rows
	return queryResult
}
