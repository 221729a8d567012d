package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func record(model, channel, day string, value float64) AttributionRecord {
	return AttributionRecord{
		ConversionID:  channel + day,
		Model:         model,
		Channel:       channel,
		ConversionDay: day,
		Value:         value,
	}
}

func TestBuildComparisonFullOuterJoin(t *testing.T) {
	firstClick := []AttributionRecord{
		record(AttributionModelFirstClick, ChannelPaidSearch, "2024-02-01", 100),
		record(AttributionModelFirstClick, ChannelEmail, "2024-02-02", 50),
	}
	lastClick := []AttributionRecord{
		record(AttributionModelLastClick, ChannelPaidSearch, "2024-02-01", 30),
		record(AttributionModelLastClick, ChannelReferral, "2024-02-01", 70),
	}

	rows := BuildComparison(firstClick, lastClick)
	assert.Len(t, rows, 3)

	byKey := map[string]ComparisonRow{}
	for _, row := range rows {
		byKey[row.Channel+"|"+row.Day] = row
	}

	both := byKey[ChannelPaidSearch+"|2024-02-01"]
	assert.Equal(t, int64(1), both.FirstClickConversions)
	assert.Equal(t, int64(1), both.LastClickConversions)
	assert.Equal(t, float64(100), both.FirstClickRevenue)
	assert.Equal(t, float64(30), both.LastClickRevenue)
	assert.Equal(t, float64(-70), both.RevenueDiff)
	assert.NotNil(t, both.PctShift)
	assert.Equal(t, float64(-70), *both.PctShift)

	firstOnly := byKey[ChannelEmail+"|2024-02-02"]
	assert.Equal(t, int64(0), firstOnly.LastClickConversions)
	assert.Equal(t, float64(0), firstOnly.LastClickRevenue)
	assert.Equal(t, float64(-50), firstOnly.RevenueDiff)

	lastOnly := byKey[ChannelReferral+"|2024-02-01"]
	assert.Equal(t, int64(0), lastOnly.FirstClickConversions)
	assert.Equal(t, float64(70), lastOnly.RevenueDiff)
	// no first click baseline, shift undefined rather than zero.
	assert.Nil(t, lastOnly.PctShift)
}

func TestBuildComparisonAggregatesWithinChannelDay(t *testing.T) {
	firstClick := []AttributionRecord{
		record(AttributionModelFirstClick, ChannelEmail, "2024-02-01", 10),
		record(AttributionModelFirstClick, ChannelEmail, "2024-02-01", 20),
	}

	rows := BuildComparison(firstClick, nil)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].FirstClickConversions)
	assert.Equal(t, float64(30), rows[0].FirstClickRevenue)
}

func TestBuildComparisonSortedByDayThenChannel(t *testing.T) {
	firstClick := []AttributionRecord{
		record(AttributionModelFirstClick, ChannelReferral, "2024-02-02", 1),
		record(AttributionModelFirstClick, ChannelEmail, "2024-02-02", 1),
		record(AttributionModelFirstClick, ChannelPaidSearch, "2024-02-01", 1),
	}

	rows := BuildComparison(firstClick, nil)
	assert.Len(t, rows, 3)
	assert.Equal(t, "2024-02-01", rows[0].Day)
	assert.Equal(t, ChannelEmail, rows[1].Channel)
	assert.Equal(t, ChannelReferral, rows[2].Channel)
}

func TestBuildComparisonZeroShiftHasBaseline(t *testing.T) {
	firstClick := []AttributionRecord{
		record(AttributionModelFirstClick, ChannelEmail, "2024-02-01", 40),
	}
	lastClick := []AttributionRecord{
		record(AttributionModelLastClick, ChannelEmail, "2024-02-01", 40),
	}

	rows := BuildComparison(firstClick, lastClick)
	assert.Len(t, rows, 1)
	assert.NotNil(t, rows[0].PctShift)
	assert.Equal(t, float64(0), *rows[0].PctShift)
}

// Comparison totals must conserve each model's attribution: summing
// conversions and revenue over all channel/day rows equals the distinct
// conversion count and total value attributed under that model.
func TestBuildComparisonConservesModelTotals(t *testing.T) {
	var stats PipelineStats

	touchpoints := []Touchpoint{
		touchpointOn("user_a", ChannelOrganicSearch, dayMicros(1)),
		touchpointOn("user_a", ChannelEmail, dayMicros(2)),
		touchpointOn("user_b", ChannelPaidSocial, dayMicros(2)),
	}
	conversions := []Conversion{
		conversionOn("user_a", dayMicros(3), 100, 14),
		conversionOn("user_b", dayMicros(3), 25, 14),
		conversionOn("user_c", dayMicros(4), 50, 14),
	}

	journeys := BuildJourneys(conversions, touchpoints, &stats)
	firstClick := ApplyAttributionBatch(AttributionModelFirstClick, journeys)
	lastClick := ApplyAttributionBatch(AttributionModelLastClick, journeys)

	rows := BuildComparison(firstClick, lastClick)

	var firstConversions, lastConversions int64
	var firstRevenue, lastRevenue float64
	for _, row := range rows {
		firstConversions += row.FirstClickConversions
		lastConversions += row.LastClickConversions
		firstRevenue += row.FirstClickRevenue
		lastRevenue += row.LastClickRevenue
	}

	assert.Equal(t, int64(len(conversions)), firstConversions)
	assert.Equal(t, int64(len(conversions)), lastConversions)
	assert.Equal(t, float64(175), firstRevenue)
	assert.Equal(t, float64(175), lastRevenue)
}
