package model

import (
	"testing"

	U "attribution/util"

	"github.com/stretchr/testify/assert"
)

func normalizedConversion(user, name string, timestamp int64, revenue float64) NormalizedEvent {
	return NormalizedEvent{
		EventID:               U.EventIdempotencyToken(user, name, timestamp),
		UserPseudoID:          user,
		EventName:             name,
		Timestamp:             timestamp,
		EventDay:              U.GetDateOnlyFromMicrosZ(timestamp),
		Channel:               ChannelDirect,
		Revenue:               revenue,
		IsConversionCandidate: true,
	}
}

func TestExtractConversions(t *testing.T) {
	config := DefaultPipelineConfig()
	var stats PipelineStats

	events := []NormalizedEvent{
		normalizedConversion("user_1", "purchase", testBaseMicros, 100),
		normalizedConversion("user_1", "begin_checkout", testBaseMicros-3600*U.MicrosPerSecond, 0),
		// not flagged as a candidate, must be ignored.
		normalizedVisit("user_1", ChannelDirect, "", testBaseMicros, true),
	}

	conversions := ExtractConversions(events, config, &stats)

	assert.Len(t, conversions, 2)
	assert.Equal(t, int64(2), stats.Conversions)

	purchase := conversions[0]
	assert.Equal(t, "purchase", purchase.EventName)
	assert.Equal(t, float64(100), purchase.Value)
	assert.Equal(t, 1, purchase.Priority)
	assert.Equal(t, testBaseMicros-int64(config.LookbackDays)*U.MicrosInADay, purchase.WindowFrom)

	checkout := conversions[1]
	assert.Equal(t, "begin_checkout", checkout.EventName)
	assert.Equal(t, 2, checkout.Priority)
}

func TestExtractConversionsSkipsNegativeRevenue(t *testing.T) {
	config := DefaultPipelineConfig()
	var stats PipelineStats

	events := []NormalizedEvent{
		normalizedConversion("user_1", "purchase", testBaseMicros, -49.99),
		normalizedConversion("user_1", "purchase", testBaseMicros+60*U.MicrosPerSecond, 49.99),
	}

	conversions := ExtractConversions(events, config, &stats)

	assert.Len(t, conversions, 1)
	assert.Equal(t, float64(49.99), conversions[0].Value)
	assert.Equal(t, int64(1), stats.RejectedNegativeValue)
	assert.Equal(t, int64(1), stats.Conversions)
}

func TestExtractConversionsZeroValueKept(t *testing.T) {
	config := DefaultPipelineConfig()
	var stats PipelineStats

	conversions := ExtractConversions([]NormalizedEvent{
		normalizedConversion("user_1", "begin_checkout", testBaseMicros, 0),
	}, config, &stats)

	assert.Len(t, conversions, 1)
	assert.Equal(t, float64(0), conversions[0].Value)
	assert.Equal(t, int64(0), stats.RejectedNegativeValue)
}
