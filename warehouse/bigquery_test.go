package warehouse

import (
	"testing"

	bigquery "cloud.google.com/go/bigquery"

	"github.com/stretchr/testify/assert"
)

func TestEventsTableMetadata(t *testing.T) {
	metadata := eventsTableMetadata()

	// Zero-valued TimePartitioning means day partitioning.
	assert.NotNil(t, metadata.TimePartitioning)
	assert.NotNil(t, metadata.Clustering)
	assert.Equal(t, []string{"user_pseudo_id"}, metadata.Clustering.Fields)

	byName := map[string]*bigquery.FieldSchema{}
	for _, field := range metadata.Schema {
		byName[field.Name] = field
	}
	assert.Len(t, byName, 13)

	for _, name := range []string{"event_id", "user_pseudo_id", "event_name", "event_timestamp"} {
		assert.True(t, byName[name].Required, name)
	}
	assert.Equal(t, bigquery.IntegerFieldType, byName["event_timestamp"].Type)
	assert.Equal(t, bigquery.FloatFieldType, byName["purchase_revenue"].Type)
	assert.Equal(t, bigquery.TimestampFieldType, byName["ingested_at"].Type)
}
