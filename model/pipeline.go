package model

// PipelineConfig - Externally supplied attribution parameters. Threaded
// explicitly through every pipeline step so the steps stay pure and
// independently testable.
type PipelineConfig struct {
	LookbackDays         int      `json:"lookback_days"`
	ConversionEventTypes []string `json:"conversion_event_types"`
}

const (
	DefaultLookbackDays = 14
	LookbackCapInDays   = 180
)

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		LookbackDays:         DefaultLookbackDays,
		ConversionEventTypes: []string{"purchase", "begin_checkout"},
	}
}

// WithDefaults - Fills zero values, caps the lookback window.
func (config PipelineConfig) WithDefaults() PipelineConfig {
	defaults := DefaultPipelineConfig()
	if config.LookbackDays <= 0 {
		config.LookbackDays = defaults.LookbackDays
	}
	if config.LookbackDays > LookbackCapInDays {
		config.LookbackDays = LookbackCapInDays
	}
	if len(config.ConversionEventTypes) == 0 {
		config.ConversionEventTypes = defaults.ConversionEventTypes
	}
	return config
}

// PipelineStats - Counters for records filtered out along the way. Malformed
// input and negative revenue are counted and dropped, never fatal.
type PipelineStats struct {
	InputEvents      int64 `json:"input_events"`
	NormalizedEvents int64 `json:"normalized_events"`
	DroppedEvents    int64 `json:"dropped_events"`

	DroppedMissingUser      int64 `json:"dropped_missing_user"`
	DroppedMissingEventName int64 `json:"dropped_missing_event_name"`
	DroppedBadTimestamp     int64 `json:"dropped_bad_timestamp"`
	DroppedDuplicateToken   int64 `json:"dropped_duplicate_token"`

	Conversions            int64 `json:"conversions"`
	RejectedNegativeValue  int64 `json:"rejected_negative_value"`
	DirectConversions      int64 `json:"direct_conversions"`
	Touchpoints            int64 `json:"touchpoints"`
}
