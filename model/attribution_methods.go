package model

// Attribution models. Both assign 100% of the conversion credit to a single
// touchpoint, with the direct conversion fallback already materialized as a
// synthetic journey entry.
const (
	AttributionModelFirstClick = "first_click"
	AttributionModelLastClick  = "last_click"
)

func IsValidAttributionModel(model string) bool {
	return model == AttributionModelFirstClick || model == AttributionModelLastClick
}

// AttributionRecord - Output of applying one model to one journey. Exactly
// one record per (conversion, model), value never split.
type AttributionRecord struct {
	ConversionID  string  `json:"conversion_id"`
	UserPseudoID  string  `json:"user_pseudo_id"`
	Model         string  `json:"model"`
	Channel       string  `json:"attributed_channel"`
	Value         float64 `json:"attributed_value"`
	ConversionDay string  `json:"conversion_date"`
	TouchCount    int     `json:"touch_count"`
	IsDirect      bool    `json:"is_direct"`
}

// tie-break policy between equal timestamp touchpoints: first click takes
// the alphabetically earliest channel/source, last click the alphabetically
// latest. The asymmetry comes from the source models treating each end
// independently and is preserved as documented.
func tieBreakEarliest(a, b JourneyTouchpoint) bool {
	if a.Channel != b.Channel {
		return a.Channel < b.Channel
	}
	return a.Source < b.Source
}

func tieBreakLatest(a, b JourneyTouchpoint) bool {
	if a.Channel != b.Channel {
		return a.Channel > b.Channel
	}
	return a.Source > b.Source
}

func firstTouch(touchpoints []JourneyTouchpoint) JourneyTouchpoint {
	pick := touchpoints[0]
	for _, touchpoint := range touchpoints[1:] {
		if touchpoint.Timestamp < pick.Timestamp ||
			(touchpoint.Timestamp == pick.Timestamp && tieBreakEarliest(touchpoint, pick)) {
			pick = touchpoint
		}
	}
	return pick
}

func lastTouch(touchpoints []JourneyTouchpoint) JourneyTouchpoint {
	pick := touchpoints[0]
	for _, touchpoint := range touchpoints[1:] {
		if touchpoint.Timestamp > pick.Timestamp ||
			(touchpoint.Timestamp == pick.Timestamp && tieBreakLatest(touchpoint, pick)) {
			pick = touchpoint
		}
	}
	return pick
}

// ApplyAttribution - Applies one model to one journey. Total over the
// journey domain: every journey yields exactly one record, the models only
// differ in which end of the ordered sequence they read.
func ApplyAttribution(model string, journey Journey) AttributionRecord {
	var pick JourneyTouchpoint
	if model == AttributionModelFirstClick {
		pick = firstTouch(journey.Touchpoints)
	} else {
		pick = lastTouch(journey.Touchpoints)
	}

	return AttributionRecord{
		ConversionID:  journey.Conversion.ConversionID,
		UserPseudoID:  journey.Conversion.UserPseudoID,
		Model:         model,
		Channel:       pick.Channel,
		Value:         journey.Conversion.Value,
		ConversionDay: journey.Conversion.ConversionDay,
		TouchCount:    len(journey.Touchpoints),
		IsDirect:      journey.IsDirect,
	}
}

// ApplyAttributionBatch - One record per journey for the given model.
func ApplyAttributionBatch(model string, journeys []Journey) []AttributionRecord {
	records := make([]AttributionRecord, 0, len(journeys))
	for _, journey := range journeys {
		records = append(records, ApplyAttribution(model, journey))
	}
	return records
}
