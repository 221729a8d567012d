package model

import (
	U "attribution/util"

	log "github.com/sirupsen/logrus"
)

// Conversion - A designated high value event with its attribution lookback
// window. Every qualifying conversion is attributed independently; the
// priority rank exists only for a future extension that must pick one
// conversion among several in a session.
type Conversion struct {
	ConversionID  string  `json:"conversion_id"`
	UserPseudoID  string  `json:"user_pseudo_id"`
	EventName     string  `json:"event_name"`
	Channel       string  `json:"channel"`
	Timestamp     int64   `json:"conversion_timestamp"`
	ConversionDay string  `json:"conversion_date"`
	Value         float64 `json:"conversion_value"`
	TransactionID string  `json:"transaction_id"`
	// [WindowFrom, Timestamp], micros.
	WindowFrom int64 `json:"window_from"`
	Priority   int   `json:"priority"`
}

const conversionPriorityDefault = 99

var conversionPriorityRank = map[string]int{
	"purchase":       1,
	"begin_checkout": 2,
	"add_to_cart":    3,
}

func conversionPriority(eventName string) int {
	if rank, exists := conversionPriorityRank[eventName]; exists {
		return rank
	}
	return conversionPriorityDefault
}

// ExtractConversions - Filters normalized events down to the configured
// conversion types and computes each conversion's lookback window. Negative
// revenue records are refunds, excluded from attribution entirely and
// counted on stats.
func ExtractConversions(events []NormalizedEvent, config PipelineConfig,
	stats *PipelineStats) []Conversion {

	lookbackMicros := int64(config.LookbackDays) * U.MicrosInADay

	conversions := make([]Conversion, 0)
	for i := range events {
		event := &events[i]
		if !event.IsConversionCandidate {
			continue
		}
		if event.Revenue < 0 {
			stats.RejectedNegativeValue++
			log.WithFields(log.Fields{"event_id": event.EventID,
				"revenue": event.Revenue}).Info("Excluded negative revenue conversion from attribution.")
			continue
		}

		conversions = append(conversions, Conversion{
			ConversionID:  event.EventID,
			UserPseudoID:  event.UserPseudoID,
			EventName:     event.EventName,
			Channel:       event.Channel,
			Timestamp:     event.Timestamp,
			ConversionDay: event.EventDay,
			Value:         event.Revenue,
			TransactionID: event.TransactionID,
			WindowFrom:    event.Timestamp - lookbackMicros,
			Priority:      conversionPriority(event.EventName),
		})
	}
	stats.Conversions = int64(len(conversions))
	return conversions
}
