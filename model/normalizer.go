package model

import (
	U "attribution/util"

	log "github.com/sirupsen/logrus"
)

// NormalizedEvent - Flat row-per-event representation with the derived
// channel label and data quality filters applied.
type NormalizedEvent struct {
	EventID      string `json:"event_id"`
	UserPseudoID string `json:"user_pseudo_id"`
	EventName    string `json:"event_name"`
	// unix epoch timestamp in microseconds.
	Timestamp int64 `json:"event_timestamp"`
	// UTC calendar day, YYYY-MM-DD.
	EventDay string `json:"event_date"`

	Source       string `json:"source"`
	Medium       string `json:"medium"`
	CampaignName string `json:"campaign_name"`
	Channel      string `json:"channel"`

	PageLocation  string  `json:"page_location"`
	Revenue       float64 `json:"revenue"`
	TransactionID string  `json:"transaction_id"`

	IsConversionCandidate bool `json:"is_conversion_candidate"`
	IsPageView            bool `json:"is_page_view"`
}

// Events before the tracking epoch are garbage timestamps from client clocks.
const minValidEventTimestamp = int64(1577836800) * U.MicrosPerSecond // 2020-01-01 UTC

const eventParamPageLocation = "page_location"
const eventParamValue = "value"

// Rejection reasons surfaced in PipelineStats.
const (
	rejectMissingUser      = "missing_user_pseudo_id"
	rejectMissingEventName = "missing_event_name"
	rejectBadTimestamp     = "bad_timestamp"
)

// NormalizeEvent - Pure function from a raw event to its normalized form.
// Returns a rejection reason instead of an event for malformed input.
// Order independent, safe to evaluate lazily over a streamed sequence.
func NormalizeEvent(event *Event, config PipelineConfig, processingTime int64) (*NormalizedEvent, string) {
	if event.UserPseudoID == "" {
		return nil, rejectMissingUser
	}
	if event.EventName == "" {
		return nil, rejectMissingEventName
	}
	if event.Timestamp == 0 || event.Timestamp < minValidEventTimestamp || event.Timestamp > processingTime {
		return nil, rejectBadTimestamp
	}

	source := event.GetTrafficSource()
	params := event.GetEventParams()
	ecommerce := event.GetEcommerce()

	normalized := &NormalizedEvent{
		EventID:       event.ID,
		UserPseudoID:  event.UserPseudoID,
		EventName:     event.EventName,
		Timestamp:     event.Timestamp,
		EventDay:      U.GetDateOnlyFromMicrosZ(event.Timestamp),
		Source:        source.Source,
		Medium:        source.Medium,
		CampaignName:  source.CampaignName,
		Channel:       DeriveChannel(source.Source, source.Medium),
		PageLocation:  U.GetStringValue(params[eventParamPageLocation]),
		TransactionID: ecommerce.TransactionID,

		IsConversionCandidate: U.ContainsStringInSlice(config.ConversionEventTypes, event.EventName),
		IsPageView:            event.EventName == "page_view",
	}

	// Conversion value: commerce revenue, else the generic numeric value
	// param, else 0.
	if ecommerce.PurchaseRevenue != 0 {
		normalized.Revenue = ecommerce.PurchaseRevenue
	} else if value, ok := U.GetFloatValue(params[eventParamValue]); ok {
		normalized.Revenue = value
	}

	return normalized, ""
}

// NormalizeBatch - Normalizes a complete upstream batch, dropping malformed
// events silently and counting them. Repeated idempotency tokens within the
// batch keep the first occurrence only, so a redelivered event never yields
// a second conversion even when the batch bypassed the ingest boundary.
func NormalizeBatch(events []Event, config PipelineConfig, processingTime int64) ([]NormalizedEvent, PipelineStats) {
	stats := PipelineStats{InputEvents: int64(len(events))}

	seenTokens := make(map[string]bool, len(events))
	normalized := make([]NormalizedEvent, 0, len(events))
	for i := range events {
		row, reason := NormalizeEvent(&events[i], config, processingTime)
		if reason != "" {
			stats.DroppedEvents++
			switch reason {
			case rejectMissingUser:
				stats.DroppedMissingUser++
			case rejectMissingEventName:
				stats.DroppedMissingEventName++
			case rejectBadTimestamp:
				stats.DroppedBadTimestamp++
			}
			continue
		}
		if row.EventID != "" {
			if seenTokens[row.EventID] {
				stats.DroppedEvents++
				stats.DroppedDuplicateToken++
				continue
			}
			seenTokens[row.EventID] = true
		}
		normalized = append(normalized, *row)
	}
	stats.NormalizedEvents = int64(len(normalized))

	if stats.DroppedEvents > 0 {
		log.WithFields(log.Fields{"input": stats.InputEvents,
			"dropped": stats.DroppedEvents}).Info("Dropped malformed events on normalize.")
	}
	return normalized, stats
}
