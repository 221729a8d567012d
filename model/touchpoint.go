package model

import "sort"

// Touchpoint - One deduplicated (user, channel, UTC day) marketing
// interaction. Multiple same-channel visits in a day collapse to the
// earliest one.
type Touchpoint struct {
	UserPseudoID string `json:"user_pseudo_id"`
	Channel      string `json:"channel"`
	// Source retained for tie-breaks alongside channel.
	Source       string `json:"source"`
	EventDay     string `json:"event_date"`
	// Timestamp of the earliest collapsed event, micros.
	Timestamp   int64  `json:"first_event_timestamp"`
	LandingPage string `json:"landing_page"`
	EventCount  int64  `json:"event_count"`
	PageViews   int64  `json:"page_views"`
}

type touchpointKey struct {
	userPseudoID string
	channel      string
	eventDay     string
}

// BuildTouchpoints - Collapses normalized events into touchpoints. The
// earliest event wins the group; an equal-timestamp tie keeps the event that
// appeared first in the input sequence, so the result is deterministic for
// a given input order. Output is sorted by (user, timestamp, channel).
func BuildTouchpoints(events []NormalizedEvent) []Touchpoint {
	groups := make(map[touchpointKey]*Touchpoint)

	for i := range events {
		event := &events[i]
		key := touchpointKey{event.UserPseudoID, event.Channel, event.EventDay}

		touchpoint, exists := groups[key]
		if !exists {
			groups[key] = &Touchpoint{
				UserPseudoID: event.UserPseudoID,
				Channel:      event.Channel,
				Source:       event.Source,
				EventDay:     event.EventDay,
				Timestamp:    event.Timestamp,
				LandingPage:  event.PageLocation,
				EventCount:   1,
			}
			if event.IsPageView {
				groups[key].PageViews = 1
			}
			continue
		}

		touchpoint.EventCount++
		if event.IsPageView {
			touchpoint.PageViews++
		}
		// Strictly earlier only: on an exact tie the first-seen event stays.
		if event.Timestamp < touchpoint.Timestamp {
			touchpoint.Timestamp = event.Timestamp
			touchpoint.Source = event.Source
			touchpoint.LandingPage = event.PageLocation
		}
	}

	touchpoints := make([]Touchpoint, 0, len(groups))
	for _, touchpoint := range groups {
		touchpoints = append(touchpoints, *touchpoint)
	}
	sort.Slice(touchpoints, func(i, j int) bool {
		if touchpoints[i].UserPseudoID != touchpoints[j].UserPseudoID {
			return touchpoints[i].UserPseudoID < touchpoints[j].UserPseudoID
		}
		if touchpoints[i].Timestamp != touchpoints[j].Timestamp {
			return touchpoints[i].Timestamp < touchpoints[j].Timestamp
		}
		return touchpoints[i].Channel < touchpoints[j].Channel
	})
	return touchpoints
}
