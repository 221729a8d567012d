package model

import (
	"sort"

	U "attribution/util"
)

// JourneyTouchpoint - A touchpoint placed inside one conversion's journey.
type JourneyTouchpoint struct {
	Touchpoint
	// 1-based, ascending by timestamp.
	Position int  `json:"position"`
	IsFirst  bool `json:"is_first"`
	IsLast   bool `json:"is_last"`
}

// Journey - Ordered touchpoints credited to one conversion. A conversion
// with no qualifying touchpoint gets a synthetic single-touch journey on its
// own channel (direct conversion).
type Journey struct {
	Conversion  Conversion          `json:"conversion"`
	Touchpoints []JourneyTouchpoint `json:"touchpoints"`
	IsDirect    bool                `json:"is_direct"`
	// Whole UTC days from first touch to conversion. 0 for direct.
	LengthDays   int64  `json:"journey_length_days"`
	LengthBucket string `json:"journey_length_bucket"`
}

// Informational only, never used in the attribution math.
func journeyLengthBucket(touches int) string {
	switch {
	case touches <= 1:
		return "Single Touch"
	case touches == 2:
		return "Two Touch"
	case touches <= 5:
		return "Short"
	case touches <= 10:
		return "Medium"
	default:
		return "Long"
	}
}

// BuildJourneys - Joins each conversion to the touchpoints of the same user
// that fall strictly before the conversion and inside its lookback window.
// Implemented as a per-user two-pointer scan over timestamp sorted groups
// instead of a relational cross join, which keeps it near linear. Exactly
// one journey per conversion comes out, direct fallback included.
func BuildJourneys(conversions []Conversion, touchpoints []Touchpoint,
	stats *PipelineStats) []Journey {

	touchpointsByUser := make(map[string][]Touchpoint)
	for _, touchpoint := range touchpoints {
		touchpointsByUser[touchpoint.UserPseudoID] =
			append(touchpointsByUser[touchpoint.UserPseudoID], touchpoint)
	}
	for user := range touchpointsByUser {
		group := touchpointsByUser[user]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp < group[j].Timestamp
		})
	}

	ordered := make([]Conversion, len(conversions))
	copy(ordered, conversions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].UserPseudoID != ordered[j].UserPseudoID {
			return ordered[i].UserPseudoID < ordered[j].UserPseudoID
		}
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	journeys := make([]Journey, 0, len(ordered))
	var scanUser string
	var left int
	for _, conversion := range ordered {
		if conversion.UserPseudoID != scanUser {
			scanUser = conversion.UserPseudoID
			left = 0
		}
		group := touchpointsByUser[conversion.UserPseudoID]

		// Conversions are ascending per user, so the window's lower bound
		// only moves forward and the left cursor never backtracks.
		for left < len(group) && group[left].Timestamp < conversion.WindowFrom {
			left++
		}

		var inWindow []Touchpoint
		for i := left; i < len(group) && group[i].Timestamp < conversion.Timestamp; i++ {
			inWindow = append(inWindow, group[i])
		}

		journeys = append(journeys, buildJourney(conversion, inWindow, stats))
	}
	return journeys
}

func buildJourney(conversion Conversion, inWindow []Touchpoint, stats *PipelineStats) Journey {
	if len(inWindow) == 0 {
		if stats != nil {
			stats.DirectConversions++
		}
		synthetic := JourneyTouchpoint{
			Touchpoint: Touchpoint{
				UserPseudoID: conversion.UserPseudoID,
				Channel:      conversion.Channel,
				EventDay:     conversion.ConversionDay,
				Timestamp:    conversion.Timestamp,
				EventCount:   1,
			},
			Position: 1,
			IsFirst:  true,
			IsLast:   true,
		}
		return Journey{
			Conversion:   conversion,
			Touchpoints:  []JourneyTouchpoint{synthetic},
			IsDirect:     true,
			LengthDays:   0,
			LengthBucket: journeyLengthBucket(1),
		}
	}

	journeyTouchpoints := make([]JourneyTouchpoint, 0, len(inWindow))
	for i, touchpoint := range inWindow {
		journeyTouchpoints = append(journeyTouchpoints, JourneyTouchpoint{
			Touchpoint: touchpoint,
			Position:   i + 1,
			IsFirst:    i == 0,
			IsLast:     i == len(inWindow)-1,
		})
	}
	return Journey{
		Conversion:   conversion,
		Touchpoints:  journeyTouchpoints,
		LengthDays:   U.DaysBetweenMicrosZ(inWindow[0].Timestamp, conversion.Timestamp),
		LengthBucket: journeyLengthBucket(len(inWindow)),
	}
}
