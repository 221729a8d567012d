package model

import (
	"testing"

	U "attribution/util"

	"github.com/stretchr/testify/assert"
)

func normalizedVisit(user, channel, source string, timestamp int64, pageView bool) NormalizedEvent {
	return NormalizedEvent{
		EventID:      U.EventIdempotencyToken(user, "page_view", timestamp),
		UserPseudoID: user,
		EventName:    "page_view",
		Timestamp:    timestamp,
		EventDay:     U.GetDateOnlyFromMicrosZ(timestamp),
		Source:       source,
		Channel:      channel,
		PageLocation: "https://example.com/landing",
		IsPageView:   pageView,
	}
}

func TestBuildTouchpointsCollapsesSameChannelDay(t *testing.T) {
	visits := []NormalizedEvent{
		normalizedVisit("user_1", ChannelPaidSearch, "google", testBaseMicros+3600*U.MicrosPerSecond, true),
		normalizedVisit("user_1", ChannelPaidSearch, "google", testBaseMicros+600*U.MicrosPerSecond, true),
		normalizedVisit("user_1", ChannelPaidSearch, "google", testBaseMicros+7200*U.MicrosPerSecond, false),
	}

	touchpoints := BuildTouchpoints(visits)

	assert.Len(t, touchpoints, 1)
	assert.Equal(t, testBaseMicros+600*U.MicrosPerSecond, touchpoints[0].Timestamp)
	assert.Equal(t, int64(3), touchpoints[0].EventCount)
	assert.Equal(t, int64(2), touchpoints[0].PageViews)
}

func TestBuildTouchpointsSplitsByDayAndChannel(t *testing.T) {
	visits := []NormalizedEvent{
		// same channel on two different UTC days.
		normalizedVisit("user_1", ChannelEmail, "email", testBaseMicros, false),
		normalizedVisit("user_1", ChannelEmail, "email", testBaseMicros+U.MicrosInADay, false),
		// different channel same day.
		normalizedVisit("user_1", ChannelReferral, "partner.com", testBaseMicros+60*U.MicrosPerSecond, false),
		// different user entirely.
		normalizedVisit("user_2", ChannelEmail, "email", testBaseMicros, false),
	}

	touchpoints := BuildTouchpoints(visits)
	assert.Len(t, touchpoints, 4)
}

func TestBuildTouchpointsBoundaryJustBeforeMidnight(t *testing.T) {
	beforeMidnight := testBaseMicros + U.MicrosInADay - 1
	afterMidnight := testBaseMicros + U.MicrosInADay

	touchpoints := BuildTouchpoints([]NormalizedEvent{
		normalizedVisit("user_1", ChannelDirect, "", beforeMidnight, false),
		normalizedVisit("user_1", ChannelDirect, "", afterMidnight, false),
	})

	assert.Len(t, touchpoints, 2)
	assert.Equal(t, "2024-02-01", touchpoints[0].EventDay)
	assert.Equal(t, "2024-02-02", touchpoints[1].EventDay)
}

func TestBuildTouchpointsTieKeepsFirstSeen(t *testing.T) {
	first := normalizedVisit("user_1", ChannelOther, "bing", testBaseMicros, false)
	first.PageLocation = "https://example.com/a"
	second := normalizedVisit("user_1", ChannelOther, "duckduckgo", testBaseMicros, false)
	second.PageLocation = "https://example.com/b"

	touchpoints := BuildTouchpoints([]NormalizedEvent{first, second})

	assert.Len(t, touchpoints, 1)
	assert.Equal(t, "bing", touchpoints[0].Source)
	assert.Equal(t, "https://example.com/a", touchpoints[0].LandingPage)
}

func TestBuildTouchpointsSortedOutput(t *testing.T) {
	touchpoints := BuildTouchpoints([]NormalizedEvent{
		normalizedVisit("user_2", ChannelEmail, "email", testBaseMicros+U.MicrosInADay, false),
		normalizedVisit("user_1", ChannelReferral, "partner.com", testBaseMicros+60*U.MicrosPerSecond, false),
		normalizedVisit("user_1", ChannelEmail, "email", testBaseMicros, false),
	})

	assert.Len(t, touchpoints, 3)
	assert.Equal(t, "user_1", touchpoints[0].UserPseudoID)
	assert.Equal(t, ChannelEmail, touchpoints[0].Channel)
	assert.Equal(t, "user_1", touchpoints[1].UserPseudoID)
	assert.Equal(t, ChannelReferral, touchpoints[1].Channel)
	assert.Equal(t, "user_2", touchpoints[2].UserPseudoID)
}
