package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveChannel(t *testing.T) {
	t.Run("Direct", func(t *testing.T) {
		assert.Equal(t, ChannelDirect, DeriveChannel("(direct)", "(none)"))
		assert.Equal(t, ChannelDirect, DeriveChannel("", ""))
		assert.Equal(t, ChannelDirect, DeriveChannel("(direct)", ""))
		assert.Equal(t, ChannelDirect, DeriveChannel("", "(none)"))
	})

	t.Run("PaidSearch", func(t *testing.T) {
		assert.Equal(t, ChannelPaidSearch, DeriveChannel("google", "cpc"))
		assert.Equal(t, ChannelPaidSearch, DeriveChannel("google", "ppc"))
		assert.Equal(t, ChannelPaidSearch, DeriveChannel("google", "paid"))
		// substring match on source.
		assert.Equal(t, ChannelPaidSearch, DeriveChannel("ads.google.com", "cpc"))
	})

	t.Run("OrganicSearch", func(t *testing.T) {
		assert.Equal(t, ChannelOrganicSearch, DeriveChannel("google", "organic"))
		assert.Equal(t, ChannelOrganicSearch, DeriveChannel("www.google.co.uk", "organic"))
	})

	t.Run("PaidSocial", func(t *testing.T) {
		assert.Equal(t, ChannelPaidSocial, DeriveChannel("facebook", "cpc"))
		assert.Equal(t, ChannelPaidSocial, DeriveChannel("facebook.com", "paid"))
	})

	t.Run("OrganicSocial", func(t *testing.T) {
		assert.Equal(t, ChannelOrganicSocial, DeriveChannel("facebook", "social"))
		assert.Equal(t, ChannelOrganicSocial, DeriveChannel("twitter", ""))
		assert.Equal(t, ChannelOrganicSocial, DeriveChannel("instagram", "stories"))
		assert.Equal(t, ChannelOrganicSocial, DeriveChannel("l.instagram.com", "link"))
	})

	t.Run("MediumOnly", func(t *testing.T) {
		assert.Equal(t, ChannelEmail, DeriveChannel("newsletter", "email"))
		assert.Equal(t, ChannelReferral, DeriveChannel("partner.com", "referral"))
		assert.Equal(t, ChannelAffiliate, DeriveChannel("dealsite", "affiliate"))
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		assert.Equal(t, ChannelPaidSearch, DeriveChannel("Google", "CPC"))
		assert.Equal(t, ChannelEmail, DeriveChannel("Mailchimp", "Email"))
		assert.Equal(t, ChannelDirect, DeriveChannel(" (direct) ", " (none) "))
	})

	t.Run("PriorityOrder", func(t *testing.T) {
		// paid medium on a search source is paid search even though
		// organic would also look at the source.
		assert.Equal(t, ChannelPaidSearch, DeriveChannel("google", "cpc"))
		// paid social outranks the generic social source match.
		assert.Equal(t, ChannelPaidSocial, DeriveChannel("facebook", "ppc"))
		// social source outranks the email medium rule by position.
		assert.Equal(t, ChannelOrganicSocial, DeriveChannel("facebook", "email"))
	})

	t.Run("OtherFallback", func(t *testing.T) {
		assert.Equal(t, ChannelOther, DeriveChannel("bing", "organic"))
		assert.Equal(t, ChannelOther, DeriveChannel("unknown", "banner"))
		assert.Equal(t, ChannelOther, DeriveChannel("podcast", ""))
	})
}
