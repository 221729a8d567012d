package model

import "strings"

// Marketing channels. Closed set, every normalized event gets exactly one.
const (
	ChannelDirect        = "Direct"
	ChannelPaidSearch    = "Paid Search"
	ChannelOrganicSearch = "Organic Search"
	ChannelPaidSocial    = "Paid Social"
	ChannelOrganicSocial = "Organic Social"
	ChannelEmail         = "Email"
	ChannelReferral      = "Referral"
	ChannelAffiliate     = "Affiliate"
	ChannelOther         = "Other"
)

var paidMediums = []string{"cpc", "ppc", "paid"}
var socialSources = []string{"facebook", "twitter", "instagram"}

func isDirectSource(source string) bool {
	return source == "" || source == "(direct)"
}

func isDirectMedium(medium string) bool {
	return medium == "" || medium == "(none)"
}

func isPaidMedium(medium string) bool {
	for _, paid := range paidMediums {
		if medium == paid {
			return true
		}
	}
	return false
}

// DeriveChannel - Maps raw traffic source fields to a channel. Rules are
// evaluated in priority order, first match wins. Matching is case
// insensitive, substring on source, exact on medium. Unmatched combinations
// fall through to Other so the channel is never empty.
func DeriveChannel(source, medium string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	medium = strings.ToLower(strings.TrimSpace(medium))

	if isDirectSource(source) && isDirectMedium(medium) {
		return ChannelDirect
	}
	if isPaidMedium(medium) && strings.Contains(source, "google") {
		return ChannelPaidSearch
	}
	if medium == "organic" && strings.Contains(source, "google") {
		return ChannelOrganicSearch
	}
	if isPaidMedium(medium) && strings.Contains(source, "facebook") {
		return ChannelPaidSocial
	}
	for _, social := range socialSources {
		if strings.Contains(source, social) {
			return ChannelOrganicSocial
		}
	}
	switch medium {
	case "email":
		return ChannelEmail
	case "referral":
		return ChannelReferral
	case "affiliate":
		return ChannelAffiliate
	}
	return ChannelOther
}
