package simulator

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	M "attribution/model"
	U "attribution/util"

	"github.com/stretchr/testify/assert"
)

const simBaseMicros = int64(1706745600) * U.MicrosPerSecond

func TestGenerateUserJourneyFollowsSequence(t *testing.T) {
	gen := NewGenerator(DefaultScenario(), 42)

	events, err := gen.GenerateUserJourney("user_test", 5, simBaseMicros)
	assert.Nil(t, err)
	assert.Len(t, events, 5)

	expected := []string{"page_view", "view_item", "add_to_cart", "begin_checkout", "purchase"}
	for i, event := range events {
		assert.Equal(t, expected[i], event.EventName)
		assert.Equal(t, "user_test", event.UserPseudoID)
		assert.Equal(t, "web_stream_001", event.StreamID)
	}

	// strictly increasing timestamps within the configured step bounds.
	for i := 1; i < len(events); i++ {
		step := (events[i].Timestamp - events[i-1].Timestamp) / U.MicrosPerSecond
		assert.True(t, step >= 30 && step <= 300,
			"step %d outside bounds", step)
	}
}

func TestGenerateUserJourneySingleChannel(t *testing.T) {
	gen := NewGenerator(DefaultScenario(), 7)

	events, err := gen.GenerateUserJourney("user_test", 5, simBaseMicros)
	assert.Nil(t, err)

	first := events[0].GetTrafficSource()
	for _, event := range events {
		source := event.GetTrafficSource()
		assert.Equal(t, first.Source, source.Source)
		assert.Equal(t, first.Medium, source.Medium)
	}
}

func TestGenerateUserJourneyAssignsIdempotencyTokens(t *testing.T) {
	gen := NewGenerator(DefaultScenario(), 1)

	events, err := gen.GenerateUserJourney("user_test", 3, simBaseMicros)
	assert.Nil(t, err)

	for _, event := range events {
		assert.Len(t, event.ID, U.EventTokenLength)
		assert.Equal(t, U.EventIdempotencyToken(event.UserPseudoID, event.EventName,
			event.Timestamp), event.ID)
	}
}

func TestGenerateUserJourneyPurchaseRevenue(t *testing.T) {
	scenario := DefaultScenario()
	gen := NewGenerator(scenario, 99)

	events, err := gen.GenerateUserJourney("user_test", 5, simBaseMicros)
	assert.Nil(t, err)

	purchase := events[4]
	assert.Equal(t, "purchase", purchase.EventName)

	ecommerce := purchase.GetEcommerce()
	assert.NotEmpty(t, ecommerce.TransactionID)
	assert.True(t, ecommerce.TotalItemQuantity >= 1 && ecommerce.TotalItemQuantity <= 3)

	// revenue must be a product price times the quantity.
	validRevenue := false
	for _, product := range scenario.Products {
		if ecommerce.PurchaseRevenue == product.Price*float64(ecommerce.TotalItemQuantity) {
			validRevenue = true
		}
	}
	assert.True(t, validRevenue, "revenue %v not a price times quantity", ecommerce.PurchaseRevenue)

	// the pre-purchase steps carry no revenue.
	for _, event := range events[:4] {
		assert.Equal(t, float64(0), event.GetEcommerce().PurchaseRevenue)
	}
}

func TestGenerateUserJourneyTruncatesToSequence(t *testing.T) {
	gen := NewGenerator(DefaultScenario(), 3)

	events, err := gen.GenerateUserJourney("user_test", 50, simBaseMicros)
	assert.Nil(t, err)
	assert.Len(t, events, 5)
}

func TestGenerateBatch(t *testing.T) {
	gen := NewGenerator(DefaultScenario(), 5)

	events, err := gen.GenerateBatch(3, 5)
	assert.Nil(t, err)
	assert.Len(t, events, 15)

	users := map[string]bool{}
	for _, event := range events {
		users[event.UserPseudoID] = true
	}
	assert.Len(t, users, 3)
}

func TestDeterministicForSeed(t *testing.T) {
	a := NewGenerator(DefaultScenario(), 1234)
	b := NewGenerator(DefaultScenario(), 1234)

	eventsA, _ := a.GenerateUserJourney("user_test", 5, simBaseMicros)
	eventsB, _ := b.GenerateUserJourney("user_test", 5, simBaseMicros)

	assert.Equal(t, len(eventsA), len(eventsB))
	for i := range eventsA {
		assert.Equal(t, eventsA[i].ID, eventsB[i].ID)
		assert.Equal(t, eventsA[i].Timestamp, eventsB[i].Timestamp)
		assert.Equal(t, eventsA[i].GetTrafficSource(), eventsB[i].GetTrafficSource())
	}
}

func TestDefaultScenarioChannelsDeriveCleanly(t *testing.T) {
	expected := map[string]string{
		"google|cpc":      M.ChannelPaidSearch,
		"google|organic":  M.ChannelOrganicSearch,
		"facebook|cpc":    M.ChannelPaidSocial,
		"(direct)|(none)": M.ChannelDirect,
		"email|email":     M.ChannelEmail,
	}

	for _, preset := range DefaultScenario().Channels {
		channel := M.DeriveChannel(preset.Source, preset.Medium)
		assert.Equal(t, expected[preset.Source+"|"+preset.Medium], channel)
	}
}

func TestLoadScenarioFileRejectsBadStepBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")

	err := ioutil.WriteFile(path, []byte("min_step_secs: 120\nmax_step_secs: 30\n"), 0644)
	assert.Nil(t, err)
	_, err = LoadScenarioFile(path)
	assert.NotNil(t, err)

	err = ioutil.WriteFile(path, []byte("min_step_secs: 0\n"), 0644)
	assert.Nil(t, err)
	_, err = LoadScenarioFile(path)
	assert.NotNil(t, err)

	err = ioutil.WriteFile(path, []byte("min_step_secs: 10\nmax_step_secs: 20\n"), 0644)
	assert.Nil(t, err)
	scenario, err := LoadScenarioFile(path)
	assert.Nil(t, err)
	assert.Equal(t, int64(10), scenario.MinStepSecs)
	assert.Equal(t, int64(20), scenario.MaxStepSecs)
}
