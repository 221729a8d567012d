package simulator

import (
	"errors"
	"io/ioutil"
	"math/rand"

	M "attribution/model"
	U "attribution/util"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// ChannelPreset - One acquisition channel a simulated journey can start on.
type ChannelPreset struct {
	Source   string `yaml:"source"`
	Medium   string `yaml:"medium"`
	Campaign string `yaml:"campaign"`
}

type Product struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

// Scenario - Generator configuration, loadable from a yaml file.
type Scenario struct {
	Channels []ChannelPreset `yaml:"channels"`
	Products []Product       `yaml:"products"`
	// Funnel order a journey walks through, truncated to events per user.
	JourneySequence  []string `yaml:"journey_sequence"`
	Devices          []string `yaml:"devices"`
	OperatingSystems []string `yaml:"operating_systems"`
	Browsers         []string `yaml:"browsers"`
	Countries        []string `yaml:"countries"`
	StreamID         string   `yaml:"stream_id"`
	// Event spacing bounds within a journey, in seconds.
	MinStepSecs int64 `yaml:"min_step_secs"`
	MaxStepSecs int64 `yaml:"max_step_secs"`
}

func DefaultScenario() Scenario {
	return Scenario{
		Channels: []ChannelPreset{
			{Source: "google", Medium: "cpc", Campaign: "spring_sale"},
			{Source: "google", Medium: "organic"},
			{Source: "facebook", Medium: "cpc", Campaign: "retargeting"},
			{Source: "(direct)", Medium: "(none)"},
			{Source: "email", Medium: "email", Campaign: "newsletter"},
		},
		Products: []Product{
			{ID: "PROD001", Name: "Widget A", Price: 29.99},
			{ID: "PROD002", Name: "Gadget B", Price: 49.99},
			{ID: "PROD003", Name: "Tool C", Price: 79.99},
		},
		JourneySequence: []string{"page_view", "view_item", "add_to_cart",
			"begin_checkout", "purchase"},
		Devices:          []string{"mobile", "desktop", "tablet"},
		OperatingSystems: []string{"iOS", "Android", "Windows", "macOS"},
		Browsers:         []string{"Chrome", "Safari", "Firefox", "Edge"},
		Countries:        []string{"US", "UK", "CA", "AU"},
		StreamID:         "web_stream_001",
		MinStepSecs:      30,
		MaxStepSecs:      300,
	}
}

// LoadScenarioFile - Reads a yaml scenario, falling back to defaults for
// any section left empty.
func LoadScenarioFile(path string) (Scenario, error) {
	scenario := DefaultScenario()

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("file", path).Error("Failed to read scenario file")
		return scenario, err
	}
	if err := yaml.Unmarshal(raw, &scenario); err != nil {
		log.WithError(err).WithField("file", path).Error("Failed to unmarshal scenario file")
		return scenario, err
	}
	if err := scenario.validateStepBounds(); err != nil {
		log.WithError(err).WithField("file", path).Error("Invalid scenario file")
		return scenario, err
	}
	return scenario, nil
}

func (scenario *Scenario) validateStepBounds() error {
	if scenario.MinStepSecs <= 0 {
		return errors.New("min_step_secs must be positive")
	}
	if scenario.MaxStepSecs < scenario.MinStepSecs {
		return errors.New("max_step_secs must not be below min_step_secs")
	}
	return nil
}

// Generator - Deterministic for a seed, so tests can assert on output.
type Generator struct {
	scenario Scenario
	rand     *rand.Rand
}

func NewGenerator(scenario Scenario, seed int64) *Generator {
	return &Generator{scenario: scenario, rand: rand.New(rand.NewSource(seed))}
}

func (gen *Generator) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[gen.rand.Intn(len(values))]
}

// NewUserID - Random pseudo id in the demo convention, i.e user_1a2b3c4d.
func (gen *Generator) NewUserID() string {
	return "user_" + U.GetUUID()[:8]
}

// GenerateUserJourney - One user's funnel walk on a single channel. Events
// get spaced step by step within the configured bounds, and the purchase
// step carries ecommerce revenue of price times quantity.
func (gen *Generator) GenerateUserJourney(userID string, numEvents int,
	baseTimestamp int64) ([]*M.Event, error) {

	sequence := gen.scenario.JourneySequence
	if numEvents > len(sequence) {
		numEvents = len(sequence)
	}

	channel := gen.scenario.Channels[gen.rand.Intn(len(gen.scenario.Channels))]
	source := &M.TrafficSource{Source: channel.Source, Medium: channel.Medium,
		CampaignName: channel.Campaign}

	sessionID := 1000000 + gen.rand.Intn(9000000)
	sessionNumber := 1 + gen.rand.Intn(10)

	events := make([]*M.Event, 0, numEvents)
	eventTimestamp := baseTimestamp
	for i := 0; i < numEvents; i++ {
		eventName := sequence[i]
		if i > 0 {
			stepSecs := gen.scenario.MinStepSecs +
				gen.rand.Int63n(gen.scenario.MaxStepSecs-gen.scenario.MinStepSecs+1)
			eventTimestamp += stepSecs * U.MicrosPerSecond
		}

		device := &M.Device{
			Category:        gen.pick(gen.scenario.Devices),
			OperatingSystem: gen.pick(gen.scenario.OperatingSystems),
			Browser:         gen.pick(gen.scenario.Browsers),
		}
		geo := &M.Geo{Country: gen.pick(gen.scenario.Countries)}

		params := U.PropertiesMap{
			"ga_session_id":        sessionID,
			"ga_session_number":    sessionNumber,
			"page_location":        "https://example.com/" + eventName,
			"engagement_time_msec": 1000 + gen.rand.Intn(29000),
		}

		var ecommerce *M.Ecommerce
		if eventName == "purchase" {
			product := gen.scenario.Products[gen.rand.Intn(len(gen.scenario.Products))]
			quantity := int64(1 + gen.rand.Intn(3))
			ecommerce = &M.Ecommerce{
				TransactionID:     U.GetUUID()[:8],
				PurchaseRevenue:   product.Price * float64(quantity),
				TotalItemQuantity: quantity,
			}
		}

		event, err := M.NewEvent("", userID, eventName, eventTimestamp,
			source, device, geo, ecommerce, params)
		if err != nil {
			return nil, err
		}
		event.StreamID = gen.scenario.StreamID
		events = append(events, event)
	}
	return events, nil
}

// GenerateBatch - Journeys for several fresh users, started at staggered
// offsets before now the way live traffic trickles in.
func (gen *Generator) GenerateBatch(numUsers, eventsPerUser int) ([]*M.Event, error) {
	all := make([]*M.Event, 0, numUsers*eventsPerUser)
	now := U.TimeNowUnixMicro()
	for i := 0; i < numUsers; i++ {
		baseTimestamp := now - (1+gen.rand.Int63n(60))*60*U.MicrosPerSecond
		events, err := gen.GenerateUserJourney(gen.NewUserID(), eventsPerUser, baseTimestamp)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return all, nil
}
