package model

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	cacheRedis "attribution/cache/redis"
	C "attribution/config"
	U "attribution/util"

	"github.com/jinzhu/gorm/dialects/postgres"
	log "github.com/sirupsen/logrus"
)

// Event - Model for events table. One row per user action, GA4 export shape.
// ID is the client assigned idempotency token, sha256(user|event|timestamp)
// truncated to 16 hex chars, which makes the primary key the dedup boundary.
type Event struct {
	ID           string `gorm:"primary_key:true" json:"event_id"`
	UserPseudoID string `gorm:"column:user_pseudo_id" json:"user_pseudo_id"`
	EventName    string `json:"event_name"`
	// unix epoch timestamp in microseconds.
	Timestamp int64 `json:"event_timestamp"`

	// JsonB of postgres with gorm. https://github.com/jinzhu/gorm/issues/1183
	TrafficSource postgres.Jsonb `json:"traffic_source,omitempty"`
	Device        postgres.Jsonb `json:"device,omitempty"`
	Geo           postgres.Jsonb `json:"geo,omitempty"`
	Ecommerce     postgres.Jsonb `json:"ecommerce,omitempty"`
	EventParams   postgres.Jsonb `json:"event_params,omitempty"`

	Platform   string    `json:"platform"`
	StreamID   string    `json:"stream_id"`
	IngestedAt time.Time `json:"ingestion_timestamp"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TrafficSource - Nested traffic source descriptor. All fields optional on the wire.
type TrafficSource struct {
	Source       string `json:"source"`
	Medium       string `json:"medium"`
	CampaignName string `json:"name"`
}

type Device struct {
	Category        string `json:"category"`
	OperatingSystem string `json:"operating_system"`
	Browser         string `json:"browser"`
}

type Geo struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

type Ecommerce struct {
	TransactionID     string  `json:"transaction_id"`
	PurchaseRevenue   float64 `json:"purchase_revenue"`
	TotalItemQuantity int64   `json:"total_item_quantity"`
}

const eventsTableName = "events"
const cacheIndexEventSeen = "event_seen"

// Seen keys only guard the fast path. The events primary key is the source
// of truth, so expiry here never breaks idempotency.
const eventSeenCacheExpirySecs = float64(24 * 3600)

func isDuplicateKeyError(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func getEventSeenCacheKey(eventID string) (*cacheRedis.Key, error) {
	return cacheRedis.NewKey(eventsTableName, cacheIndexEventSeen, eventID)
}

// NewEvent - Builds an events row from typed descriptors, assigning the
// idempotency token when the caller did not send one.
func NewEvent(id, userPseudoID, eventName string, timestamp int64, source *TrafficSource,
	device *Device, geo *Geo, ecommerce *Ecommerce, params U.PropertiesMap) (*Event, error) {

	if id == "" {
		id = U.EventIdempotencyToken(userPseudoID, eventName, timestamp)
	}

	event := &Event{
		ID:           id,
		UserPseudoID: userPseudoID,
		EventName:    eventName,
		Timestamp:    timestamp,
		Platform:     "WEB",
		IngestedAt:   U.TimeNowZ(),
	}

	var err error
	if event.TrafficSource, err = marshalJsonb(source); err != nil {
		return nil, err
	}
	if event.Device, err = marshalJsonb(device); err != nil {
		return nil, err
	}
	if event.Geo, err = marshalJsonb(geo); err != nil {
		return nil, err
	}
	if event.Ecommerce, err = marshalJsonb(ecommerce); err != nil {
		return nil, err
	}
	if event.EventParams, err = marshalJsonb(params); err != nil {
		return nil, err
	}
	return event, nil
}

func marshalJsonb(value interface{}) (postgres.Jsonb, error) {
	bytes, err := json.Marshal(value)
	if err != nil {
		return postgres.Jsonb{}, err
	}
	return postgres.Jsonb{RawMessage: bytes}, nil
}

// GetTrafficSource - Reads the nested traffic source descriptor. Missing or
// null JSON yields the zero value, matching the defaulted-optional contract.
func (event *Event) GetTrafficSource() TrafficSource {
	var source TrafficSource
	if len(event.TrafficSource.RawMessage) > 0 {
		json.Unmarshal(event.TrafficSource.RawMessage, &source)
	}
	return source
}

func (event *Event) GetEcommerce() Ecommerce {
	var ecommerce Ecommerce
	if len(event.Ecommerce.RawMessage) > 0 {
		json.Unmarshal(event.Ecommerce.RawMessage, &ecommerce)
	}
	return ecommerce
}

func (event *Event) GetDevice() Device {
	var device Device
	if len(event.Device.RawMessage) > 0 {
		json.Unmarshal(event.Device.RawMessage, &device)
	}
	return device
}

func (event *Event) GetGeo() Geo {
	var geo Geo
	if len(event.Geo.RawMessage) > 0 {
		json.Unmarshal(event.Geo.RawMessage, &geo)
	}
	return geo
}

func (event *Event) GetEventParams() U.PropertiesMap {
	params := U.PropertiesMap{}
	if len(event.EventParams.RawMessage) > 0 {
		json.Unmarshal(event.EventParams.RawMessage, &params)
	}
	return params
}

// Overridable in tests, to exercise the create flow without live services.
var checkEventSeen = func(key *cacheRedis.Key) (bool, error) {
	return cacheRedis.Exists(key)
}
var markEventSeen = func(key *cacheRedis.Key) error {
	_, err := cacheRedis.SetNX(key, "1", eventSeenCacheExpirySecs)
	return err
}
var insertEventRow = func(event *Event) error {
	return C.GetServices().Db.Create(event).Error
}

// CreateEvent - Idempotent insert. A second submission of an already seen
// event id is a no-op answered with StatusNotModified, never an error.
// The seen key is set only after the row exists. A transient insert failure
// leaves the fast path cold, so the retry reaches the table again instead of
// being answered duplicate for a row that was never written.
func CreateEvent(event *Event) (*Event, int) {
	logCtx := log.WithFields(log.Fields{"event_id": event.ID, "event_name": event.EventName})

	if event.ID == "" || event.UserPseudoID == "" || event.EventName == "" || event.Timestamp == 0 {
		logCtx.Error("CreateEvent failed. Missing required fields.")
		return nil, http.StatusBadRequest
	}

	// Fast path: already seen recently.
	seenKey, keyErr := getEventSeenCacheKey(event.ID)
	if keyErr == nil {
		seen, err := checkEventSeen(seenKey)
		if err != nil {
			// Cache unavailability is not fatal, the primary key still dedups.
			logCtx.WithError(err).Warn("Failed to check event seen cache on create event.")
		} else if seen {
			return event, http.StatusNotModified
		}
	}

	if err := insertEventRow(event); err != nil {
		if isDuplicateKeyError(err) {
			logCtx.Info("Skipped create for duplicate event id.")
			warmEventSeenCache(seenKey, keyErr, logCtx)
			return event, http.StatusNotModified
		}
		logCtx.WithError(err).Error("CreateEvent failed.")
		return nil, http.StatusInternalServerError
	}

	warmEventSeenCache(seenKey, keyErr, logCtx)
	return event, http.StatusCreated
}

func warmEventSeenCache(seenKey *cacheRedis.Key, keyErr error, logCtx *log.Entry) {
	if keyErr != nil {
		return
	}
	if err := markEventSeen(seenKey); err != nil {
		logCtx.WithError(err).Warn("Failed to mark event seen on create event.")
	}
}

// GetEventsInRange - Date partitioned batch read for the pipeline. Timestamps
// are micros, both bounds inclusive, ordered for deterministic downstream runs.
func GetEventsInRange(from, to int64) ([]Event, int) {
	db := C.GetServices().Db
	logCtx := log.WithFields(log.Fields{"from": from, "to": to})

	var events []Event
	err := db.Where("timestamp BETWEEN ? AND ?", from, to).
		Order("user_pseudo_id, timestamp, id").Find(&events).Error
	if err != nil {
		logCtx.WithError(err).Error("GetEventsInRange failed.")
		return nil, http.StatusInternalServerError
	}
	return events, http.StatusFound
}

// GetRecentEvents - Latest ingested events for the live feed, newest first.
func GetRecentEvents(limit int) ([]Event, int) {
	db := C.GetServices().Db

	if limit <= 0 {
		limit = 20
	}
	var events []Event
	err := db.Order("ingested_at desc").Limit(limit).Find(&events).Error
	if err != nil {
		log.WithError(err).Error("GetRecentEvents failed.")
		return nil, http.StatusInternalServerError
	}
	return events, http.StatusFound
}

// GetEventCountsByDay - Events per UTC day and name, data health summary
// for the dashboard.
func GetEventCountsByDay(from, to int64) (map[string]map[string]int64, int) {
	db := C.GetServices().Db
	logCtx := log.WithFields(log.Fields{"from": from, "to": to})

	rows, err := db.Raw("SELECT to_char(to_timestamp(timestamp / 1000000) AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, "+
		"event_name, COUNT(*) FROM events WHERE timestamp BETWEEN ? AND ? GROUP BY day, event_name", from, to).Rows()
	if err != nil {
		logCtx.WithError(err).Error("SQL Query failed on GetEventCountsByDay.")
		return nil, http.StatusInternalServerError
	}
	defer rows.Close()

	counts := make(map[string]map[string]int64)
	for rows.Next() {
		var day, eventName string
		var count int64
		if err = rows.Scan(&day, &eventName, &count); err != nil {
			logCtx.WithError(err).Error("SQL Parse failed on GetEventCountsByDay.")
			continue
		}
		if _, exists := counts[day]; !exists {
			counts[day] = make(map[string]int64)
		}
		counts[day][eventName] = count
	}
	return counts, http.StatusFound
}
