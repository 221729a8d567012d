package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	mid "attribution/middleware"
	M "attribution/model"
	U "attribution/util"
)

type SDKTrackPayload struct {
	// optional, computed from user, name and timestamp when empty.
	EventId      string           `json:"event_id"`
	UserPseudoId string           `json:"user_pseudo_id"`
	Name         string           `json:"event_name"`
	// unix epoch microseconds.
	Timestamp     int64            `json:"event_timestamp"`
	TrafficSource *M.TrafficSource `json:"traffic_source"`
	Device        *M.Device        `json:"device"`
	Geo           *M.Geo           `json:"geo"`
	Ecommerce     *M.Ecommerce     `json:"ecommerce"`
	EventParams   U.PropertiesMap  `json:"event_params"`
	StreamId      string           `json:"stream_id"`
	UserAgent     string           `json:"-"`
}

type SDKTrackResponse struct {
	EventId string `json:"event_id,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	sdkResponseTypeCreated   = "created"
	sdkResponseTypeDuplicate = "duplicate"
	sdkResponseTypeBotSkip   = "bot_skipped"
)

const sdkBulkEventLimit = 50000

// SDKTrack - Ingests one event. Safe to call again with the same payload,
// the second call answers duplicate without touching the table twice.
func SDKTrack(reqPayload *SDKTrackPayload) (int, *SDKTrackResponse) {
	logCtx := log.WithFields(log.Fields{"user_pseudo_id": reqPayload.UserPseudoId,
		"event_name": reqPayload.Name})

	if U.IsBotUserAgent(reqPayload.UserAgent) {
		return http.StatusOK, &SDKTrackResponse{Type: sdkResponseTypeBotSkip,
			Message: "Tracking skipped. Bot user agent."}
	}

	if reqPayload.UserPseudoId == "" || reqPayload.Name == "" || reqPayload.Timestamp <= 0 {
		return http.StatusBadRequest,
			&SDKTrackResponse{Error: "Tracking failed. Missing user_pseudo_id, event_name or event_timestamp."}
	}

	event, err := M.NewEvent(reqPayload.EventId, reqPayload.UserPseudoId, reqPayload.Name,
		reqPayload.Timestamp, reqPayload.TrafficSource, reqPayload.Device, reqPayload.Geo,
		reqPayload.Ecommerce, reqPayload.EventParams)
	if err != nil {
		logCtx.WithError(err).Error("Tracking failed. Failed to build event.")
		return http.StatusInternalServerError,
			&SDKTrackResponse{Error: "Tracking failed. Invalid event payload."}
	}
	event.StreamID = reqPayload.StreamId

	created, errCode := M.CreateEvent(event)
	switch errCode {
	case http.StatusCreated:
		return http.StatusCreated, &SDKTrackResponse{EventId: created.ID,
			Type: sdkResponseTypeCreated, Message: "Event tracked successfully."}
	case http.StatusNotModified:
		return http.StatusOK, &SDKTrackResponse{EventId: event.ID,
			Type: sdkResponseTypeDuplicate, Message: "Event already tracked."}
	case http.StatusBadRequest:
		return http.StatusBadRequest,
			&SDKTrackResponse{Error: "Tracking failed. Invalid event payload."}
	default:
		logCtx.WithField("err_code", errCode).Error("Tracking failed. Failed to create event.")
		return http.StatusInternalServerError,
			&SDKTrackResponse{Error: "Tracking failed. Please try again."}
	}
}

// Test command.
// curl -i -H "Content-Type: application/json" -X POST http://localhost:8080/sdk/event/track -d '{"user_pseudo_id": "user_1", "event_name": "page_view", "event_timestamp": 1706745600000000, "traffic_source": {"source": "google", "medium": "organic"}}'
func SDKTrackHandler(c *gin.Context) {
	r := c.Request

	logCtx := log.WithFields(log.Fields{
		"reqId": U.GetScopeByKeyAsString(c, mid.SCOPE_REQUEST_ID),
	})

	if r.Body == nil {
		logCtx.Error("Invalid request. Request body unavailable.")
		c.AbortWithStatusJSON(http.StatusBadRequest,
			&SDKTrackResponse{Error: "Tracking failed. Missing request body."})
		return
	}

	var request SDKTrackPayload

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		logCtx.WithError(err).Error("Tracking failed. Json Decoding failed.")
		c.AbortWithStatusJSON(http.StatusBadRequest,
			&SDKTrackResponse{Error: "Tracking failed. Invalid payload."})
		return
	}

	request.UserAgent = c.Request.UserAgent()
	c.JSON(SDKTrack(&request))
}

// Test command.
// curl -i -H "Content-Type: application/json" -X POST http://localhost:8080/sdk/event/bulk -d '[{"user_pseudo_id": "user_1", "event_name": "page_view", "event_timestamp": 1706745600000000}]'
func SDKBulkEventHandler(c *gin.Context) {
	r := c.Request

	logCtx := log.WithFields(log.Fields{
		"reqId": U.GetScopeByKeyAsString(c, mid.SCOPE_REQUEST_ID),
	})

	if r.Body == nil {
		logCtx.Error("Invalid request. Request body unavailable.")
		c.AbortWithStatusJSON(http.StatusBadRequest,
			&SDKTrackResponse{Error: "Tracking failed. Missing request body."})
		return
	}

	var sdkTrackPayloads []SDKTrackPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&sdkTrackPayloads); err != nil {
		logCtx.WithError(err).Error("Tracking failed. Json Decoding failed.")
		c.AbortWithStatusJSON(http.StatusBadRequest,
			&SDKTrackResponse{Error: "Tracking failed. Invalid payload."})
		return
	}

	if len(sdkTrackPayloads) > sdkBulkEventLimit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
			&SDKTrackResponse{Error: "Tracking failed. Request exceeds the bulk event limit."})
		return
	}

	userAgent := c.Request.UserAgent()

	response := make([]*SDKTrackResponse, len(sdkTrackPayloads))
	hasError := false

	for i := range sdkTrackPayloads {
		sdkTrackPayloads[i].UserAgent = userAgent

		errCode, resp := SDKTrack(&sdkTrackPayloads[i])
		if errCode >= http.StatusInternalServerError {
			hasError = true
		}
		response[i] = resp
	}

	respCode := http.StatusOK
	if hasError {
		respCode = http.StatusInternalServerError
	}

	c.JSON(respCode, response)
}
