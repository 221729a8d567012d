package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	C "attribution/config"
	mid "attribution/middleware"
	M "attribution/model"
	U "attribution/util"
)

var queryCache *lru.Cache
var queryCacheOnce sync.Once

func getQueryCache() *lru.Cache {
	queryCacheOnce.Do(func() {
		var err error
		queryCache, err = lru.New(C.GetQueryCacheSize())
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize attribution query cache.")
		}
	})
	return queryCache
}

// Test command.
// curl -i -H "Content-Type: application/json" -X POST http://localhost:8080/projects/attribution/query -d '{"from": 1706745600, "to": 1707350400, "lookback_days": 14}'
func AttributionQueryHandler(c *gin.Context) {
	r := c.Request

	logCtx := log.WithFields(log.Fields{
		"reqId": U.GetScopeByKeyAsString(c, mid.SCOPE_REQUEST_ID),
	})

	var query M.AttributionQuery
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&query); err != nil {
		logCtx.WithError(err).Error("Attribution query failed. Json Decoding failed.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query payload."})
		return
	}
	applyQueryDefaults(&query)

	hashString, err := query.GetQueryCacheHashString()
	if err == nil {
		if cached, exists := getQueryCache().Get(hashString); exists {
			c.JSON(http.StatusOK, gin.H{"result": cached, "cache": true})
			return
		}
	}

	result, err := M.ExecuteAttributionQuery(&query)
	if err != nil {
		logCtx.WithError(err).Error("Attribution query failed.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if hashString != "" {
		getQueryCache().Add(hashString, result)
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "cache": false})
}

// Test command.
// curl -i "http://localhost:8080/projects/attribution/comparison?from=1706745600&to=1707350400"
func ComparisonHandler(c *gin.Context) {
	logCtx := log.WithFields(log.Fields{
		"reqId": U.GetScopeByKeyAsString(c, mid.SCOPE_REQUEST_ID),
	})

	query, err := queryFromParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, stats, err := M.ExecuteComparisonQuery(query)
	if err != nil {
		logCtx.WithError(err).Error("Comparison query failed.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows, "stats": stats})
}

// live feed freshness states.
const (
	liveFeedStateLive   = "live"
	liveFeedStateRecent = "recent"
	liveFeedStateStale  = "stale"
	liveFeedStateEmpty  = "empty"
)

type liveEventRow struct {
	EventId      string `json:"event_id"`
	EventName    string `json:"event_name"`
	UserPseudoId string `json:"user_pseudo_id"`
	Source       string `json:"source"`
	Medium       string `json:"medium"`
	EventTime    string `json:"event_time"`
	SecondsAgo   int64  `json:"seconds_ago"`
}

// Test command.
// curl -i "http://localhost:8080/projects/events/live?limit=20"
func LiveEventsHandler(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit."})
			return
		}
		limit = parsed
	}

	events, errCode := M.GetRecentEvents(limit)
	if errCode != http.StatusFound {
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			gin.H{"error": "Failed to get recent events."})
		return
	}

	now := time.Now().UTC()
	rows := make([]liveEventRow, 0, len(events))
	var mostRecentSecondsAgo int64 = -1
	for i := range events {
		event := &events[i]
		source := event.GetTrafficSource()
		secondsAgo := int64(now.Sub(event.IngestedAt).Seconds())
		if mostRecentSecondsAgo < 0 || secondsAgo < mostRecentSecondsAgo {
			mostRecentSecondsAgo = secondsAgo
		}
		rows = append(rows, liveEventRow{
			EventId:      event.ID,
			EventName:    event.EventName,
			UserPseudoId: event.UserPseudoID,
			Source:       source.Source,
			Medium:       source.Medium,
			EventTime:    U.TimeFromMicros(event.Timestamp).Format(time.RFC3339),
			SecondsAgo:   secondsAgo,
		})
	}

	state := liveFeedStateEmpty
	if mostRecentSecondsAgo >= 0 {
		switch {
		case mostRecentSecondsAgo < 60:
			state = liveFeedStateLive
		case mostRecentSecondsAgo < 300:
			state = liveFeedStateRecent
		default:
			state = liveFeedStateStale
		}
	}

	c.JSON(http.StatusOK, gin.H{"state": state,
		"most_recent_seconds_ago": mostRecentSecondsAgo, "events": rows})
}

// Test command.
// curl -i "http://localhost:8080/projects/events/health?from=1706745600&to=1707350400"
func EventsHealthHandler(c *gin.Context) {
	now := time.Now().Unix()
	from := now - 14*U.SecsInADay
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query param from."})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < from {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid query param to."})
			return
		}
		to = parsed
	}

	counts, errCode := M.GetEventCountsByDay(from*U.MicrosPerSecond,
		to*U.MicrosPerSecond+(U.MicrosPerSecond-1))
	if errCode != http.StatusFound {
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			gin.H{"error": "Failed to get event counts."})
		return
	}

	var total int64
	for _, byName := range counts {
		for _, count := range byName {
			total += count
		}
	}

	c.JSON(http.StatusOK, gin.H{"from": from, "to": to,
		"total_events": total, "counts_by_day": counts})
}

func applyQueryDefaults(query *M.AttributionQuery) {
	if query.LookbackDays == 0 {
		query.LookbackDays = C.GetLookbackDays()
	}
	if len(query.ConversionEventTypes) == 0 {
		query.ConversionEventTypes = C.GetConversionEventTypes()
	}
}

func queryFromParams(c *gin.Context) (*M.AttributionQuery, error) {
	from, err := strconv.ParseInt(c.Query("from"), 10, 64)
	if err != nil {
		return nil, errInvalidQueryParam("from")
	}
	to, err := strconv.ParseInt(c.Query("to"), 10, 64)
	if err != nil {
		return nil, errInvalidQueryParam("to")
	}

	query := &M.AttributionQuery{From: from, To: to}
	if raw := c.Query("lookback_days"); raw != "" {
		lookbackDays, err := strconv.Atoi(raw)
		if err != nil || lookbackDays < 0 {
			return nil, errInvalidQueryParam("lookback_days")
		}
		query.LookbackDays = lookbackDays
	}
	if raw := c.Query("conversion_event_types"); raw != "" {
		query.ConversionEventTypes = U.ParseStringList(raw)
	}
	applyQueryDefaults(query)
	return query, nil
}

type invalidQueryParamError struct{ param string }

func (e invalidQueryParamError) Error() string {
	return "Invalid query param " + strings.TrimSpace(e.param) + "."
}

func errInvalidQueryParam(param string) error {
	return invalidQueryParamError{param: param}
}
