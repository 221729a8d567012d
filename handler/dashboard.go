package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	mid "attribution/middleware"
	M "attribution/model"
	Q "attribution/quickchart"
	U "attribution/util"
)

type dashboardSummary struct {
	Conversions       int64   `json:"conversions"`
	DirectConversions int64   `json:"direct_conversions"`
	Touchpoints       int64   `json:"touchpoints"`
	FirstClickRevenue float64 `json:"first_click_revenue"`
	LastClickRevenue  float64 `json:"last_click_revenue"`
	RevenueDiff       float64 `json:"revenue_diff"`
}

// Test command.
// curl -i "http://localhost:8080/projects/dashboard/charts?from=1706745600&to=1707350400"
func DashboardChartsHandler(c *gin.Context) {
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
		logCtx.WithError(err).Error("Dashboard query failed.")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary := dashboardSummary{
		Conversions:       stats.Conversions,
		DirectConversions: stats.DirectConversions,
		Touchpoints:       stats.Touchpoints,
	}

	// Collapse days to per channel totals for the chart.
	type channelRevenue struct{ first, last float64 }
	byChannel := make(map[string]*channelRevenue)
	for _, row := range rows {
		if _, exists := byChannel[row.Channel]; !exists {
			byChannel[row.Channel] = &channelRevenue{}
		}
		byChannel[row.Channel].first += row.FirstClickRevenue
		byChannel[row.Channel].last += row.LastClickRevenue
		summary.FirstClickRevenue += row.FirstClickRevenue
		summary.LastClickRevenue += row.LastClickRevenue
	}
	summary.RevenueDiff = summary.LastClickRevenue - summary.FirstClickRevenue

	channels := make([]string, 0, len(byChannel))
	for channel := range byChannel {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	labels := make([]interface{}, 0, len(channels))
	firstSeries := make([]interface{}, 0, len(channels))
	lastSeries := make([]interface{}, 0, len(channels))
	for _, channel := range channels {
		labels = append(labels, channel)
		firstSeries = append(firstSeries, byChannel[channel].first)
		lastSeries = append(lastSeries, byChannel[channel].last)
	}

	chartConfig := Q.NewGroupedBarChart("Revenue by Channel", labels,
		Q.Dataset{Label: "First Click", Data: firstSeries, BackgroundColor: "#4e79a7"},
		Q.Dataset{Label: "Last Click", Data: lastSeries, BackgroundColor: "#f28e2b"})
	chartURL, err := Q.GetChartImageUrlForConfig(chartConfig)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build dashboard chart url.")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			gin.H{"error": "Failed to build chart url."})
		return
	}

	// Per day revenue time series, one line per model.
	type dayRevenue struct{ first, last float64 }
	byDay := make(map[string]*dayRevenue)
	for _, row := range rows {
		if _, exists := byDay[row.Day]; !exists {
			byDay[row.Day] = &dayRevenue{}
		}
		byDay[row.Day].first += row.FirstClickRevenue
		byDay[row.Day].last += row.LastClickRevenue
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	dayLabels := make([]interface{}, 0, len(days))
	firstDaily := make([]interface{}, 0, len(days))
	lastDaily := make([]interface{}, 0, len(days))
	for _, day := range days {
		dayLabels = append(dayLabels, day)
		firstDaily = append(firstDaily, byDay[day].first)
		lastDaily = append(lastDaily, byDay[day].last)
	}

	dailyConfig := Q.NewLineChart("Daily Revenue by Model", dayLabels,
		Q.Dataset{Label: "First Click", Data: firstDaily, BorderColor: "#4e79a7"},
		Q.Dataset{Label: "Last Click", Data: lastDaily, BorderColor: "#f28e2b"})
	dailyChartURL, err := Q.GetChartImageUrlForConfig(dailyConfig)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build dashboard daily chart url.")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			gin.H{"error": "Failed to build chart url."})
		return
	}

	tableConfig := Q.TableConfig{
		Title: "Attribution Model Comparison",
		Columns: []Q.Column{
			{Width: 120, Title: "Channel", DataIndex: "channel"},
			{Width: 100, Title: "Day", DataIndex: "day"},
			{Width: 100, Title: "First Click", DataIndex: "first_click_revenue"},
			{Width: 100, Title: "Last Click", DataIndex: "last_click_revenue"},
			{Width: 100, Title: "Diff", DataIndex: "revenue_diff"},
		},
	}
	for _, row := range rows {
		tableConfig.DataSource = append(tableConfig.DataSource, row)
	}
	tableURL, err := Q.GetTableURLfromTableConfig(tableConfig)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build dashboard table url.")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			gin.H{"error": "Failed to build table url."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":         summary,
		"chart_url":       chartURL,
		"daily_chart_url": dailyChartURL,
		"table_url":       tableURL,
		"rows":            rows,
	})
}
