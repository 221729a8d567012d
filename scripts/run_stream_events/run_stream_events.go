package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	C "attribution/config"
	M "attribution/model"
	"attribution/simulator"
	W "attribution/warehouse"

	log "github.com/sirupsen/logrus"
)

const (
	modeHTTP     = "http"
	modeBigquery = "bigquery"
)

// Streaming demo. Generates synthetic user journeys and streams them to the
// ingest endpoint or straight to the warehouse, then reports latency and
// optionally proves dedup by redelivering the first event.
//
// go run run_stream_events.go --mode=http --host=http://localhost:8080 --num_users=3 --events_per_user=5 --test_dedup
func main() {
	mode := flag.String("mode", modeHTTP, "Stream target, http or bigquery")
	host := flag.String("host", "http://localhost:8080", "Ingest API host for http mode")
	numUsers := flag.Int("num_users", 3, "Number of users to simulate")
	eventsPerUser := flag.Int("events_per_user", 5, "Events per user journey")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Generator seed")
	scenarioFile := flag.String("scenario_file", "", "Optional yaml scenario file")
	testDedup := flag.Bool("test_dedup", false, "Redeliver the first event and verify dedup")

	configFile := flag.String("config_file", "", "Config json for bigquery mode, overrides the bigquery flags")
	bigqueryProject := flag.String("bigquery_project", "", "GCP project id for bigquery mode")
	bigqueryDataset := flag.String("bigquery_dataset", "attribution_data", "")
	bigqueryTable := flag.String("bigquery_table", "events_streaming", "")
	bigqueryCredentialsFile := flag.String("bigquery_credentials_file", "", "")

	flag.Parse()
	log.SetFormatter(&log.JSONFormatter{})

	scenario := simulator.DefaultScenario()
	if *scenarioFile != "" {
		var err error
		scenario, err = simulator.LoadScenarioFile(*scenarioFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to load scenario file.")
		}
	}

	gen := simulator.NewGenerator(scenario, *seed)
	events, err := gen.GenerateBatch(*numUsers, *eventsPerUser)
	if err != nil {
		log.WithError(err).Fatal("Failed to generate events.")
	}
	log.WithFields(log.Fields{"users": *numUsers,
		"events": len(events)}).Info("Generated user journeys.")

	switch *mode {
	case modeHTTP:
		runHTTPStream(*host, events, *testDedup)
	case modeBigquery:
		if *configFile != "" {
			if err := C.InitFromFile(*configFile); err != nil {
				log.WithError(err).Fatal("Failed to initialize from config file.")
			}
		} else {
			err := C.Init(&C.Configuration{
				AppName: "stream_events",
				Env:     C.DEVELOPMENT,
				Bigquery: C.BigqueryConf{
					Enabled:             true,
					ProjectID:           *bigqueryProject,
					Dataset:             *bigqueryDataset,
					Table:               *bigqueryTable,
					CredentialsJSONFile: *bigqueryCredentialsFile,
				},
			})
			if err != nil {
				log.WithError(err).Fatal("Failed to initialize.")
			}
		}
		runBigqueryStream(events, *testDedup)
	default:
		log.WithField("mode", *mode).Fatal("Unknown stream mode.")
	}
}

func toTrackPayload(event *M.Event) map[string]interface{} {
	source := event.GetTrafficSource()
	device := event.GetDevice()
	geo := event.GetGeo()

	payload := map[string]interface{}{
		"event_id":        event.ID,
		"user_pseudo_id":  event.UserPseudoID,
		"event_name":      event.EventName,
		"event_timestamp": event.Timestamp,
		"traffic_source":  source,
		"device":          device,
		"geo":             geo,
		"event_params":    event.GetEventParams(),
		"stream_id":       event.StreamID,
	}
	if ecommerce := event.GetEcommerce(); ecommerce.PurchaseRevenue > 0 {
		payload["ecommerce"] = ecommerce
	}
	return payload
}

func postJSON(url string, body interface{}) (int, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	return resp.StatusCode, out.Bytes(), err
}

func runHTTPStream(host string, events []*M.Event, testDedup bool) {
	payloads := make([]map[string]interface{}, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, toTrackPayload(event))
	}

	start := time.Now()
	status, _, err := postJSON(host+"/sdk/event/bulk", payloads)
	latency := time.Since(start)
	if err != nil || status != http.StatusOK {
		log.WithError(err).WithField("status", status).Fatal("Failed to stream events.")
	}
	log.WithFields(log.Fields{
		"events":               len(events),
		"latency_ms":           latency.Milliseconds(),
		"avg_latency_ms_event": float64(latency.Milliseconds()) / float64(len(events)),
	}).Info("Streamed events.")

	if testDedup && len(events) > 0 {
		first := toTrackPayload(events[0])
		status, raw, err := postJSON(host+"/sdk/event/track", first)
		if err != nil {
			log.WithError(err).Fatal("Failed to redeliver event for dedup test.")
		}

		var response struct {
			Type string `json:"type"`
		}
		json.Unmarshal(raw, &response)
		if status == http.StatusOK && response.Type == "duplicate" {
			log.WithField("event_id", events[0].ID).Info("Dedup verified. Redelivery answered duplicate.")
		} else {
			log.WithFields(log.Fields{"status": status,
				"type": response.Type}).Error("Dedup check failed. Redelivery was not answered as duplicate.")
		}
	}

	resp, err := http.Get(host + "/projects/events/live?limit=10")
	if err != nil {
		log.WithError(err).Error("Failed to read live events feed.")
		return
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	fmt.Println(out.String())
}

func runBigqueryStream(events []*M.Event, testDedup bool) {
	ctx := context.Background()
	client, err := W.CreateBigqueryClient(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bigquery client.")
	}
	defer client.Close()

	if err := W.EnsureEventsTable(ctx, client); err != nil {
		log.WithError(err).Fatal("Failed to ensure bigquery events table.")
	}

	rows := make([]M.Event, 0, len(events))
	for _, event := range events {
		rows = append(rows, *event)
	}

	start := time.Now()
	if err := W.StreamEvents(ctx, client, rows); err != nil {
		log.WithError(err).Fatal("Failed to stream events to bigquery.")
	}
	latency := time.Since(start)
	log.WithFields(log.Fields{"events": len(rows),
		"latency_ms": latency.Milliseconds()}).Info("Streamed events to bigquery.")

	if testDedup && len(rows) > 0 {
		if err := W.StreamEvents(ctx, client, rows[:1]); err != nil {
			log.WithError(err).Fatal("Failed to redeliver event for dedup test.")
		}
		// Wait for the insert buffer to be queryable.
		time.Sleep(2 * time.Second)

		count, errCode := W.GetEventCopyCount(ctx, client, rows[0].ID)
		if errCode != http.StatusFound {
			log.Error("Dedup check failed. Copy count query failed.")
		} else if count == 1 {
			log.WithField("event_id", rows[0].ID).Info("Dedup verified. Only one copy of the event exists.")
		} else {
			log.WithFields(log.Fields{"event_id": rows[0].ID,
				"copies": count}).Error("Dedup check failed. Multiple copies found.")
		}
	}
}
