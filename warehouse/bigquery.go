package warehouse

import (
	"context"
	"io/ioutil"
	"net/http"
	"time"

	C "attribution/config"
	M "attribution/model"
	U "attribution/util"

	bigquery "cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Flat export schema for the events table. Micros timestamps are kept as
// integers the same way the OLTP store keeps them.
var eventsTableSchema = bigquery.Schema{
	{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "user_pseudo_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "event_name", Type: bigquery.StringFieldType, Required: true},
	{Name: "event_timestamp", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "event_date", Type: bigquery.StringFieldType},
	{Name: "source", Type: bigquery.StringFieldType},
	{Name: "medium", Type: bigquery.StringFieldType},
	{Name: "campaign_name", Type: bigquery.StringFieldType},
	{Name: "device_category", Type: bigquery.StringFieldType},
	{Name: "geo_country", Type: bigquery.StringFieldType},
	{Name: "purchase_revenue", Type: bigquery.FloatFieldType},
	{Name: "transaction_id", Type: bigquery.StringFieldType},
	{Name: "ingested_at", Type: bigquery.TimestampFieldType},
}

// CreateBigqueryClient - Client from the configured service account file,
// falling back to application default credentials when no file is set.
func CreateBigqueryClient(ctx context.Context) (*bigquery.Client, error) {
	conf := C.GetConfig().Bigquery
	if !conf.Enabled {
		return nil, errors.New("bigquery is not enabled on config")
	}

	var opts []option.ClientOption
	if conf.CredentialsJSONFile != "" {
		keyByte, err := ioutil.ReadFile(conf.CredentialsJSONFile)
		if err != nil {
			log.WithError(err).Error("Failed to read bigquery credentials file")
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(keyByte))
	}

	client, err := bigquery.NewClient(ctx, conf.ProjectID, opts...)
	if err != nil {
		log.WithError(err).Error("Failed to get bigquery client")
		return nil, err
	}
	return client, nil
}

// Day partitioning is the zero value of TimePartitioning, clustering by user
// keeps journey scans cheap.
func eventsTableMetadata() *bigquery.TableMetadata {
	return &bigquery.TableMetadata{
		Schema:           eventsTableSchema,
		TimePartitioning: &bigquery.TimePartitioning{},
		Clustering:       &bigquery.Clustering{Fields: []string{"user_pseudo_id"}},
	}
}

// EnsureEventsTable - Creates the export table if missing, day partitioned
// on ingestion and clustered by user for journey scans.
func EnsureEventsTable(ctx context.Context, client *bigquery.Client) error {
	conf := C.GetConfig().Bigquery
	table := client.Dataset(conf.Dataset).Table(conf.Table)

	if _, err := table.Metadata(ctx); err == nil {
		return nil
	}

	err := table.Create(ctx, eventsTableMetadata())
	if err != nil {
		log.WithError(err).Error("Failed to create bigquery events table")
		return err
	}
	log.WithFields(log.Fields{"dataset": conf.Dataset,
		"table": conf.Table}).Info("Created bigquery events table.")
	return nil
}

// StreamEvents - Streams a batch through the insert buffer. InsertID is the
// event idempotency token, so redelivered batches dedup on the warehouse
// side too.
func StreamEvents(ctx context.Context, client *bigquery.Client, events []M.Event) error {
	conf := C.GetConfig().Bigquery
	ins := client.Dataset(conf.Dataset).Table(conf.Table).Inserter()

	var vss []*bigquery.ValuesSaver
	for i := range events {
		event := &events[i]
		source := event.GetTrafficSource()
		ecommerce := event.GetEcommerce()
		device := event.GetDevice()
		geo := event.GetGeo()

		row := []bigquery.Value{
			event.ID,
			event.UserPseudoID,
			event.EventName,
			event.Timestamp,
			U.GetDateOnlyFromMicrosZ(event.Timestamp),
			source.Source,
			source.Medium,
			source.CampaignName,
			device.Category,
			geo.Country,
			ecommerce.PurchaseRevenue,
			ecommerce.TransactionID,
			time.Now().UTC(),
		}
		vss = append(vss, &bigquery.ValuesSaver{
			Schema:   eventsTableSchema,
			InsertID: event.ID,
			Row:      row,
		})
	}

	if err := ins.Put(ctx, vss); err != nil {
		log.WithError(err).WithField("batch_size", len(vss)).Error("Failed to stream events to bigquery")
		return err
	}
	log.WithField("batch_size", len(vss)).Info("Streamed events to bigquery.")
	return nil
}

// GetEventCopyCount - Copies of one event id on the export table. Exactly
// one copy after a redelivery means insert dedup held.
func GetEventCopyCount(ctx context.Context, client *bigquery.Client, eventID string) (int64, int) {
	conf := C.GetConfig().Bigquery
	q := client.Query(
		"SELECT COUNT(*) FROM `" + conf.ProjectID + "." + conf.Dataset + "." + conf.Table +
			"` WHERE event_id = @event_id")
	q.Parameters = []bigquery.QueryParameter{
		{Name: "event_id", Value: eventID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to query event copy count")
		return 0, http.StatusInternalServerError
	}

	var row []bigquery.Value
	err = it.Next(&row)
	if err == iterator.Done || len(row) == 0 {
		return 0, http.StatusFound
	}
	if err != nil {
		log.WithError(err).Error("Failed to read event copy count row")
		return 0, http.StatusInternalServerError
	}
	return row[0].(int64), http.StatusFound
}
