package main

import (
	"flag"
	"strconv"

	C "attribution/config"
	H "attribution/handler"
	mid "attribution/middleware"
	M "attribution/model"
	U "attribution/util"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ./app --env=development --api_http_port=8080 --db_host=localhost --db_port=5432 --db_user=attribution --db_name=attribution --db_pass=attribution --redis_host=localhost --redis_port=6379
func main() {

	env := flag.String("env", "development", "")
	port := flag.Int("api_http_port", 8080, "")

	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 5432, "")
	dbUser := flag.String("db_user", "attribution", "")
	dbName := flag.String("db_name", "attribution", "")
	dbPass := flag.String("db_pass", "attribution", "")

	redisHost := flag.String("redis_host", "localhost", "")
	redisPort := flag.Int("redis_port", 6379, "")

	lookbackDays := flag.Int("lookback_days", M.DefaultLookbackDays, "Attribution lookback window in days")
	conversionEventTypes := flag.String("conversion_event_types", "", "Comma separated conversion event names")
	queryCacheSize := flag.Int("query_cache_size", 100, "Attribution query result cache entries")

	bigqueryEnabled := flag.Bool("bigquery_enabled", false, "")
	bigqueryProject := flag.String("bigquery_project", "", "")
	bigqueryDataset := flag.String("bigquery_dataset", "attribution_data", "")
	bigqueryTable := flag.String("bigquery_table", "events_streaming", "")
	bigqueryCredentialsFile := flag.String("bigquery_credentials_file", "", "")

	flag.Parse()

	config := &C.Configuration{
		AppName: "attribution_app",
		Env:     *env,
		Port:    *port,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
		Redis: C.RedisConf{Host: *redisHost, Port: *redisPort},
		Bigquery: C.BigqueryConf{
			Enabled:             *bigqueryEnabled,
			ProjectID:           *bigqueryProject,
			Dataset:             *bigqueryDataset,
			Table:               *bigqueryTable,
			CredentialsJSONFile: *bigqueryCredentialsFile,
		},
		Pipeline: C.PipelineConf{
			LookbackDays:         *lookbackDays,
			ConversionEventTypes: U.ParseStringList(*conversionEventTypes),
		},
		QueryCacheSize: *queryCacheSize,
	}

	// Initialize configs and connections.
	err := C.Init(config)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize.")
		return
	}

	if C.IsDevelopment() {
		// Dev convenience, production schemas are managed by migrations.
		C.GetServices().Db.AutoMigrate(&M.Event{})
	}

	if !C.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Root middleware for cors.
	r.Use(mid.CustomCors())
	r.Use(mid.RequestIdGenerator())
	r.Use(mid.Logger())
	r.Use(mid.Recovery())

	// Initialize routes.
	H.InitAppRoutes(r)
	r.Run(":" + strconv.Itoa(C.GetConfig().Port))
}
