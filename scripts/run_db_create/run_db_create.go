package main

// Example usage on Terminal.
// go run run_db_create.go --env=development --db_host=localhost --db_port=5432 --db_user=attribution --db_name=attribution --db_pass=attribution

import (
	"flag"

	C "attribution/config"
	M "attribution/model"

	_ "github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", C.DEVELOPMENT, "")

	dbHost := flag.String("db_host", "localhost", "")
	dbPort := flag.Int("db_port", 5432, "")
	dbUser := flag.String("db_user", "attribution", "")
	dbName := flag.String("db_name", "attribution", "")
	dbPass := flag.String("db_pass", "attribution", "")

	redisHost := flag.String("redis_host", "localhost", "")
	redisPort := flag.Int("redis_port", 6379, "")

	flag.Parse()

	// Initialize configs and connections.
	err := C.Init(&C.Configuration{
		AppName: "db_create",
		Env:     *env,
		DBInfo: C.DBConf{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Name:     *dbName,
			Password: *dbPass,
		},
		Redis: C.RedisConf{Host: *redisHost, Port: *redisPort},
	})
	if err != nil {
		log.Error("Failed to initialize.")
		return
	}

	if C.GetConfig().Env != C.DEVELOPMENT {
		log.Error("Not Development Environment. Aborting")
		return
	}

	db := C.GetServices().Db
	defer db.Close()

	// Create events table.
	if err := db.CreateTable(&M.Event{}).Error; err != nil {
		log.WithFields(log.Fields{"err": err}).Error("events table creation failed.")
	} else {
		log.Info("Created events table")
	}

	// Journey scans read per user ordered by time.
	if err := db.Exec("CREATE INDEX events_user_timestamp_idx ON events(user_pseudo_id, timestamp);").Error; err != nil {
		log.WithFields(log.Fields{"err": err}).Error("events table user timestamp indexing failed.")
	} else {
		log.Info("events table user timestamp index created.")
	}

	// Live feed reads newest ingested first.
	if err := db.Exec("CREATE INDEX events_ingested_at_idx ON events(ingested_at);").Error; err != nil {
		log.WithFields(log.Fields{"err": err}).Error("events table ingested_at indexing failed.")
	} else {
		log.Info("events table ingested_at index created.")
	}
}
