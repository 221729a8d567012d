package config

import (
	json "encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var initiated bool = false

const DEVELOPMENT = "development"

type DBConf struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RedisConf struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type BigqueryConf struct {
	Enabled             bool   `json:"enabled"`
	ProjectID           string `json:"project_id"`
	Dataset             string `json:"dataset"`
	Table               string `json:"table"`
	CredentialsJSONFile string `json:"credentials_json_file"`
}

type PipelineConf struct {
	LookbackDays         int      `json:"lookback_days"`
	ConversionEventTypes []string `json:"conversion_event_types"`
}

type Configuration struct {
	AppName        string       `json:"app_name"`
	Env            string       `json:"env"`
	Port           int          `json:"port"`
	DBInfo         DBConf       `json:"db"`
	Redis          RedisConf    `json:"redis"`
	Bigquery       BigqueryConf `json:"bigquery"`
	Pipeline       PipelineConf `json:"pipeline"`
	QueryCacheSize int          `json:"query_cache_size"`
}

// Environment overrides on top of the config file, prefixed ATTRIBUTION_,
// i.e ATTRIBUTION_LOOKBACK_DAYS, ATTRIBUTION_CONVERSION_EVENT_TYPES.
type envOverrides struct {
	Port                 int      `split_words:"true"`
	LookbackDays         int      `split_words:"true"`
	ConversionEventTypes []string `split_words:"true"`
}

type Services struct {
	Db    *gorm.DB
	Redis *redis.Pool
}

var configuration *Configuration = nil
var services *Services = nil

func initLogging() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	}
}

// InitFromFile - Loads the configuration json and initializes. Used by
// scripts that carry a config file instead of flags.
func InitFromFile(configFilePath string) error {
	configFileAbsPath, _ := filepath.Abs(configFilePath)

	logCtx := log.WithFields(log.Fields{
		"file": configFileAbsPath,
	})

	raw, err := ioutil.ReadFile(configFileAbsPath)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load config")
		return err
	}

	if err := json.Unmarshal(raw, &configuration); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal json")
		return err
	}
	logCtx.WithFields(log.Fields{"config": configuration}).Info("Config File Loaded")
	return Init(configuration)
}

func initEnvOverrides() error {
	var overrides envOverrides
	if err := envconfig.Process("attribution", &overrides); err != nil {
		log.WithError(err).Error("Failed to process environment overrides")
		return err
	}

	if overrides.Port != 0 {
		configuration.Port = overrides.Port
	}
	if overrides.LookbackDays != 0 {
		configuration.Pipeline.LookbackDays = overrides.LookbackDays
	}
	if len(overrides.ConversionEventTypes) > 0 {
		configuration.Pipeline.ConversionEventTypes = overrides.ConversionEventTypes
	}
	return nil
}

func initServices() error {
	db, err := gorm.Open("postgres", fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=disable",
		configuration.DBInfo.Host,
		configuration.DBInfo.Port,
		configuration.DBInfo.User,
		configuration.DBInfo.Name,
		configuration.DBInfo.Password))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("Failed Db Initialization")
		return err
	}
	// Connection Pooling and Logging.
	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.LogMode(IsDevelopment())
	log.Info("Db Service initialized")

	redisAddr := fmt.Sprintf("%s:%d", configuration.Redis.Host, configuration.Redis.Port)
	redisPool := &redis.Pool{
		MaxIdle:     10,
		MaxActive:   100,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", redisAddr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	log.Infof("Redis Service Initialized with address: %s", redisAddr)

	services = &Services{Db: db, Redis: redisPool}
	return nil
}

// Initialize configs and connections.
func Init(config *Configuration) error {
	if initiated {
		return fmt.Errorf("Config already initialized")
	}
	configuration = config

	if err := initEnvOverrides(); err != nil {
		return err
	}
	initLogging()

	if err := initServices(); err != nil {
		return err
	}

	initiated = true
	return nil
}

// InitForTest - Seeds the configuration without the config file or
// services, for packages that only need defaults in tests.
func InitForTest(conf *Configuration) {
	configuration = conf
}

func GetConfig() *Configuration {
	return configuration
}

func GetServices() *Services {
	return services
}

// GetCacheRedisConnection - One connection from the pool. Caller closes.
func GetCacheRedisConnection() redis.Conn {
	return services.Redis.Get()
}

func GetLookbackDays() int {
	if configuration == nil {
		return 0
	}
	return configuration.Pipeline.LookbackDays
}

func GetConversionEventTypes() []string {
	if configuration == nil {
		return nil
	}
	return configuration.Pipeline.ConversionEventTypes
}

func GetQueryCacheSize() int {
	if configuration == nil || configuration.QueryCacheSize <= 0 {
		return 100
	}
	return configuration.QueryCacheSize
}

func IsDevelopment() bool {
	return (strings.Compare(configuration.Env, DEVELOPMENT) == 0)
}
