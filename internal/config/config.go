package config

import (
	"time"

	pkgconfig "github.com/krishangMittal/PlayMyJam/pkg/config"
	"github.com/krishangMittal/PlayMyJam/pkg/database"
	pkglog "github.com/krishangMittal/PlayMyJam/pkg/log"
	"github.com/krishangMittal/PlayMyJam/pkg/pubsub"
	"github.com/krishangMittal/PlayMyJam/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Store     StoreConfig
	Database  database.Config
	Mongo     MongoConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Rooms     RoomsConfig
	Requests  RequestsConfig
	Presence  PresenceConfig
	Reaper    ReaperConfig
	Archive   ArchiveConfig
	Events    pubsub.Config
	Log       pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type StoreConfig struct {
	Driver string // gorm, mongo
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type RoomsConfig struct {
	CodeLength int `mapstructure:"code_length"`
}

type RequestsConfig struct {
	RecentLimit       int  `mapstructure:"recent_limit"`
	MaxFieldLength    int  `mapstructure:"max_field_length"`
	StrictTransitions bool `mapstructure:"strict_transitions"`
	ListLimit         int  `mapstructure:"list_limit"`
}

type PresenceConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type ReaperConfig struct {
	Enabled   bool
	Interval  time.Duration
	Retention time.Duration
	Timeout   time.Duration
}

type ArchiveConfig struct {
	Enabled        bool
	Prefix         string
	storage.Config `mapstructure:",squash"`
}

// Load reads config.yaml from configPath (plus "." and "./config") and the environment.
func Load(configPath string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("store.driver", "gorm")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "./data/playmyjam.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "playmyjam")
	v.SetDefault("database.dbname", "playmyjam")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "dj-requests")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.max_pool_size", 100)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "1m")
	v.SetDefault("cache.prefix", "playmyjam:room")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rooms.code_length", 6)
	v.SetDefault("requests.recent_limit", 10)
	v.SetDefault("requests.max_field_length", 200)
	v.SetDefault("requests.strict_transitions", false)
	v.SetDefault("requests.list_limit", 100)
	v.SetDefault("presence.sync_interval", "30s")
	v.SetDefault("reaper.enabled", true)
	v.SetDefault("reaper.interval", "1h")
	v.SetDefault("reaper.retention", "24h")
	v.SetDefault("reaper.timeout", "5m")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "archive")
	v.SetDefault("archive.driver", "local")
	v.SetDefault("archive.local.base_path", "./data/archive")
	v.SetDefault("archive.s3.region", "us-east-1")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.topic", "playmyjam-activity")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "playmyjam")

	// Override from environment
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":          "PORT",
		"store.driver":         "STORE_DRIVER",
		"database.driver":      "DB_DRIVER",
		"database.host":        "DB_HOST",
		"database.port":        "DB_PORT",
		"database.user":        "DB_USER",
		"database.password":    "DB_PASSWORD",
		"database.dbname":      "DB_NAME",
		"database.file_path":   "DB_FILE_PATH",
		"mongo.uri":            "MONGO_URI",
		"redis.address":        "REDIS_ADDRESS",
		"redis.password":       "REDIS_PASSWORD",
		"events.driver":        "EVENTS_DRIVER",
		"events.kafka.brokers": "KAFKA_BROKERS",
		"archive.s3.endpoint":  "S3_ENDPOINT",
		"archive.s3.bucket":    "S3_BUCKET",
		"log.level":            "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Mongo.ConnectTimeout = pkgconfig.Duration(v, "mongo.connect_timeout", 10*time.Second)
	cfg.Cache.TTL = pkgconfig.Duration(v, "cache.ttl", time.Minute)
	cfg.Presence.SyncInterval = pkgconfig.Duration(v, "presence.sync_interval", 30*time.Second)
	cfg.Reaper.Interval = pkgconfig.Duration(v, "reaper.interval", time.Hour)
	cfg.Reaper.Retention = pkgconfig.Duration(v, "reaper.retention", 24*time.Hour)
	cfg.Reaper.Timeout = pkgconfig.Duration(v, "reaper.timeout", 5*time.Minute)

	// The event bus shares the Redis connection settings.
	cfg.Events.Redis = pubsub.RedisConfig{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	// Guard rails
	if cfg.WebSocket.SendBuffer <= 0 {
		cfg.WebSocket.SendBuffer = 256
	}
	if cfg.WebSocket.PingInterval >= cfg.WebSocket.PongWait {
		cfg.WebSocket.PingInterval = cfg.WebSocket.PongWait * 9 / 10
	}
	if cfg.Requests.RecentLimit <= 0 {
		cfg.Requests.RecentLimit = 10
	}

	return &cfg, nil
}
