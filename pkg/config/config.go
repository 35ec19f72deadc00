package config

import (
	"fmt"
	"os"
	"time"

	"SolPulse/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Storage     StorageConfig    `yaml:"storage"`
	Postgres    PostgresConfig   `yaml:"postgres"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Cache       CacheConfig      `yaml:"cache"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Scoring     ScoringConfig    `yaml:"scoring"`
	Scheduler   SchedulerConfig  `yaml:"scheduler"`
	Queue       QueueConfig      `yaml:"queue"`
	Live        LiveConfig       `yaml:"live"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" default:"memory" validate:"oneof=memory postgres clickhouse"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns" default:"10" validate:"gte=1"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"solpulse"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"solpulse"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
	RankingTTL    time.Duration `yaml:"ranking_ttl" default:"5m"`
	StaleTTL      time.Duration `yaml:"stale_ttl" default:"24h"`
	ClockTTL      time.Duration `yaml:"clock_ttl" default:"5m"`
	NetworkTTL    time.Duration `yaml:"network_ttl" default:"5m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"1000" validate:"gte=1"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	SamplesTopic  string   `yaml:"samples_topic" default:"solpulse.token-hourly-stats"`
	RankingsTopic string   `yaml:"rankings_topic"`
	NetworkTopic  string   `yaml:"network_topic"`
	RequiredAcks  int      `yaml:"required_acks" default:"-1"`
	Compression   string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer      struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"100ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"solpulse-ingest"`
		Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
		BufferSize int           `yaml:"buffer_size" default:"64" validate:"gte=1"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
	} `yaml:"consumer"`
}

type ScoringConfig struct {
	Window               time.Duration `yaml:"window" default:"24h"`
	OutputSize           int           `yaml:"output_size" default:"50" validate:"gte=1"`
	MaxOutput            int           `yaml:"max_output" default:"100" validate:"gte=1"`
	CandidatePoolSize    int           `yaml:"candidate_pool_size" validate:"gte=0"`
	IncludeHoldersGrowth bool          `yaml:"include_holders_growth"`
	Weights              WeightsConfig `yaml:"weights"`
}

type WeightsConfig struct {
	Volume        float64 `yaml:"volume" default:"0.35" validate:"gte=0"`
	Buyers        float64 `yaml:"buyers" default:"0.20" validate:"gte=0"`
	Liquidity     float64 `yaml:"liquidity" default:"0.15" validate:"gte=0"`
	Engagement    float64 `yaml:"engagement" default:"0.10" validate:"gte=0"`
	HoldersGrowth float64 `yaml:"holders_growth" default:"0.15" validate:"gte=0"`
}

type SchedulerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	SnapshotSpec    string        `yaml:"snapshot_spec" default:"0 */5 * * * *"`
	SnapshotTimeout time.Duration `yaml:"snapshot_timeout" default:"1m"`
}

type QueueConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
	RetryLimit int           `yaml:"retry_limit" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
}

type LiveConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
}

type RateLimitConfig struct {
	RefreshCapacity float64 `yaml:"refresh_capacity" default:"2" validate:"gt=0"`
	RefreshPerSec   float64 `yaml:"refresh_per_sec" default:"0.1" validate:"gt=0"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// defaults are compile-time literals; failure means a broken tag
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

func decode(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SOLPULSE_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := getenv("KAFKA_SAMPLES_TOPIC"); v != "" {
		c.Kafka.SamplesTopic = v
	}
	if v := getenv("KAFKA_NETWORK_TOPIC"); v != "" {
		c.Kafka.NetworkTopic = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when storage.driver is postgres")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return fmt.Errorf("clickhouse.host and clickhouse.database are required when storage.driver is clickhouse")
		}
	}
	if c.Cache.Backend != "memory" && !c.Redis.Enabled {
		return fmt.Errorf("cache.backend %q requires redis.enabled", c.Cache.Backend)
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty")
		}
		if c.Kafka.SamplesTopic == "" {
			return fmt.Errorf("kafka.samples_topic is required")
		}
		if c.Kafka.NetworkTopic == c.Kafka.SamplesTopic {
			return fmt.Errorf("kafka.network_topic must differ from kafka.samples_topic")
		}
	}
	if c.Scoring.OutputSize > c.Scoring.MaxOutput {
		return fmt.Errorf("scoring.output_size (%d) must not exceed scoring.max_output (%d)", c.Scoring.OutputSize, c.Scoring.MaxOutput)
	}
	if c.Scoring.Window <= 0 {
		return fmt.Errorf("scoring.window must be positive")
	}
	return nil
}
