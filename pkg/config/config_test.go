package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, 50, c.Scoring.OutputSize)
	assert.Equal(t, 100, c.Scoring.MaxOutput)
	assert.Equal(t, 0, c.Scoring.CandidatePoolSize)
	assert.Equal(t, 24*time.Hour, c.Scoring.Window)
	assert.InDelta(t, 0.35, c.Scoring.Weights.Volume, 1e-9)
	assert.InDelta(t, 0.20, c.Scoring.Weights.Buyers, 1e-9)
	assert.InDelta(t, 0.15, c.Scoring.Weights.Liquidity, 1e-9)
	assert.InDelta(t, 0.10, c.Scoring.Weights.Engagement, 1e-9)
	assert.False(t, c.Scoring.IncludeHoldersGrowth)
	assert.Equal(t, 5*time.Minute, c.Cache.RankingTTL)
	assert.Equal(t, 5*time.Minute, c.Cache.NetworkTTL)
	assert.Empty(t, c.Kafka.NetworkTopic)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "solpulse-ingest", c.Kafka.Consumer.GroupID)
	assert.Equal(t, "0 */5 * * * *", c.Scheduler.SnapshotSpec)
	require.NoError(t, c.Validate())
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
server:
  port: 9090
scoring:
  window: 12h
  output_size: 20
  candidate_pool_size: 500
  include_holders_growth: true
  weights:
    volume: 0.5
cache:
  ranking_ttl: 1m
`))
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 12*time.Hour, c.Scoring.Window)
	assert.Equal(t, 20, c.Scoring.OutputSize)
	assert.Equal(t, 500, c.Scoring.CandidatePoolSize)
	assert.True(t, c.Scoring.IncludeHoldersGrowth)
	assert.InDelta(t, 0.5, c.Scoring.Weights.Volume, 1e-9)
	// untouched siblings keep their defaults
	assert.InDelta(t, 0.20, c.Scoring.Weights.Buyers, 1e-9)
	assert.Equal(t, time.Minute, c.Cache.RankingTTL)
	assert.Equal(t, 24*time.Hour, c.Cache.StaleTTL)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"postgres without dsn":   "storage:\n  driver: postgres\n",
		"unknown driver":         "storage:\n  driver: mongo\n",
		"redis cache disabled":   "cache:\n  backend: redis\n",
		"queue without redis":    "queue:\n  enabled: true\n",
		"output above max":       "scoring:\n  output_size: 200\n",
		"kafka without topic":    "kafka:\n  enabled: true\n  samples_topic: \"\"\n",
		"network reuses samples": "kafka:\n  enabled: true\n  network_topic: solpulse.token-hourly-stats\n",
		"negative weight":        "scoring:\n  weights:\n    buyers: -1\n",
		"bad log level":          "log:\n  level: loud\n",
		"non positive window":    "scoring:\n  window: 0s\n",
		"negative candidate cap": "scoring:\n  candidate_pool_size: -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SOLPULSE_ENV":        "staging",
		"LOG_LEVEL":           "debug",
		"HTTP_PORT":           "8181",
		"STORAGE_DRIVER":      "postgres",
		"POSTGRES_DSN":        "postgres://solpulse@db/solpulse",
		"REDIS_ADDR":          "redis:6379",
		"KAFKA_BROKERS":       "k1:9092, k2:9092",
		"KAFKA_SAMPLES_TOPIC": "stats",
		"KAFKA_NETWORK_TOPIC": "network",
	}
	c := Default()
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 8181, c.Server.Port)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, "postgres://solpulse@db/solpulse", c.Postgres.DSN)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "stats", c.Kafka.SamplesTopic)
	assert.Equal(t, "network", c.Kafka.NetworkTopic)
	require.NoError(t, c.Validate())
}

func TestApplyEnvKeepsPortOnGarbage(t *testing.T) {
	c := Default()
	c.applyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "not-a-port"
		}
		return ""
	})
	assert.Equal(t, 8080, c.Server.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  output_size: 10\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Scoring.OutputSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRepositoryConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 50, c.Scoring.OutputSize)
}
