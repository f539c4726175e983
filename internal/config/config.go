// Package config defines the configuration structures of the MMP service.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/storage/minio"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
}

// EngineConfig tunes the MMP engine itself.
type EngineConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// ToolkitConfig locates the remote chemistry toolkit.
type ToolkitConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// RedisConfig enables the cross-run toolkit cache.
type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	TTL               time.Duration `mapstructure:"ttl"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
	redis.RedisConfig `mapstructure:",squash"`
}

// DatabaseConfig groups relational stores.
type DatabaseConfig struct {
	Postgres postgres.PostgresConfig `mapstructure:"postgres"`
}

// KafkaConfig holds run event publishing and the worker consumer.
type KafkaConfig struct {
	Enabled           bool                 `mapstructure:"enabled"`
	Brokers           []string             `mapstructure:"brokers"`
	AutoCreateTopics  bool                 `mapstructure:"auto_create_topics"`
	NumPartitions     int                  `mapstructure:"num_partitions"`
	ReplicationFactor int                  `mapstructure:"replication_factor"`
	Producer          kafka.ProducerConfig `mapstructure:"producer"`
	Consumer          kafka.ConsumerConfig `mapstructure:"consumer"`
}

// MinIOConfig enables minio:// table locations.
type MinIOConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	minio.MinIOConfig `mapstructure:",squash"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled                     bool   `mapstructure:"enabled"`
	Path                        string `mapstructure:"path"`
	prometheus.CollectorConfig `mapstructure:",squash"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of the service.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Log      logging.LogConfig `mapstructure:"log"`
	MMP      mmp.Settings      `mapstructure:"mmp"`
	Engine   EngineConfig      `mapstructure:"engine"`
	Toolkit  ToolkitConfig     `mapstructure:"toolkit"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Database DatabaseConfig    `mapstructure:"database"`
	Neo4j    neo4j.Neo4jConfig `mapstructure:"neo4j"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered.  Optional stores are checked only
// when enabled.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// MMP
	if c.MMP.MoleculeColumn == "" {
		return fmt.Errorf("config: mmp.molecule_column is required")
	}
	if !c.MMP.Precedence.Valid() {
		return fmt.Errorf("config: mmp.precedence %q is invalid; expected %q or %q",
			c.MMP.Precedence, mmp.PrecedenceRightOverLeft, mmp.PrecedenceLeftOverRight)
	}
	if c.Engine.CacheSize < 0 {
		return fmt.Errorf("config: engine.cache_size must be ≥ 0, got %d", c.Engine.CacheSize)
	}

	// Toolkit
	if c.Toolkit.URL == "" {
		return fmt.Errorf("config: toolkit.url is required")
	}
	if c.Toolkit.RetryMax < 0 {
		return fmt.Errorf("config: toolkit.retry_max must be ≥ 0, got %d", c.Toolkit.RetryMax)
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" && len(c.Redis.ClusterAddrs) == 0 {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Postgres
	if pg := c.Database.Postgres; pg.Enabled {
		if pg.Host == "" {
			return fmt.Errorf("config: database.postgres.host is required")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("config: database.postgres.port %d is out of range [1, 65535]", pg.Port)
		}
		if pg.Database == "" {
			return fmt.Errorf("config: database.postgres.database is required")
		}
	}

	// Neo4j
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required when neo4j is enabled")
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Consumer.GroupID == "" {
			return fmt.Errorf("config: kafka.consumer.group_id is required")
		}
	}

	// MinIO
	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required when minio is enabled")
	}

	return nil
}

//Personal.AI order the ending
