package config

import (
	"time"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 5 * time.Minute
	DefaultServerMaxBodySize     = 64 << 20
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerRunTimeout      = 10 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMoleculeColumn = "Molecule"

	DefaultToolkitURL       = "http://localhost:8090"
	DefaultToolkitTimeout   = 30 * time.Second
	DefaultToolkitRetryMax  = 3
	DefaultToolkitUserAgent = "keyip-mmp"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisTTL       = 24 * time.Hour
	DefaultRedisKeyPrefix = "mmp:toolkit:"

	DefaultDBHost = "localhost"
	DefaultDBPort = 5432
	DefaultDBName = "mmp"

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "mmp-workers"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "keyip"
	DefaultMetricsSubsystem = "mmp"
)

// ApplyDefaults fills every zero-value field in cfg.  Fields already set by
// the caller are left unchanged.  Call it after unmarshalling and before
// Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RunTimeout == 0 {
		cfg.Server.RunTimeout = DefaultServerRunTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── MMP ───────────────────────────────────────────────────────────────────
	if cfg.MMP.MoleculeColumn == "" {
		cfg.MMP.MoleculeColumn = DefaultMoleculeColumn
	}
	if cfg.MMP.ConnectionPoint == "" {
		cfg.MMP.ConnectionPoint = mmp.DefaultConnectionPoint
	}
	if cfg.MMP.Precedence == "" {
		cfg.MMP.Precedence = mmp.PrecedenceRightOverLeft
	}
	if cfg.MMP.NetworkColumn == "" {
		cfg.MMP.NetworkColumn = mmp.DefaultNetworkColumn
	}
	if cfg.Engine.CacheSize == 0 {
		cfg.Engine.CacheSize = mmp.DefaultCanonicalCacheSize
	}

	// ── Toolkit ───────────────────────────────────────────────────────────────
	if cfg.Toolkit.URL == "" {
		cfg.Toolkit.URL = DefaultToolkitURL
	}
	if cfg.Toolkit.Timeout == 0 {
		cfg.Toolkit.Timeout = DefaultToolkitTimeout
	}
	if cfg.Toolkit.RetryMax == 0 {
		cfg.Toolkit.RetryMax = DefaultToolkitRetryMax
	}
	if cfg.Toolkit.RetryWaitMin == 0 {
		cfg.Toolkit.RetryWaitMin = 100 * time.Millisecond
	}
	if cfg.Toolkit.RetryWaitMax == 0 {
		cfg.Toolkit.RetryWaitMax = 2 * time.Second
	}
	if cfg.Toolkit.UserAgent == "" {
		cfg.Toolkit.UserAgent = DefaultToolkitUserAgent
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" && len(cfg.Redis.ClusterAddrs) == 0 {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	pg := &cfg.Database.Postgres
	if pg.Host == "" {
		pg.Host = DefaultDBHost
	}
	if pg.Port == 0 {
		pg.Port = DefaultDBPort
	}
	if pg.Database == "" {
		pg.Database = DefaultDBName
	}
	if pg.SSLMode == "" {
		pg.SSLMode = "disable"
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if len(cfg.Kafka.Producer.Brokers) == 0 {
		cfg.Kafka.Producer.Brokers = cfg.Kafka.Brokers
	}
	if len(cfg.Kafka.Consumer.Brokers) == 0 {
		cfg.Kafka.Consumer.Brokers = cfg.Kafka.Brokers
	}
	if cfg.Kafka.Consumer.GroupID == "" {
		cfg.Kafka.Consumer.GroupID = DefaultKafkaGroupID
	}
	if len(cfg.Kafka.Consumer.Topics) == 0 {
		cfg.Kafka.Consumer.Topics = []string{kafka.TopicRunRequested}
	}
	if cfg.Kafka.Consumer.Retry.DeadLetterTopic == "" {
		cfg.Kafka.Consumer.Retry.DeadLetterTopic = kafka.TopicDeadLetterRun
	}
	if cfg.Kafka.NumPartitions == 0 {
		cfg.Kafka.NumPartitions = 3
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}

//Personal.AI order the ending
