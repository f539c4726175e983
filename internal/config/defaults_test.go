package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultMoleculeColumn, cfg.MMP.MoleculeColumn)
	assert.Equal(t, mmp.DefaultConnectionPoint, cfg.MMP.ConnectionPoint)
	assert.Equal(t, mmp.PrecedenceRightOverLeft, cfg.MMP.Precedence)
	assert.Equal(t, mmp.DefaultNetworkColumn, cfg.MMP.NetworkColumn)
	assert.Equal(t, mmp.DefaultCanonicalCacheSize, cfg.Engine.CacheSize)
	assert.Equal(t, DefaultToolkitURL, cfg.Toolkit.URL)
	assert.Equal(t, DefaultDBPort, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Producer.Brokers)
	assert.Equal(t, []string{kafka.TopicRunRequested}, cfg.Kafka.Consumer.Topics)
	assert.Equal(t, kafka.TopicDeadLetterRun, cfg.Kafka.Consumer.Retry.DeadLetterTopic)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.MMP.Precedence = mmp.PrecedenceLeftOverRight
	cfg.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, mmp.PrecedenceLeftOverRight, cfg.MMP.Precedence)
	assert.Equal(t, cfg.Kafka.Brokers, cfg.Kafka.Consumer.Brokers)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
