package mmp

import (
	"context"
	"time"

	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
)

// EventSource tags every envelope published by this service.
const EventSource = "keyip-mmp"

// RunRequestedEvent asks a worker to execute a run.
type RunRequestedEvent struct {
	RunID         string              `json:"run_id,omitempty"`
	Input         string              `json:"input"`
	Settings      *domainMMP.Settings `json:"settings,omitempty"`
	PairsOutput   string              `json:"pairs_output,omitempty"`
	NetworkOutput string              `json:"network_output,omitempty"`
}

func (e RunRequestedEvent) request() *RunRequest {
	return &RunRequest{
		RunID:         e.RunID,
		Input:         e.Input,
		Settings:      e.Settings,
		PairsOutput:   e.PairsOutput,
		NetworkOutput: e.NetworkOutput,
	}
}

// RunCompletedEvent announces a successful run.
type RunCompletedEvent struct {
	RunID           string          `json:"run_id"`
	Stats           domainMMP.Stats `json:"stats"`
	Warnings        int             `json:"warnings"`
	PairsLocation   string          `json:"pairs_location,omitempty"`
	NetworkLocation string          `json:"network_location,omitempty"`
	DurationMs      int64           `json:"duration_ms"`
}

// RunFailedEvent announces a failed or cancelled run.
type RunFailedEvent struct {
	RunID  string           `json:"run_id"`
	Status common.RunStatus `json:"status"`
	Code   errors.ErrorCode `json:"code"`
	Error  string           `json:"error"`
}

// EventPublisher is the producer side used by the service.
type EventPublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// NewRunRequestMessage builds the message a client publishes to request a
// run.
func NewRunRequestMessage(ev RunRequestedEvent) (*common.ProducerMessage, error) {
	env, err := kafka.NewEventEnvelope(kafka.TopicRunRequested, EventSource, ev)
	if err != nil {
		return nil, err
	}
	return env.ToMessage(kafka.TopicRunRequested, ev.RunID)
}

func (s *runService) publish(ctx context.Context, topic, runID string, payload interface{}) {
	if s.events == nil {
		return
	}
	start := time.Now()
	env, err := kafka.NewEventEnvelope(topic, EventSource, payload)
	if err == nil {
		var msg *common.ProducerMessage
		if msg, err = env.ToMessage(topic, runID); err == nil {
			err = s.events.Publish(ctx, msg)
		}
	}
	s.recordSink(sinkKafka, err)
	if err != nil {
		s.logger.Warn("failed to publish run event",
			logging.String("run_id", runID),
			logging.String("topic", topic),
			logging.Err(err))
		return
	}
	s.logger.Debug("run event published",
		logging.String("run_id", runID),
		logging.String("topic", topic),
		logging.Duration("elapsed", time.Since(start)))
}

//Personal.AI order the ending
