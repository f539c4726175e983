package kafka

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	mu        sync.Mutex
	written   []kafka.Message
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed    bool
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockKafkaWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func newTestProducer(w WriterInterface) *Producer {
	return NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}}, logging.NewNopLogger())
}

func newTestProducerMessage(topic, key, value string) *common.ProducerMessage {
	return &common.ProducerMessage{Topic: topic, Key: []byte(key), Value: []byte(value)}
}

func TestValidateProducerConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProducerConfig
		wantErr bool
	}{
		{"valid", ProducerConfig{Brokers: []string{"b:9092"}}, false},
		{"no brokers", ProducerConfig{}, true},
		{"negative retries", ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}, true},
		{"unknown sasl", ProducerConfig{Brokers: []string{"b"}, Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "GSSAPI"}}, true},
		{"sasl without password", ProducerConfig{Brokers: []string{"b"}, Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "PLAIN", SASLUsername: "u"}}, true},
		{"sasl plain", ProducerConfig{Brokers: []string{"b"}, Security: SecurityConfig{SASLEnabled: true, SASLMechanism: "PLAIN", SASLUsername: "u", SASLPassword: "p"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProducerConfig(tt.cfg)
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPublish_Success(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	msg := newTestProducerMessage(TopicRunCompleted, "run-1", `{"ok":true}`)
	msg.Headers = map[string]string{"event_type": TopicRunCompleted}

	require.NoError(t, p.Publish(context.Background(), msg))
	require.Len(t, w.written, 1)
	assert.Equal(t, TopicRunCompleted, w.written[0].Topic)
	assert.Equal(t, "run-1", string(w.written[0].Key))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte(TopicRunCompleted)}}, w.written[0].Headers)
	assert.False(t, w.written[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	assert.True(t, errors.IsCode(p.Publish(ctx, newTestProducerMessage("", "k", "v")), errors.ErrCodeValidation))
	assert.True(t, errors.IsCode(p.Publish(ctx, newTestProducerMessage("t", "k", "")), errors.ErrCodeValidation))
	big := newTestProducerMessage("t", "k", strings.Repeat("x", 1024*1024+1))
	assert.True(t, errors.IsCode(p.Publish(ctx, big), errors.ErrCodeValidation))
}

func TestPublish_Failure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		return stderrors.New("broker unreachable")
	}}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), newTestProducerMessage("t", "k", "v"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageQueueError))
	assert.Equal(t, int64(1), p.Failed())
}

func TestPublishBatch_PartialFailure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		errs := make(kafka.WriteErrors, len(msgs))
		errs[1] = stderrors.New("fail")
		return errs
	}}
	p := newTestProducer(w)
	res, err := p.PublishBatch(context.Background(), []*common.ProducerMessage{
		newTestProducerMessage("t", "1", "1"),
		newTestProducerMessage("t", "2", "2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)

	_, err = p.PublishBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestPublishAsync_ReportsErrors(t *testing.T) {
	got := make(chan error, 1)
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		return stderrors.New("boom")
	}}
	p := NewProducerWithWriter(w, ProducerConfig{
		Brokers:           []string{"b"},
		AsyncErrorHandler: func(err error, _ *common.ProducerMessage) { got <- err },
	}, nil)

	p.PublishAsync(context.Background(), newTestProducerMessage("t", "k", "v"))
	select {
	case err := <-got:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestClose_Idempotent(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), newTestProducerMessage("t", "k", "v")), ErrProducerClosed)
}

//Personal.AI order the ending
