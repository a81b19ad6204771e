package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	deleteFunc func(topics ...string) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
	closeFunc  func() error
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) DeleteTopics(topics ...string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestTopicManager(mock ConnInterface) *TopicManager {
	return &TopicManager{
		conn:   mock,
		logger: logging.NewNopLogger(),
	}
}

func TestTopicConstants(t *testing.T) {
	assert.Equal(t, "internment.reported", TopicInternmentReported)
	assert.Equal(t, "medication.authorized", TopicMedicationAuthorized)
	assert.Equal(t, "notification.created", TopicNotificationCreated)
}

func TestDefaultTopics(t *testing.T) {
	defaults := DefaultTopics()
	assert.Len(t, defaults, 13)
	for _, topic := range defaults {
		assert.NotEmpty(t, topic.Name)
		assert.Greater(t, topic.NumPartitions, 0)
	}
}

func TestCreateTopic_Success(t *testing.T) {
	mock := &mockKafkaConn{
		createFunc: func(topics ...kafka.TopicConfig) error {
			assert.Len(t, topics, 1)
			assert.Equal(t, "test", topics[0].Topic)
			return nil
		},
	}
	m := newTestTopicManager(mock)
	err := m.CreateTopic(context.Background(), common.TopicConfig{Name: "test", NumPartitions: 1, ReplicationFactor: 1})
	assert.NoError(t, err)
}

func TestCreateTopic_Invalid(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{})
	assert.Error(t, m.CreateTopic(context.Background(), common.TopicConfig{Name: "", NumPartitions: 1, ReplicationFactor: 1}))
	assert.Error(t, m.CreateTopic(context.Background(), common.TopicConfig{Name: "x", NumPartitions: 0, ReplicationFactor: 1}))
}

func TestDeleteTopic_Success(t *testing.T) {
	mock := &mockKafkaConn{
		deleteFunc: func(topics ...string) error {
			assert.Equal(t, "test", topics[0])
			return nil
		},
	}
	m := newTestTopicManager(mock)
	assert.NoError(t, m.DeleteTopic(context.Background(), "test"))
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	payload := InternmentEventPayload{InternmentID: "int-123", ProviderID: "prov-1", Status: "INICIADA"}
	env, err := NewEventEnvelope("internment.reported", "claims-engine", payload)
	require.NoError(t, err)

	msg, err := env.ToMessage(TopicInternmentReported)
	require.NoError(t, err)
	assert.Equal(t, "internment.reported", msg.Headers["event_type"])

	decodedEnv, err := MessageToEventEnvelope(&common.Message{Value: msg.Value})
	require.NoError(t, err)

	var decoded InternmentEventPayload
	require.NoError(t, decodedEnv.DecodePayload(&decoded))
	assert.Equal(t, "int-123", decoded.InternmentID)
	assert.Equal(t, "INICIADA", decoded.Status)
}
