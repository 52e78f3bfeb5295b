package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	require.NoError(t, s.Publish(context.Background(), Event{Cluster: "dev"}))
	require.NoError(t, s.Close())
}

func TestEventSerialization(t *testing.T) {
	event := Event{
		Time:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		RequestID: "req-1",
		Cluster:   "dev",
		Namespace: "stage",
		Pod:       "common-x",
		Scope:     "view",
		UserRef:   "user:default/alice",
		Groups:    []string{"group:default/admin"},
		Decision:  DecisionAllowed,
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, event, decoded)

	// Empty optional fields stay out of the payload.
	minimal, err := json.Marshal(Event{Cluster: "dev", Decision: DecisionDenied, Time: event.Time})
	require.NoError(t, err)
	assert.NotContains(t, string(minimal), "requestId")
	assert.NotContains(t, string(minimal), "reason")
	assert.NotContains(t, string(minimal), "groups")
}

func TestNewKafkaSinkValidation(t *testing.T) {
	log := zap.NewNop().Sugar()

	_, err := NewKafkaSink(log, KafkaSinkConfig{Topic: "audit"})
	require.Error(t, err)

	_, err = NewKafkaSink(log, KafkaSinkConfig{Brokers: []string{"broker:9092"}})
	require.Error(t, err)

	sink, err := NewKafkaSink(log, KafkaSinkConfig{Brokers: []string{"broker:9092"}, Topic: "audit"})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}
