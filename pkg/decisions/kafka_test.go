package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	calls    int
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaRecorder_Record(t *testing.T) {
	w := &fakeWriter{}
	k := newKafkaRecorder(w)
	d := sampleDecision(t, "cust-42")

	require.NoError(t, k.Record(context.Background(), d))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, []byte("cust-42"), msg.Key)
	assert.Equal(t, d.Timestamp, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	var event DecisionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, d.ID, event.Decision.ID)
}

func TestKafkaRecorder_WriteBatchSingleCall(t *testing.T) {
	w := &fakeWriter{}
	k := newKafkaRecorder(w)

	batch := []Decision{sampleDecision(t, "a"), sampleDecision(t, "b"), sampleDecision(t, "c")}
	require.NoError(t, k.WriteBatch(context.Background(), batch))

	assert.Equal(t, 1, w.calls)
	assert.Len(t, w.messages, 3)

	require.NoError(t, k.WriteBatch(context.Background(), nil))
	assert.Equal(t, 1, w.calls, "empty batch is not written")
}

func TestKafkaRecorder_Error(t *testing.T) {
	k := newKafkaRecorder(&fakeWriter{err: errors.New("leader not available")})
	err := k.Record(context.Background(), sampleDecision(t, "c1"))
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaRecorder_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newKafkaRecorder(w).Close())
	assert.True(t, w.closed)
}

func TestNewKafkaRecorder_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaRecorder(KafkaConfig{})
	assert.Error(t, err)
}
