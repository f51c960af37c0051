package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("wo-1").
		WithValue(map[string]string{"id": "b-1"}).
		WithEventType("booking.accepted").
		WithCorrelationID("corr-1").
		WithSource("bookingguard").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "wo-1", msg.Key)
	assert.JSONEq(t, `{"id":"b-1"}`, string(msg.Value))
	assert.Equal(t, "booking.accepted", msg.GetEventType())
	assert.Equal(t, "corr-1", msg.GetCorrelationID())
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
}

func TestMessageBuilder_EmptyCorrelationIDSkipped(t *testing.T) {
	msg, err := NewMessage().WithKey("k").WithValue("v").WithCorrelationID("").Build()
	require.NoError(t, err)

	_, ok := msg.Headers[HeaderCorrelationID]
	assert.False(t, ok)
}

func TestMessageBuilder_UnencodableValue(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: 0},
		{name: "numeric", header: "2", want: 2},
		{name: "garbage", header: "two", want: 0},
		{name: "negative", header: "-1", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Message{Headers: map[string]string{}}
			if tt.header != "" {
				msg.Headers[HeaderRetryCount] = tt.header
			}
			assert.Equal(t, tt.want, msg.GetRetryCount())

			msg.IncrementRetryCount()
			assert.Equal(t, tt.want+1, msg.GetRetryCount())
		})
	}
}

func TestIncrementRetryCount_NilHeaders(t *testing.T) {
	var msg Message
	msg.IncrementRetryCount()
	assert.Equal(t, 1, msg.GetRetryCount())
}

func TestKafkaConversionKeepsHeaders(t *testing.T) {
	msg := Message{
		Key:     "wo-1",
		Value:   []byte(`{}`),
		Headers: map[string]string{HeaderEventType: "booking.rejected"},
	}

	back := fromKafka(toKafka(msg))

	assert.Equal(t, msg.Key, back.Key)
	assert.Equal(t, msg.Value, back.Value)
	assert.Equal(t, "booking.rejected", back.GetEventType())
}
