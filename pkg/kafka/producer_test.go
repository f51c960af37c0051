package kafka

import (
	"context"
	"errors"
	"testing"

	"bookingguard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "booking-verdicts", logger.NewNop())

	msg, err := NewMessage().WithKey("wo-1").WithValue(map[string]bool{"accepted": true}).Build()
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), msg))

	written := w.written()
	require.Len(t, written, 1)
	assert.Equal(t, "wo-1", string(written[0].Key))
	assert.Equal(t, msg.GetEventID(), headerValue(written[0], HeaderEventID))
}

func TestProducer_RejectsEmptyKeyAndValue(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t", logger.NewNop())

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestProducer_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t", logger.NewNop())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_WrapsWriteError(t *testing.T) {
	cause := errors.New("broker gone")
	p := newProducer(&fakeWriter{err: cause}, "t", logger.NewNop())

	err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")})
	assert.ErrorIs(t, err, cause)
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t", logger.NewNop())

	var order []string
	for _, name := range []string{"first", "second"} {
		name := name
		p.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	require.NoError(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestProducer_MiddlewareSeesTopic(t *testing.T) {
	p := newProducer(&fakeWriter{}, "booking-verdicts", logger.NewNop())

	var topic string
	p.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		topic = msg.Topic
		return next(ctx, msg)
	})

	require.NoError(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("v")}))
	assert.Equal(t, "booking-verdicts", topic)
}
