package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "bookingguard/internal/bookings/errors"
	"bookingguard/pkg/logger"
	"bookingguard/pkg/metrics"
	"bookingguard/pkg/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type fakeStore struct {
	retrieveFunc func(ctx context.Context, filter bson.D) ([]*model.Booking, error)
	insertFunc   func(ctx context.Context, booking *model.Booking) (string, error)
}

func (f *fakeStore) RetrieveMultiple(ctx context.Context, filter bson.D) ([]*model.Booking, error) {
	if f.retrieveFunc != nil {
		return f.retrieveFunc(ctx, filter)
	}
	return nil, nil
}

func (f *fakeStore) Insert(ctx context.Context, booking *model.Booking) (string, error) {
	if f.insertFunc != nil {
		return f.insertFunc(ctx, booking)
	}
	return booking.ID, nil
}

func TestFindBookingsByWorkOrder_SubstitutesID(t *testing.T) {
	var captured bson.D
	store := &fakeStore{
		retrieveFunc: func(_ context.Context, filter bson.D) ([]*model.Booking, error) {
			captured = filter
			return []*model.Booking{{ID: "b-1", WorkOrderID: "wo-1"}}, nil
		},
	}
	g := New(store, logger.NewNop(), nil)

	bookings, err := g.FindBookingsByWorkOrder(context.Background(), "wo-1")

	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, bson.D{{Key: "work_order_id", Value: "wo-1"}}, captured)
}

func TestFindBookingsByWorkOrder_StoreFaultIsWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	g := New(&fakeStore{
		retrieveFunc: func(context.Context, bson.D) ([]*model.Booking, error) {
			return nil, cause
		},
	}, logger.NewNop(), nil)

	_, err := g.FindBookingsByWorkOrder(context.Background(), "wo-1")

	require.Error(t, err)
	assert.True(t, bookingserrors.IsGatewayFault(err))
	assert.ErrorIs(t, err, cause)
}

func TestFindBookingsByWorkOrder_IDIsNotEscaped(t *testing.T) {
	t.Run("quote breaks the rendered query", func(t *testing.T) {
		called := false
		g := New(&fakeStore{
			retrieveFunc: func(context.Context, bson.D) ([]*model.Booking, error) {
				called = true
				return nil, nil
			},
		}, logger.NewNop(), nil)

		_, err := g.FindBookingsByWorkOrder(context.Background(), `wo"1`)

		require.Error(t, err)
		assert.True(t, bookingserrors.IsGatewayFault(err))
		assert.False(t, called, "store must not be called with a malformed query")
	})

	t.Run("crafted id widens the filter", func(t *testing.T) {
		var captured bson.D
		g := New(&fakeStore{
			retrieveFunc: func(_ context.Context, filter bson.D) ([]*model.Booking, error) {
				captured = filter
				return nil, nil
			},
		}, logger.NewNop(), nil)

		_, err := g.FindBookingsByWorkOrder(context.Background(), `wo-1", "name": "x`)

		require.NoError(t, err)
		assert.Len(t, captured, 2)
		assert.Equal(t, "wo-1", captured[0].Value)
	})
}

func TestQuery_UnknownTemplate(t *testing.T) {
	g := New(&fakeStore{}, logger.NewNop(), nil)

	_, err := g.Query(context.Background(), "missing", nil)

	assert.ErrorIs(t, err, bookingserrors.ErrUnknownTemplate)
	assert.False(t, bookingserrors.IsGatewayFault(err))
}

func TestQuery_RegisteredTemplate(t *testing.T) {
	var captured bson.D
	g := New(&fakeStore{
		retrieveFunc: func(_ context.Context, filter bson.D) ([]*model.Booking, error) {
			captured = filter
			return nil, nil
		},
	}, logger.NewNop(), nil)
	g.RegisterTemplate("bookings_by_resource", `{"resource_id": "{resourceid}"}`)

	_, err := g.Query(context.Background(), "bookings_by_resource", map[string]string{"resourceid": "res-7"})

	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "resource_id", Value: "res-7"}}, captured)
}

func TestInsert_AssignsID(t *testing.T) {
	var stored *model.Booking
	g := New(&fakeStore{
		insertFunc: func(_ context.Context, b *model.Booking) (string, error) {
			stored = b
			return b.ID, nil
		},
	}, logger.NewNop(), nil)
	g.newID = func() string { return "generated-id" }

	input := &model.Booking{WorkOrderID: "wo-1", StartTime: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	created, err := g.Insert(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "generated-id", created.ID)
	assert.Equal(t, "generated-id", stored.ID)
	assert.Empty(t, input.ID, "caller's booking must not be mutated")
}

func TestInsert_KeepsSuppliedID(t *testing.T) {
	g := New(&fakeStore{}, logger.NewNop(), nil)

	created, err := g.Insert(context.Background(), &model.Booking{ID: "b-42"})

	require.NoError(t, err)
	assert.Equal(t, "b-42", created.ID)
}

func TestInsert_FaultIsWrapped(t *testing.T) {
	cause := errors.New("permission denied")
	m := metrics.New()
	g := New(&fakeStore{
		insertFunc: func(context.Context, *model.Booking) (string, error) {
			return "", cause
		},
	}, logger.NewNop(), m)

	_, err := g.Insert(context.Background(), &model.Booking{})

	var fault *bookingserrors.GatewayFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, opInsert, fault.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCalls.WithLabelValues(opInsert, metrics.OutcomeError)))
}

func TestGateway_SerializesAcrossInstances(t *testing.T) {
	var inFlight, maxInFlight int32
	track := func() {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			peak := atomic.LoadInt32(&maxInFlight)
			if n <= peak || atomic.CompareAndSwapInt32(&maxInFlight, peak, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}

	store := &fakeStore{
		retrieveFunc: func(context.Context, bson.D) ([]*model.Booking, error) {
			track()
			return nil, nil
		},
		insertFunc: func(_ context.Context, b *model.Booking) (string, error) {
			track()
			return b.ID, nil
		},
	}
	first := New(store, logger.NewNop(), nil)
	second := New(store, logger.NewNop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = first.FindBookingsByWorkOrder(context.Background(), "wo-1")
		}()
		go func() {
			defer wg.Done()
			_, _ = second.Insert(context.Background(), &model.Booking{WorkOrderID: "wo-1"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]string
		want     string
	}{
		{
			name:     "single token",
			template: `{"work_order_id": "{workorderid}"}`,
			params:   map[string]string{"workorderid": "abc"},
			want:     `{"work_order_id": "abc"}`,
		},
		{
			name:     "repeated token",
			template: `{workorderid}-{workorderid}`,
			params:   map[string]string{"workorderid": "x"},
			want:     `x-x`,
		},
		{
			name:     "value carrying a later token is substituted again",
			template: `{a}|{b}`,
			params:   map[string]string{"a": "{b}", "b": "B"},
			want:     `B|B`,
		},
		{
			name:     "missing param leaves token",
			template: `{workorderid}`,
			params:   nil,
			want:     `{workorderid}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substitute(tt.template, tt.params))
		})
	}
}
