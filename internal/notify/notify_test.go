package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, userID string, kind domain.NotificationKind, payload map[string]string) error {
	args := m.Called(ctx, userID, kind, payload)
	return args.Error(0)
}

func TestKafkaDispatcher_PublishesIntent(t *testing.T) {
	w := &fakeWriter{}
	emitted := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	d := newKafkaDispatcher(w, "rental.notifications", clock.NewFixed(emitted))

	err := d.Dispatch(context.Background(), "user-1", domain.NotificationPenaltyAssessed, map[string]string{"booking_id": "b1", "amount": "300"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("user-1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, string(domain.NotificationPenaltyAssessed), string(msg.Headers[0].Value))

	var intent Intent
	require.NoError(t, json.Unmarshal(msg.Value, &intent))
	assert.Equal(t, "user-1", intent.UserID)
	assert.Equal(t, "300", intent.Payload["amount"])
	assert.True(t, intent.EmittedAt.Equal(emitted))

	require.NoError(t, d.Close())
	assert.True(t, w.closed)
}

func TestKafkaDispatcher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	d := newKafkaDispatcher(w, "t", clock.NewSystem())

	err := d.Dispatch(context.Background(), "u", domain.NotificationBookingConfirmed, nil)
	assert.ErrorContains(t, err, "broker down")
}

func TestBreakerDispatcher_OpensAfterConsecutiveFailures(t *testing.T) {
	next := new(MockDispatcher)
	ctx := context.Background()
	next.On("Dispatch", ctx, "u", domain.NotificationBookingRequested, mock.Anything).Return(errors.New("boom")).Times(3)

	d := NewBreakerDispatcher(next, BreakerSettings{Name: "test", ConsecutiveFailures: 3, OpenTimeout: time.Hour})
	for i := 0; i < 3; i++ {
		assert.Error(t, d.Dispatch(ctx, "u", domain.NotificationBookingRequested, nil))
	}
	assert.Equal(t, gobreaker.StateOpen, d.State())

	err := d.Dispatch(ctx, "u", domain.NotificationBookingRequested, nil)
	assert.ErrorIs(t, err, ErrDispatcherUnavailable)
	next.AssertExpectations(t)
}

func TestBreakerDispatcher_PassesThroughSuccess(t *testing.T) {
	next := new(MockDispatcher)
	ctx := context.Background()
	payload := map[string]string{"booking_id": "b1"}
	next.On("Dispatch", ctx, "u", domain.NotificationBookingConfirmed, payload).Return(nil).Once()

	d := NewBreakerDispatcher(next, BreakerSettings{Name: "test"})
	assert.NoError(t, d.Dispatch(ctx, "u", domain.NotificationBookingConfirmed, payload))
	assert.Equal(t, gobreaker.StateClosed, d.State())
	next.AssertExpectations(t)
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, NewLogDispatcher().Dispatch(context.Background(), "u", domain.NotificationRentalReminder, nil))
}
