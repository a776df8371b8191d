package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/repository/memory"
)

// monday is 2024-03-04 00:00 UTC.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	kinds []domain.NotificationKind
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ string, kind domain.NotificationKind, _ map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
	return d.err
}

func (d *recordingDispatcher) count(kind domain.NotificationKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	engine     *Engine
	store      *memory.Store
	clock      *clock.Manual
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	opts := DefaultOptions()
	for _, m := range mutate {
		m(&opts)
	}
	store := memory.NewStore()
	clk := clock.NewManual(at(0, 8))
	disp := &recordingDispatcher{}
	return &fixture{
		engine:     NewEngine(store.Set(), disp, clk, nil, opts),
		store:      store,
		clock:      clk,
		dispatcher: disp,
	}
}

func (f *fixture) addResource(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.engine.Resources.CreateResource(context.Background(), &domain.Resource{
		ID:          id,
		Name:        "PS5 " + id,
		HourlyPrice: decimal.NewFromInt(10),
		DailyPrice:  decimal.NewFromInt(150),
	}))
}

func (f *fixture) addUser(t *testing.T, id string, tenure time.Duration, credits int) {
	t.Helper()
	require.NoError(t, f.store.UserRepository.Create(context.Background(), &domain.User{
		ID:             id,
		Name:           id,
		LoyaltyCredits: credits,
		CreatedAt:      f.clock.Now().Add(-tenure),
	}))
}

func (f *fixture) book(t *testing.T, userID, resourceID string, start, end time.Time, price int64) *domain.Booking {
	t.Helper()
	p := decimal.NewFromInt(price)
	b, err := f.engine.CreateBooking(context.Background(), userID, resourceID, mustWindow(t, start, end), &p)
	require.NoError(t, err)
	return b
}

func (f *fixture) bookAndConfirm(t *testing.T, userID, resourceID string, start, end time.Time, price int64) *domain.Booking {
	t.Helper()
	b := f.book(t, userID, resourceID, start, end, price)
	if b.Status == domain.BookingStatusConfirmed {
		return b
	}
	confirmed, err := f.engine.ConfirmBooking(context.Background(), b.ID)
	require.NoError(t, err)
	return confirmed
}

func mustWindow(t *testing.T, start, end time.Time) domain.Window {
	t.Helper()
	w, err := domain.NewWindow(start, end)
	require.NoError(t, err)
	return w
}

const day = 24 * time.Hour
