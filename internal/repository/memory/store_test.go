package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/domain"
)

var base = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

func window(startH, endH int) domain.Window {
	return domain.Window{Start: base.Add(time.Duration(startH) * time.Hour), End: base.Add(time.Duration(endH) * time.Hour)}
}

func TestBookingRepository_CreateIfAvailable(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	first := &domain.Booking{ResourceID: "r1", UserID: "u1", Window: window(0, 48), Status: domain.BookingStatusConfirmed}
	require.NoError(t, repo.CreateIfAvailable(ctx, first))
	assert.NotEmpty(t, first.ID)

	t.Run("Overlap", func(t *testing.T) {
		err := repo.CreateIfAvailable(ctx, &domain.Booking{ResourceID: "r1", UserID: "u2", Window: window(14, 26), Status: domain.BookingStatusPending})
		var slotErr *domain.SlotUnavailableError
		require.True(t, errors.As(err, &slotErr))
		assert.Equal(t, []string{first.ID}, slotErr.ConflictingIDs())
	})

	t.Run("TouchingBoundary", func(t *testing.T) {
		err := repo.CreateIfAvailable(ctx, &domain.Booking{ResourceID: "r1", UserID: "u2", Window: window(48, 72), Status: domain.BookingStatusPending})
		assert.NoError(t, err)
	})

	t.Run("OtherResource", func(t *testing.T) {
		err := repo.CreateIfAvailable(ctx, &domain.Booking{ResourceID: "r2", UserID: "u2", Window: window(0, 48), Status: domain.BookingStatusPending})
		assert.NoError(t, err)
	})

	t.Run("CancelledDoesNotBlock", func(t *testing.T) {
		cancelled := *first
		cancelled.Status = domain.BookingStatusCancelled
		require.NoError(t, repo.Transition(ctx, &cancelled, domain.BookingStatusConfirmed))

		err := repo.CreateIfAvailable(ctx, &domain.Booking{ResourceID: "r1", UserID: "u3", Window: window(10, 20), Status: domain.BookingStatusPending})
		assert.NoError(t, err)
	})
}

func TestBookingRepository_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, conflicted := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &domain.Booking{ResourceID: "r1", UserID: "u", Window: window(i%5, 10+i%7), Status: domain.BookingStatusPending}
			err := repo.CreateIfAvailable(ctx, b)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, domain.ErrSlotUnavailable) {
				conflicted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicted)
	active, err := repo.ListActiveByResource(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestBookingRepository_Transition(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	b := &domain.Booking{ResourceID: "r1", UserID: "u1", Window: window(0, 2), Status: domain.BookingStatusPending}
	require.NoError(t, repo.CreateIfAvailable(ctx, b))

	b.Status = domain.BookingStatusConfirmed
	require.NoError(t, repo.Transition(ctx, b, domain.BookingStatusPending))

	// a second writer that still believes the booking is pending loses
	assert.ErrorIs(t, repo.Transition(ctx, b, domain.BookingStatusPending), domain.ErrInvalidTransition)
	assert.ErrorIs(t, repo.Transition(ctx, &domain.Booking{ID: "missing"}, domain.BookingStatusPending), domain.ErrNotFound)
}

func TestBookingRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	now := base.Add(100 * time.Hour)

	overdue := &domain.Booking{ResourceID: "r1", UserID: "u1", Window: window(0, 24), Status: domain.BookingStatusConfirmed}
	endingSoon := &domain.Booking{ResourceID: "r2", UserID: "u1", Window: window(90, 110), Status: domain.BookingStatusConfirmed}
	later := &domain.Booking{ResourceID: "r3", UserID: "u2", Window: window(90, 200), Status: domain.BookingStatusConfirmed}
	for _, b := range []*domain.Booking{overdue, endingSoon, later} {
		require.NoError(t, repo.CreateIfAvailable(ctx, b))
	}

	got, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)

	got, err = repo.ListEndingBetween(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, endingSoon.ID, got[0].ID)

	mine, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestBookingRepository_RecentCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	for i := 0; i < 7; i++ {
		b := &domain.Booking{ResourceID: "r1", UserID: "u1", Window: window(i*10, i*10+5), Status: domain.BookingStatusConfirmed}
		require.NoError(t, repo.CreateIfAvailable(ctx, b))
		done := base.Add(time.Duration(i) * time.Hour)
		b.Status = domain.BookingStatusCompleted
		b.CompletedAt = &done
		b.Outcome = &domain.Outcome{OnTime: true, Condition: domain.ConditionGood, Violation: domain.ViolationNone}
		require.NoError(t, repo.Transition(ctx, b, domain.BookingStatusConfirmed))
	}

	recent, err := repo.ListRecentCompletedByUser(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.True(t, recent[0].CompletedAt.After(*recent[4].CompletedAt))

	count, err := repo.CountCompletedByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestSoftLockRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSoftLockRepository()
	ttl := 30 * time.Minute

	require.NoError(t, repo.Acquire(ctx, &domain.SoftLock{UserID: "a", ResourceID: "r1", ExpiresAt: base.Add(ttl)}, base))

	t.Run("OtherUserRefused", func(t *testing.T) {
		err := repo.Acquire(ctx, &domain.SoftLock{UserID: "b", ResourceID: "r1", ExpiresAt: base.Add(ttl)}, base)
		assert.ErrorIs(t, err, domain.ErrResourceHeld)
	})

	t.Run("RefusalKeepsPreviousLock", func(t *testing.T) {
		require.NoError(t, repo.Acquire(ctx, &domain.SoftLock{UserID: "b", ResourceID: "r3", ExpiresAt: base.Add(ttl)}, base))
		err := repo.Acquire(ctx, &domain.SoftLock{UserID: "b", ResourceID: "r1", ExpiresAt: base.Add(ttl)}, base)
		assert.ErrorIs(t, err, domain.ErrResourceHeld)

		l, err := repo.GetByUser(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "r3", l.ResourceID)
	})

	t.Run("SameUserReplaces", func(t *testing.T) {
		require.NoError(t, repo.Acquire(ctx, &domain.SoftLock{UserID: "a", ResourceID: "r2", ExpiresAt: base.Add(ttl)}, base))
		l, err := repo.GetByUser(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "r2", l.ResourceID)

		_, err = repo.GetLiveByResource(ctx, "r1", base)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ExpiredLockDoesNotBlock", func(t *testing.T) {
		later := base.Add(ttl + time.Minute)
		require.NoError(t, repo.Acquire(ctx, &domain.SoftLock{UserID: "b", ResourceID: "r2", ExpiresAt: later.Add(ttl)}, later))
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		removed, err := repo.DeleteExpired(ctx, base.Add(2*ttl))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		removed, err = repo.DeleteExpired(ctx, base.Add(2*ttl))
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})

	t.Run("ReleaseIdempotent", func(t *testing.T) {
		assert.NoError(t, repo.DeleteByUser(ctx, "nobody"))
		assert.NoError(t, repo.DeleteByUser(ctx, "nobody"))
	})
}

func TestPenaltyRepository_Unique(t *testing.T) {
	ctx := context.Background()
	repo := NewPenaltyRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &domain.Penalty{BookingID: "b1", UserID: "u1", Kind: domain.PenaltyKindLateReturn,
				Amount: decimal.NewFromInt(300), Status: domain.PenaltyStatusPending})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrDuplicatePenalty)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)

	exists, err := repo.ExistsForBooking(ctx, "b1", domain.PenaltyKindLateReturn)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Create(ctx, &domain.Penalty{BookingID: "b1", UserID: "u1", Kind: domain.PenaltyKindDamage, Status: domain.PenaltyStatusPending}))
	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDiscountRepository_UsageCap(t *testing.T) {
	ctx := context.Background()
	repo := NewDiscountRepository()
	limit := 1
	d := &domain.Discount{Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true,
		StartsAt: base.Add(-time.Hour), EndsAt: base.Add(time.Hour), MaxUsage: &limit}
	require.NoError(t, repo.Create(ctx, d))

	active, err := repo.ListActive(ctx, base)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, repo.IncrementUsage(ctx, d.ID))
	assert.ErrorIs(t, repo.IncrementUsage(ctx, d.ID), domain.ErrDiscountExhausted)

	active, err = repo.ListActive(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository()

	reminder := &domain.Notification{UserID: "u1", Kind: domain.NotificationRentalReminder, DedupKey: "b1:rental_reminder", CreatedAt: base}
	require.NoError(t, repo.Create(ctx, reminder))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Notification{UserID: "u1", DedupKey: "b1:rental_reminder"}), domain.ErrDuplicateNotification)

	require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: "u1", Kind: domain.NotificationBookingRequested, CreatedAt: base.Add(time.Hour)}))

	notes, total, err := repo.List(ctx, "u1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationBookingRequested, notes[0].Kind)

	assert.ErrorIs(t, repo.MarkAsRead(ctx, reminder.ID, "u2"), domain.ErrNotFound)
	require.NoError(t, repo.MarkAsRead(ctx, reminder.ID, "u1"))

	removed, err := repo.DeleteReadBefore(ctx, base.Add(31*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// the reminder stays once-only after its record is cleaned up
	assert.ErrorIs(t, repo.Create(ctx, &domain.Notification{UserID: "u1", DedupKey: "b1:rental_reminder"}), domain.ErrDuplicateNotification)
}
