package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/domain"
)

func TestSoftLock_ExpiryReleasesClaim(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1")
	ctx := context.Background()

	lock, err := f.engine.AcquireSoftLock(ctx, "alice", "r1")
	require.NoError(t, err)
	assert.True(t, lock.ExpiresAt.Equal(f.clock.Now().Add(30*time.Minute)))

	_, err = f.engine.AcquireSoftLock(ctx, "bob", "r1")
	assert.ErrorIs(t, err, domain.ErrResourceHeld)

	held, err := f.engine.SoftLocks.IsHeldByOther(ctx, "r1", "bob")
	require.NoError(t, err)
	assert.True(t, held)
	held, err = f.engine.SoftLocks.IsHeldByOther(ctx, "r1", "alice")
	require.NoError(t, err)
	assert.False(t, held)

	f.clock.Advance(31 * time.Minute)

	held, err = f.engine.SoftLocks.IsHeldByOther(ctx, "r1", "bob")
	require.NoError(t, err)
	assert.False(t, held)
	_, err = f.engine.SoftLocks.Get(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.AcquireSoftLock(ctx, "bob", "r1")
	require.NoError(t, err)

	report, err := f.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)

	report, err = f.engine.RunExpirySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied)

	lock, err = f.engine.SoftLocks.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "r1", lock.ResourceID)
}

func TestSoftLock_LastIntentWins(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1")
	f.addResource(t, "r2")
	ctx := context.Background()

	_, err := f.engine.AcquireSoftLock(ctx, "alice", "r1")
	require.NoError(t, err)
	_, err = f.engine.AcquireSoftLock(ctx, "alice", "r2")
	require.NoError(t, err)

	lock, err := f.engine.SoftLocks.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "r2", lock.ResourceID)

	_, err = f.engine.AcquireSoftLock(ctx, "bob", "r1")
	assert.NoError(t, err)
}

func TestSoftLock_ReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addResource(t, "r1")
	ctx := context.Background()

	_, err := f.engine.AcquireSoftLock(ctx, "alice", "r1")
	require.NoError(t, err)
	require.NoError(t, f.engine.ReleaseSoftLock(ctx, "alice"))
	require.NoError(t, f.engine.ReleaseSoftLock(ctx, "alice"))

	_, err = f.engine.AcquireSoftLock(ctx, "bob", "r1")
	assert.NoError(t, err)
}

func TestSoftLock_UnknownResource(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AcquireSoftLock(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
