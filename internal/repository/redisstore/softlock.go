// Package redisstore keeps soft locks in Redis so several API replicas share them.
// Keys expire on their own; the expiry sweep only catches what the server has not.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
)

const maxAcquireRetries = 5

var errLockMoved = errors.New("soft lock changed during acquire")

type SoftLockRepository struct {
	client *redis.Client
}

func NewSoftLockRepository(client *redis.Client) *SoftLockRepository {
	return &SoftLockRepository{client: client}
}

func userKey(userID string) string {
	return fmt.Sprintf("softlock:user:%s", userID)
}

func resourceKey(resourceID string) string {
	return fmt.Sprintf("softlock:resource:%s", resourceID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readLock(ctx context.Context, g getter, key string) (*domain.SoftLock, error) {
	data, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var l domain.SoftLock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("unmarshal soft lock failed: %w", err)
	}
	return &l, nil
}

func readHolder(ctx context.Context, g getter, key string) (string, error) {
	holder, err := g.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return holder, nil
}

func resourceOf(l *domain.SoftLock) string {
	if l == nil {
		return ""
	}
	return l.ResourceID
}

// Acquire watches the caller's key, the target resource key and the caller's
// previous resource key, retrying when another client touches any of them.
func (r *SoftLockRepository) Acquire(ctx context.Context, lock *domain.SoftLock, now time.Time) error {
	ttl := lock.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("soft lock for user %s already expired", lock.UserID)
	}
	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal soft lock failed: %w", err)
	}

	uKey, rKey := userKey(lock.UserID), resourceKey(lock.ResourceID)
	for attempt := 0; attempt < maxAcquireRetries; attempt++ {
		prev, err := readLock(ctx, r.client, uKey)
		if err != nil {
			return err
		}
		keys := []string{uKey, rKey}
		if prev != nil && prev.ResourceID != lock.ResourceID {
			keys = append(keys, resourceKey(prev.ResourceID))
		}

		err = r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := readLock(ctx, tx, uKey)
			if err != nil {
				return err
			}
			if resourceOf(current) != resourceOf(prev) {
				return errLockMoved
			}

			holder, err := readHolder(ctx, tx, rKey)
			if err != nil {
				return err
			}
			if holder != "" && holder != lock.UserID {
				held, err := readLock(ctx, tx, userKey(holder))
				if err != nil {
					return err
				}
				if held != nil && held.ResourceID == lock.ResourceID && !held.IsExpired(now) {
					return domain.ErrResourceHeld
				}
			}

			releaseOld := false
			if prev != nil && prev.ResourceID != lock.ResourceID {
				oldHolder, err := readHolder(ctx, tx, resourceKey(prev.ResourceID))
				if err != nil {
					return err
				}
				releaseOld = oldHolder == lock.UserID
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if releaseOld {
					pipe.Del(ctx, resourceKey(prev.ResourceID))
				}
				pipe.Set(ctx, uKey, data, ttl)
				pipe.Set(ctx, rKey, lock.UserID, ttl)
				return nil
			})
			return err
		}, keys...)

		if errors.Is(err, redis.TxFailedErr) || errors.Is(err, errLockMoved) {
			logger.Debug("Soft lock acquire contended, retrying", "userID", lock.UserID, "attempt", attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("soft lock acquire for user %s: too much contention", lock.UserID)
}

func (r *SoftLockRepository) GetByUser(ctx context.Context, userID string) (*domain.SoftLock, error) {
	l, err := readLock(ctx, r.client, userKey(userID))
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (r *SoftLockRepository) GetLiveByResource(ctx context.Context, resourceID string, now time.Time) (*domain.SoftLock, error) {
	holder, err := readHolder(ctx, r.client, resourceKey(resourceID))
	if err != nil {
		return nil, err
	}
	if holder == "" {
		return nil, domain.ErrNotFound
	}
	l, err := readLock(ctx, r.client, userKey(holder))
	if err != nil {
		return nil, err
	}
	if l == nil || l.ResourceID != resourceID || l.IsExpired(now) {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (r *SoftLockRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.deleteIf(ctx, userID, func(*domain.SoftLock) bool { return true })
	return err
}

// deleteIf removes the user's lock and its resource pointer when match accepts it.
func (r *SoftLockRepository) deleteIf(ctx context.Context, userID string, match func(*domain.SoftLock) bool) (bool, error) {
	uKey := userKey(userID)
	deleted := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		l, err := readLock(ctx, tx, uKey)
		if err != nil || l == nil || !match(l) {
			return err
		}
		rKey := resourceKey(l.ResourceID)
		holder, err := readHolder(ctx, tx, rKey)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, uKey)
			if holder == userID {
				pipe.Del(ctx, rKey)
			}
			return nil
		})
		deleted = err == nil
		return err
	}, uKey)
	if errors.Is(err, redis.TxFailedErr) {
		// someone replaced the lock concurrently; theirs wins
		return false, nil
	}
	return deleted, err
}

// DeleteExpired scans user keys and drops locks whose expiresAt is before now.
func (r *SoftLockRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, userKey("*"), 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan failed: %w", err)
		}
		for _, key := range keys {
			l, err := readLock(ctx, r.client, key)
			if err != nil {
				return removed, err
			}
			if l == nil || !l.ExpiresAt.Before(now) {
				continue
			}
			ok, err := r.deleteIf(ctx, l.UserID, func(cur *domain.SoftLock) bool { return cur.ExpiresAt.Before(now) })
			if err != nil {
				return removed, err
			}
			if ok {
				removed++
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
