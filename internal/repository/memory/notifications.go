package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"consolerent-backend/internal/domain"
)

type NotificationRepository struct {
	mu    sync.Mutex
	notes map[string]domain.Notification
	dedup map[string]string
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		notes: make(map[string]domain.Notification),
		dedup: make(map[string]string),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.DedupKey != "" {
		if _, seen := r.dedup[n.DedupKey]; seen {
			return domain.ErrDuplicateNotification
		}
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	r.notes[n.ID] = *n
	if n.DedupKey != "" {
		r.dedup[n.DedupKey] = n.ID
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Notification
	for _, n := range r.notes {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	n.IsRead = true
	r.notes[id] = n
	return nil
}

// DeleteReadBefore keeps dedup keys so reminders stay once-only after cleanup.
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, n := range r.notes {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(r.notes, id)
			removed++
		}
	}
	return removed, nil
}
