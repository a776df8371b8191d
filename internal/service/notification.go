package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/notify"
	"consolerent-backend/internal/repository"
)

type notificationService struct {
	noteRepo   repository.NotificationRepository
	dispatcher notify.Dispatcher
	clock      clock.Clock
	metrics    *metrics.Metrics
	retention  time.Duration
}

func NewNotificationService(
	noteRepo repository.NotificationRepository,
	dispatcher notify.Dispatcher,
	clk clock.Clock,
	m *metrics.Metrics,
	retention time.Duration,
) NotificationService {
	return &notificationService{
		noteRepo:   noteRepo,
		dispatcher: dispatcher,
		clock:      clk,
		metrics:    m,
		retention:  retention,
	}
}

func (s *notificationService) Notify(ctx context.Context, note *domain.Notification) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	note.CreatedAt = s.clock.Now()
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return err
	}
	logger.NotificationEmitted(note.UserID, string(note.Kind), note.BookingID)

	payload := make(map[string]string, len(note.Attributes)+4)
	for k, v := range note.Attributes {
		payload[k] = v
	}
	payload["notification_id"] = note.ID
	payload["title"] = note.Title
	payload["message"] = note.Message
	if note.BookingID != "" {
		payload["booking_id"] = note.BookingID
	}

	// the record is already stored; delivery trouble is reported, not returned
	err := s.dispatcher.Dispatch(ctx, note.UserID, note.Kind, payload)
	s.metrics.RecordNotification(string(note.Kind), err)
	if err != nil {
		logger.Warn("Notification dispatch failed", "notificationID", note.ID, "kind", string(note.Kind), "error", err)
	}
	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// Cleanup drops read notifications older than the retention period.
func (s *notificationService) Cleanup(ctx context.Context) (*SweepReport, error) {
	start := s.clock.Now()
	report := &SweepReport{Job: "notification-cleanup"}
	removed, err := s.noteRepo.DeleteReadBefore(ctx, start.Add(-s.retention))
	if err != nil {
		return report, err
	}
	report.Applied = removed
	logger.Info("Read notifications removed", "count", removed, "retention", s.retention.String())
	return report, nil
}

// emit records a lifecycle notification. Failures are logged and never
// propagate into the transition that produced them.
func emit(ctx context.Context, notes NotificationService, note *domain.Notification) {
	if notes == nil {
		return
	}
	if err := notes.Notify(ctx, note); err != nil && !errors.Is(err, domain.ErrDuplicateNotification) {
		logger.Warn("Failed to record notification", "userID", note.UserID, "kind", string(note.Kind), "error", err)
	}
}
