package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/repository"
)

type resourceService struct {
	resourceRepo repository.ResourceRepository
	bookingRepo  repository.BookingRepository
	clock        clock.Clock
}

func NewResourceService(resourceRepo repository.ResourceRepository, bookingRepo repository.BookingRepository, clk clock.Clock) ResourceService {
	return &resourceService{resourceRepo: resourceRepo, bookingRepo: bookingRepo, clock: clk}
}

func (s *resourceService) CreateResource(ctx context.Context, res *domain.Resource) error {
	if res.Name == "" {
		return fmt.Errorf("resource name is required")
	}
	if res.HourlyPrice.IsNegative() || res.DailyPrice.IsNegative() ||
		(!res.HourlyPrice.IsPositive() && !res.DailyPrice.IsPositive()) {
		return domain.ErrInvalidPrice
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.Status == "" {
		res.Status = domain.ResourceStatusAvailable
	}
	now := s.clock.Now()
	res.CreatedAt, res.UpdatedAt = now, now
	return s.resourceRepo.Create(ctx, res)
}

func (s *resourceService) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	res, err := s.resourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := s.derive(ctx, res)
	if err != nil {
		return nil, err
	}
	res.Status = status
	return res, nil
}

func (s *resourceService) ListResources(ctx context.Context) ([]domain.Resource, error) {
	resources, err := s.resourceRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range resources {
		status, err := s.derive(ctx, &resources[i])
		if err != nil {
			return nil, err
		}
		resources[i].Status = status
	}
	return resources, nil
}

func (s *resourceService) SetMaintenance(ctx context.Context, id string, on bool) (*domain.Resource, error) {
	res, err := s.resourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if on {
		if res.Status != domain.ResourceStatusMaintenance {
			if err := s.resourceRepo.UpdateStatus(ctx, id, domain.ResourceStatusMaintenance); err != nil {
				return nil, err
			}
		}
		res.Status = domain.ResourceStatusMaintenance
		logger.Info("Resource taken out of service", "resourceID", id)
		return res, nil
	}

	if res.Status == domain.ResourceStatusMaintenance {
		res.Status = domain.ResourceStatusAvailable
		if err := s.resourceRepo.UpdateStatus(ctx, id, res.Status); err != nil {
			return nil, err
		}
		logger.Info("Resource back in service", "resourceID", id)
	}
	status, err := s.derive(ctx, res)
	if err != nil {
		return nil, err
	}
	res.Status = status
	return res, nil
}

// RefreshStatuses runs RefreshStatus over every resource. Applied counts changed statuses.
func (s *resourceService) RefreshStatuses(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{Job: "status-refresh"}
	resources, err := s.resourceRepo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list resources: %w", err)
	}
	for i := range resources {
		report.Examined++
		before := resources[i].Status
		status, err := s.derive(ctx, &resources[i])
		switch {
		case err != nil:
			report.Failed++
			logger.Warn("Failed to refresh resource status", "resourceID", resources[i].ID, "error", err)
		case status != before:
			report.Applied++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

// RefreshStatus marks the resource rented once a confirmed booking has started,
// including overdue ones that were never completed. Maintenance is set by operators and left alone.
func (s *resourceService) RefreshStatus(ctx context.Context, resourceID string) (domain.ResourceStatus, error) {
	res, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		return "", err
	}
	return s.derive(ctx, res)
}

// derive computes the status of res from its active bookings and persists it when it changed.
func (s *resourceService) derive(ctx context.Context, res *domain.Resource) (domain.ResourceStatus, error) {
	if res.Status == domain.ResourceStatusMaintenance {
		return res.Status, nil
	}

	active, err := s.bookingRepo.ListActiveByResource(ctx, res.ID)
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	status := domain.ResourceStatusAvailable
	for _, b := range active {
		if b.Status == domain.BookingStatusConfirmed && !now.Before(b.Window.Start) {
			status = domain.ResourceStatusRented
			break
		}
	}

	if status != res.Status {
		if err := s.resourceRepo.UpdateStatus(ctx, res.ID, status); err != nil {
			return "", err
		}
		logger.Debug("Resource status refreshed", "resourceID", res.ID, "from", string(res.Status), "to", string(status))
	}
	return status, nil
}
