package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"consolerent-backend/internal/domain"
)

type ResourceRepository struct {
	mu        sync.RWMutex
	resources map[string]domain.Resource
}

func NewResourceRepository() *ResourceRepository {
	return &ResourceRepository{resources: make(map[string]domain.Resource)}
}

func (r *ResourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.Status == "" {
		res.Status = domain.ResourceStatusAvailable
	}
	r.resources[res.ID] = *res
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (r *ResourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ResourceRepository) UpdateStatus(ctx context.Context, id string, status domain.ResourceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resources[id]
	if !ok {
		return domain.ErrNotFound
	}
	res.Status = status
	r.resources[id] = res
	return nil
}
