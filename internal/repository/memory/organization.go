package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// OrganizationRepository is a map-backed tenant store.
type OrganizationRepository struct {
	mu   sync.RWMutex
	orgs map[string]*domain.Organization
}

// NewOrganizationRepository builds an empty store.
func NewOrganizationRepository() *OrganizationRepository {
	return &OrganizationRepository{orgs: make(map[string]*domain.Organization)}
}

var _ repository.OrganizationRepository = (*OrganizationRepository)(nil)

func (r *OrganizationRepository) Create(_ context.Context, org *domain.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now
	dup := *org
	r.orgs[org.ID] = &dup
	return nil
}

func (r *OrganizationRepository) Update(_ context.Context, org *domain.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orgs[org.ID]; !ok {
		return pgx.ErrNoRows
	}
	org.UpdatedAt = time.Now()
	dup := *org
	r.orgs[org.ID] = &dup
	return nil
}

func (r *OrganizationRepository) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	dup := *org
	return &dup, nil
}

func (r *OrganizationRepository) ListActive(_ context.Context) ([]domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Organization
	for _, org := range r.orgs {
		if org.IsActive {
			result = append(result, *org)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
