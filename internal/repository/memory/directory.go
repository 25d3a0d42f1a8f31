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

// DepartmentRepository is a map-backed department store.
type DepartmentRepository struct {
	mu    sync.RWMutex
	depts map[string]*domain.Department
}

// NewDepartmentRepository builds an empty store.
func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{depts: make(map[string]*domain.Department)}
}

var _ repository.DepartmentRepository = (*DepartmentRepository)(nil)

func (r *DepartmentRepository) Create(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	now := time.Now()
	dept.CreatedAt = now
	dept.UpdatedAt = now
	dup := *dept
	r.depts[dept.ID] = &dup
	return nil
}

func (r *DepartmentRepository) Update(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.depts[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept.UpdatedAt = time.Now()
	dup := *dept
	r.depts[dept.ID] = &dup
	return nil
}

func (r *DepartmentRepository) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dept, ok := r.depts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	dup := *dept
	return &dup, nil
}

func (r *DepartmentRepository) ListActive(_ context.Context) ([]domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Department
	for _, dept := range r.depts {
		if dept.IsActive {
			result = append(result, *dept)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CategoryRepository is a map-backed category store.
type CategoryRepository struct {
	mu         sync.RWMutex
	categories map[string]*domain.Category
}

// NewCategoryRepository builds an empty store.
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{categories: make(map[string]*domain.Category)}
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

func (r *CategoryRepository) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now
	dup := *category
	r.categories[category.ID] = &dup
	return nil
}

func (r *CategoryRepository) Update(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	category.UpdatedAt = time.Now()
	dup := *category
	r.categories[category.ID] = &dup
	return nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	category, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	dup := *category
	return &dup, nil
}

func (r *CategoryRepository) ListActive(_ context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Category
	for _, category := range r.categories {
		if category.IsActive {
			result = append(result, *category)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
