package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DirectoryService is thin pass-through CRUD for the reference entities the
// workflow engine points at: organizations, departments and categories.
type DirectoryService struct {
	organizations repository.OrganizationRepository
	departments   repository.DepartmentRepository
	categories    repository.CategoryRepository
	settings      *SettingsService
}

// DirectoryDependencies bundles repositories for the directory service.
type DirectoryDependencies struct {
	OrganizationRepo repository.OrganizationRepository
	DepartmentRepo   repository.DepartmentRepository
	CategoryRepo     repository.CategoryRepository
	Settings         *SettingsService
}

// NewDirectoryService builds the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		organizations: deps.OrganizationRepo,
		departments:   deps.DepartmentRepo,
		categories:    deps.CategoryRepo,
		settings:      deps.Settings,
	}
}

// CreateOrganization registers a tenant.
func (s *DirectoryService) CreateOrganization(ctx context.Context, name string, settings domain.OrganizationSettings) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("organization name is required", nil)
	}
	org := &domain.Organization{Name: name, IsActive: true, Settings: settings}
	if err := s.organizations.Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// UpdateOrganization saves the tenant and drops its cached settings.
func (s *DirectoryService) UpdateOrganization(ctx context.Context, org *domain.Organization) error {
	if strings.TrimSpace(org.Name) == "" {
		return apperrors.NewValidationError("organization name is required", nil)
	}
	if err := s.organizations.Update(ctx, org); err != nil {
		return err
	}
	if s.settings != nil {
		s.settings.Invalidate(ctx, org.ID)
	}
	return nil
}

// GetOrganization fetches one tenant.
func (s *DirectoryService) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	return s.organizations.GetByID(ctx, id)
}

// ListOrganizations lists active tenants.
func (s *DirectoryService) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.organizations.ListActive(ctx)
}

// CreateDepartment registers a department.
func (s *DirectoryService) CreateDepartment(ctx context.Context, name, description string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("department name is required", nil)
	}
	dept := &domain.Department{Name: name, Description: description, IsActive: true}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, err
	}
	return dept, nil
}

// UpdateDepartment saves a department.
func (s *DirectoryService) UpdateDepartment(ctx context.Context, dept *domain.Department) error {
	if strings.TrimSpace(dept.Name) == "" {
		return apperrors.NewValidationError("department name is required", nil)
	}
	return s.departments.Update(ctx, dept)
}

// GetDepartment fetches one department.
func (s *DirectoryService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	return s.departments.GetByID(ctx, id)
}

// ListDepartments lists active departments.
func (s *DirectoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.ListActive(ctx)
}

// CreateCategory registers a category.
func (s *DirectoryService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}
	category := &domain.Category{Name: name, Description: description, IsActive: true}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory saves a category.
func (s *DirectoryService) UpdateCategory(ctx context.Context, category *domain.Category) error {
	if strings.TrimSpace(category.Name) == "" {
		return apperrors.NewValidationError("category name is required", nil)
	}
	return s.categories.Update(ctx, category)
}

// ListCategories lists active categories.
func (s *DirectoryService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListActive(ctx)
}
