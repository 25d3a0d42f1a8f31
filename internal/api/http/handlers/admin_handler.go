package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminHandler exposes thin CRUD for the reference entities.
type AdminHandler struct {
	directory *service.DirectoryService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{directory: directory}
}

// CreateOrganization POST /admin/organizations.
func (h *AdminHandler) CreateOrganization(c *fiber.Ctx) error {
	var req dto.CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	org, err := h.directory.CreateOrganization(c.UserContext(), req.Name, domain.OrganizationSettings{
		ManualTicketID:        req.Settings.ManualTicketID,
		AllowSelfRegistration: req.Settings.AllowSelfRegistration,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": organizationResponse(org)})
}

// UpdateOrganization PUT /admin/organizations/:id.
func (h *AdminHandler) UpdateOrganization(c *fiber.Ctx) error {
	var req dto.UpdateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	org, err := h.directory.GetOrganization(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if req.Name != "" {
		org.Name = req.Name
	}
	if req.IsActive != nil {
		org.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		org.Settings = domain.OrganizationSettings{
			ManualTicketID:        req.Settings.ManualTicketID,
			AllowSelfRegistration: req.Settings.AllowSelfRegistration,
		}
	}
	if err := h.directory.UpdateOrganization(c.UserContext(), org); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": organizationResponse(org)})
}

// ListOrganizations GET /admin/organizations.
func (h *AdminHandler) ListOrganizations(c *fiber.Ctx) error {
	orgs, err := h.directory.ListOrganizations(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, organizationResponse(&orgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /admin/departments.
func (h *AdminHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDirectoryEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.directory.CreateDepartment(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// UpdateDepartment PUT /admin/departments/:id.
func (h *AdminHandler) UpdateDepartment(c *fiber.Ctx) error {
	var req dto.UpdateDirectoryEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	dept, err := h.directory.GetDepartment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if req.Name != "" {
		dept.Name = req.Name
	}
	if req.Description != "" {
		dept.Description = req.Description
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}
	if err := h.directory.UpdateDepartment(c.UserContext(), dept); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// ListDepartments GET /admin/departments.
func (h *AdminHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.directory.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DirectoryEntryResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /admin/categories.
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CreateDirectoryEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.directory.CreateCategory(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListCategories GET /admin/categories.
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.directory.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DirectoryEntryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func organizationResponse(org *domain.Organization) dto.OrganizationResponse {
	return dto.OrganizationResponse{
		ID:       org.ID,
		Name:     org.Name,
		IsActive: org.IsActive,
		Settings: dto.OrganizationSettingsPayload{
			ManualTicketID:        org.Settings.ManualTicketID,
			AllowSelfRegistration: org.Settings.AllowSelfRegistration,
		},
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

func departmentResponse(dept *domain.Department) dto.DirectoryEntryResponse {
	return dto.DirectoryEntryResponse{
		ID:          dept.ID,
		Name:        dept.Name,
		Description: dept.Description,
		IsActive:    dept.IsActive,
		CreatedAt:   dept.CreatedAt,
		UpdatedAt:   dept.UpdatedAt,
	}
}

func categoryResponse(category *domain.Category) dto.DirectoryEntryResponse {
	return dto.DirectoryEntryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		IsActive:    category.IsActive,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}
