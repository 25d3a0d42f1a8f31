package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages ticket workflow endpoints.
type TicketsHandler struct {
	workflow *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflow *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{workflow: workflow}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.Create(c.UserContext(), actor, service.TicketCreateInput{
		Code:         req.TicketID,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     domain.TicketPriority(req.Priority),
		CategoryID:   req.CategoryID,
		DepartmentID: req.DepartmentID,
		DueDate:      req.DueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.workflow.ListVisible(c.UserContext(), actor, parseTicketListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:ref.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.workflow.Get(c.UserContext(), actor, c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:ref.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		DepartmentID: req.DepartmentID,
		AssigneeID:   req.AssigneeID,
		DueDate:      req.DueDate,
		Solution:     req.Solution,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}

	ticket, err := h.workflow.Update(c.UserContext(), actor, c.Params("ref"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:ref/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.AddComment(c.UserContext(), actor, c.Params("ref"), req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ApproveTicket POST /tickets/:ref/approve.
func (h *TicketsHandler) ApproveTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.workflow.Approve(c.UserContext(), actor, c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ApproveTicketResponse{
		Ticket:   ticketResponse(ticket),
		Approver: dto.ApproverResponse{Name: actor.Name, Email: actor.Email},
	}})
}

// RejectTicket POST /tickets/:ref/reject.
func (h *TicketsHandler) RejectTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.Reject(c.UserContext(), actor, c.Params("ref"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DashboardStats GET /tickets/stats/dashboard.
func (h *TicketsHandler) DashboardStats(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.workflow.DashboardStats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	recent := make([]dto.TicketResponse, 0, len(stats.Recent))
	for i := range stats.Recent {
		recent = append(recent, ticketResponse(&stats.Recent[i]))
	}
	return c.JSON(fiber.Map{"data": dto.DashboardStatsResponse{
		Total:        stats.Total,
		ByStatus:     byStatus,
		OverdueCount: stats.OverdueCount,
		Recent:       recent,
	}})
}

// ImportTickets POST /tickets/import.
func (h *TicketsHandler) ImportTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ImportTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rows := make([]service.ImportRow, 0, len(req.Tickets))
	for _, row := range req.Tickets {
		rows = append(rows, service.ImportRow{
			Code:        row.TicketID,
			Title:       row.Title,
			Description: row.Description,
			Status:      row.Status,
			Priority:    row.Priority,
			DueDate:     row.DueDate,
		})
	}
	result, err := h.workflow.BulkImport(c.UserContext(), actor, rows)
	if err != nil {
		return err
	}
	errorsResp := make([]dto.ImportRowErrorResponse, 0, len(result.Errors))
	for _, rowErr := range result.Errors {
		errorsResp = append(errorsResp, dto.ImportRowErrorResponse{Index: rowErr.Index, Reason: rowErr.Reason})
	}
	return c.JSON(fiber.Map{"data": dto.ImportTicketsResponse{
		Imported: result.Imported,
		Errors:   errorsResp,
	}})
}

func parseTicketListQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if org := c.Query("organizationId"); org != "" {
		filter.OrganizationID = &org
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("pageSize"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	comments := make([]dto.CommentResponse, 0, len(ticket.Comments))
	for _, comment := range ticket.Comments {
		comments = append(comments, dto.CommentResponse{
			AuthorID:   comment.AuthorID,
			AuthorName: comment.AuthorName,
			Body:       comment.Body,
			Internal:   comment.Internal,
			CreatedAt:  comment.CreatedAt,
		})
	}
	return dto.TicketResponse{
		ID:             ticket.ID,
		TicketID:       ticket.Code,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		CategoryID:     ticket.CategoryID,
		DepartmentID:   ticket.DepartmentID,
		AssigneeID:     ticket.AssigneeID,
		CreatorID:      ticket.CreatorID,
		OrganizationID: ticket.OrganizationID,
		DueDate:        ticket.DueDate,
		Solution:       ticket.Solution,
		ApprovedBy:     ticket.ApprovedBy,
		ApprovedAt:     ticket.ApprovedAt,
		Comments:       comments,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}
