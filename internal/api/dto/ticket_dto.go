package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload. TicketID is honored only for tenants with
// manual codes enabled.
type CreateTicketRequest struct {
	TicketID     string     `json:"ticketId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	CategoryID   *string    `json:"categoryId"`
	DepartmentID *string    `json:"departmentId"`
	DueDate      *time.Time `json:"dueDate"`
}

// UpdateTicketRequest is a sparse edit payload.
type UpdateTicketRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	CategoryID   *string    `json:"categoryId"`
	DepartmentID *string    `json:"departmentId"`
	AssigneeID   *string    `json:"assigneeId"`
	DueDate      *time.Time `json:"dueDate"`
	Solution     *string    `json:"solution"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// RejectTicketRequest payload.
type RejectTicketRequest struct {
	Reason string `json:"reason"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	Internal   bool      `json:"internal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID             string                `json:"id"`
	TicketID       string                `json:"ticketId"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	CategoryID     *string               `json:"categoryId"`
	DepartmentID   *string               `json:"departmentId"`
	AssigneeID     *string               `json:"assigneeId"`
	CreatorID      string                `json:"creatorId"`
	OrganizationID *string               `json:"organizationId"`
	DueDate        *time.Time            `json:"dueDate"`
	Solution       *string               `json:"solution"`
	ApprovedBy     *string               `json:"approvedBy"`
	ApprovedAt     *time.Time            `json:"approvedAt"`
	Comments       []CommentResponse     `json:"comments"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// ApproverResponse identifies who approved a ticket.
type ApproverResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ApproveTicketResponse is the approval result with approver identity.
type ApproveTicketResponse struct {
	Ticket   TicketResponse   `json:"ticket"`
	Approver ApproverResponse `json:"approver"`
}

// DashboardStatsResponse aggregates counters for the caller's scope.
type DashboardStatsResponse struct {
	Total        int              `json:"total"`
	ByStatus     map[string]int   `json:"byStatus"`
	OverdueCount int              `json:"overdueCount"`
	Recent       []TicketResponse `json:"recent"`
}

// ImportTicketRow is one row of a bulk import request.
type ImportTicketRow struct {
	TicketID    string     `json:"ticketId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// ImportTicketsRequest payload.
type ImportTicketsRequest struct {
	Tickets []ImportTicketRow `json:"tickets"`
}

// ImportRowErrorResponse reports one skipped row.
type ImportRowErrorResponse struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportTicketsResponse summarizes a bulk import run.
type ImportTicketsResponse struct {
	Imported int                      `json:"imported"`
	Errors   []ImportRowErrorResponse `json:"errors"`
}
