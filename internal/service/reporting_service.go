package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// DashboardStats aggregates ticket counts for the caller's visible scope.
type DashboardStats struct {
	Total        int
	ByStatus     map[domain.TicketStatus]int
	OverdueCount int
	Recent       []domain.Ticket
}

// ImportRow is one external ticket record submitted for bulk import.
type ImportRow struct {
	Code        string
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
}

// ImportRowError records why one row was skipped.
type ImportRowError struct {
	Index  int
	Reason string
}

// ImportResult summarizes a bulk import run.
type ImportResult struct {
	Imported int
	Errors   []ImportRowError
}

// DashboardStats computes status totals, the overdue count and the most
// recent tickets, scoped by the same visibility rule as listing.
func (s *WorkflowService) DashboardStats(ctx context.Context, actor domain.Actor) (*DashboardStats, error) {
	filter := repository.TicketFilter{}
	if !s.applyVisibility(&filter, actor) {
		return &DashboardStats{ByStatus: map[domain.TicketStatus]int{}, Recent: []domain.Ticket{}}, nil
	}

	byStatus, err := s.tickets.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, count := range byStatus {
		total += count
	}

	overdue, err := s.tickets.CountOverdue(ctx, filter, time.Now())
	if err != nil {
		return nil, err
	}

	recentFilter := filter
	recentFilter.Limit = 5
	recent, err := s.tickets.ListWithFilter(ctx, recentFilter)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []domain.Ticket{}
	}

	return &DashboardStats{
		Total:        total,
		ByStatus:     byStatus,
		OverdueCount: overdue,
		Recent:       recent,
	}, nil
}

// BulkImport maps external rows into tickets owned by the importing admin.
// Rows with missing titles are skipped and reported; unknown status or
// priority values fall back to open/medium rather than failing the row.
func (s *WorkflowService) BulkImport(ctx context.Context, actor domain.Actor, rows []ImportRow) (*ImportResult, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may import tickets")
	}

	result := &ImportResult{}
	for i, row := range rows {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			result.Errors = append(result.Errors, ImportRowError{Index: i, Reason: "title is required"})
			continue
		}

		status := domain.TicketStatus(strings.TrimSpace(row.Status))
		if !status.Valid() {
			status = domain.TicketStatusOpen
		}
		priority := domain.TicketPriority(strings.TrimSpace(row.Priority))
		if !priority.Valid() {
			priority = domain.TicketPriorityMedium
		}

		code := strings.TrimSpace(row.Code)
		if code != "" {
			exists, err := s.tickets.CodeExists(ctx, code)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Errors = append(result.Errors, ImportRowError{
					Index:  i,
					Reason: fmt.Sprintf("ticket code %q already in use", code),
				})
				continue
			}
		} else {
			code = generateTicketCode()
		}

		ticket := &domain.Ticket{
			Code:           code,
			Title:          title,
			Description:    strings.TrimSpace(row.Description),
			Status:         status,
			Priority:       priority,
			CreatorID:      actor.ID,
			OrganizationID: actor.OrganizationID,
			DepartmentID:   actor.DepartmentID,
			DueDate:        row.DueDate,
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Index: i, Reason: err.Error()})
			continue
		}
		result.Imported++
	}
	return result, nil
}
