// Package memory provides in-memory repository implementations used by tests
// and local development. Semantics mirror the Postgres implementations,
// including the pgx.ErrNoRows sentinel for missing rows.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// TicketRepository is a mutex-guarded map-backed ticket store.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewTicketRepository builds an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]*domain.Ticket)}
}

var _ repository.TicketRepository = (*TicketRepository)(nil)

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *TicketRepository) ApplyPatch(_ context.Context, id string, patch repository.TicketPatch) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		ticket.Title = *patch.Title
	}
	if patch.Description != nil {
		ticket.Description = *patch.Description
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.CategoryID != nil {
		ticket.CategoryID = patch.CategoryID
	}
	if patch.DepartmentID != nil {
		ticket.DepartmentID = patch.DepartmentID
	}
	if patch.AssigneeID != nil {
		ticket.AssigneeID = patch.AssigneeID
	}
	if patch.DueDate != nil {
		ticket.DueDate = patch.DueDate
	}
	if patch.Solution != nil {
		ticket.Solution = patch.Solution
	}
	if patch.ApprovedBy != nil {
		ticket.ApprovedBy = patch.ApprovedBy
	}
	if patch.ApprovedAt != nil {
		ticket.ApprovedAt = patch.ApprovedAt
	}
	ticket.UpdatedAt = time.Now()
	return copyTicket(ticket), nil
}

func (r *TicketRepository) AppendComment(_ context.Context, id string, comment domain.Comment) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Comments = append(ticket.Comments, comment)
	ticket.UpdatedAt = time.Now()
	return copyTicket(ticket), nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyTicket(ticket), nil
}

func (r *TicketRepository) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ticket := range r.tickets {
		if ticket.Code == code {
			return copyTicket(ticket), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *TicketRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ticket := range r.tickets {
		if ticket.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *TicketRepository) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, *copyTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *TicketRepository) CountByStatus(_ context.Context, filter repository.TicketFilter) (map[domain.TicketStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.TicketStatus]int)
	for _, ticket := range r.tickets {
		if matchesScope(ticket, filter) {
			counts[ticket.Status]++
		}
	}
	return counts, nil
}

func (r *TicketRepository) CountOverdue(_ context.Context, filter repository.TicketFilter, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, ticket := range r.tickets {
		if !matchesScope(ticket, filter) {
			continue
		}
		if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusInProgress {
			continue
		}
		if ticket.DueDate != nil && ticket.DueDate.Before(now) {
			count++
		}
	}
	return count, nil
}

func matchesScope(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.DepartmentID != nil {
		if ticket.DepartmentID == nil || *ticket.DepartmentID != *filter.DepartmentID {
			return false
		}
	}
	if filter.OrganizationID != nil {
		if ticket.OrganizationID == nil || *ticket.OrganizationID != *filter.OrganizationID {
			return false
		}
	}
	return true
}

func matchesFilter(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if !matchesScope(ticket, filter) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if !strings.Contains(strings.ToLower(ticket.Title), needle) &&
			!strings.Contains(strings.ToLower(ticket.Description), needle) &&
			!strings.Contains(strings.ToLower(ticket.Code), needle) {
			return false
		}
	}
	return true
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func containsPriority(priorities []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, candidate := range priorities {
		if candidate == priority {
			return true
		}
	}
	return false
}

func copyTicket(ticket *domain.Ticket) *domain.Ticket {
	dup := *ticket
	dup.Comments = append([]domain.Comment(nil), ticket.Comments...)
	dup.Attachments = append([]domain.Attachment(nil), ticket.Attachments...)
	return &dup
}
