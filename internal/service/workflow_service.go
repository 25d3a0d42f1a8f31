package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// workflowOp identifies an operation class for authorization checks.
type workflowOp int

const (
	opEdit workflowOp = iota
	opAssign
	opDecide
)

// WorkflowService coordinates the ticket lifecycle: creation, edits,
// comments, approval decisions and visibility-scoped listing.
type WorkflowService struct {
	tickets       repository.TicketRepository
	users         repository.UserRepository
	organizations repository.OrganizationRepository
	settings      *SettingsService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo       repository.TicketRepository
	UserRepo         repository.UserRepository
	OrganizationRepo repository.OrganizationRepository
	Settings         *SettingsService
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Code         string
	Title        string
	Description  string
	Priority     domain.TicketPriority
	CategoryID   *string
	DepartmentID *string
	DueDate      *time.Time
}

// TicketUpdateInput is a sparse edit; nil fields are left untouched.
type TicketUpdateInput struct {
	Title        *string
	Description  *string
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	CategoryID   *string
	DepartmentID *string
	AssigneeID   *string
	DueDate      *time.Time
	Solution     *string
}

// TicketListFilter describes listing filters applied after visibility scoping.
type TicketListFilter struct {
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	OrganizationID *string
	SearchTerm     *string
	Limit          int
	Offset         int
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		tickets:       deps.TicketRepo,
		users:         deps.UserRepo,
		organizations: deps.OrganizationRepo,
		settings:      deps.Settings,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// Create opens a new ticket for the actor.
func (s *WorkflowService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	code, err := s.resolveCode(ctx, actor, input.Code)
	if err != nil {
		return nil, err
	}

	departmentID := input.DepartmentID
	if departmentID == nil {
		departmentID = actor.DepartmentID
	}

	ticket := &domain.Ticket{
		Code:           code,
		Title:          title,
		Description:    description,
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		CategoryID:     input.CategoryID,
		DepartmentID:   departmentID,
		CreatorID:      actor.ID,
		OrganizationID: actor.OrganizationID,
		DueDate:        input.DueDate,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Code:     ticket.Code,
			Title:    ticket.Title,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// Update applies a sparse edit to a ticket. Status and assignee changes are
// filtered by role before persistence; a persisted status change publishes
// a status-changed event after the write succeeds.
func (s *WorkflowService) Update(ctx context.Context, actor domain.Actor, ref string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.resolveTicket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.authorize(actor, ticket, opEdit) {
		return nil, apperrors.NewForbidden("not allowed to modify this ticket")
	}

	patch := repository.TicketPatch{
		Title:        input.Title,
		Description:  input.Description,
		Priority:     input.Priority,
		CategoryID:   input.CategoryID,
		DepartmentID: input.DepartmentID,
		DueDate:      input.DueDate,
		Solution:     input.Solution,
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}

	// Assignee changes are a privileged edit; others are dropped without error.
	if input.AssigneeID != nil && s.authorize(actor, ticket, opAssign) {
		patch.AssigneeID = input.AssigneeID
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		if s.statusChangeAllowed(actor, *input.Status) {
			patch.Status = input.Status
		}
	}

	if patch.Empty() {
		return ticket, nil
	}
	oldStatus := ticket.Status
	updated, err := s.tickets.ApplyPatch(ctx, ticket.ID, patch)
	if err != nil {
		return nil, err
	}
	if updated.Status != oldStatus {
		s.publishStatusChange(ctx, actor, updated, oldStatus)
	}
	return updated, nil
}

// AddComment appends one comment to the ticket thread.
func (s *WorkflowService) AddComment(ctx context.Context, actor domain.Actor, ref, body string, internal bool) (*domain.Ticket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.resolveTicket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to comment on this ticket")
	}
	comment := domain.Comment{
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Body:       body,
		Internal:   internal,
		CreatedAt:  time.Now(),
	}
	updated, err := s.tickets.AppendComment(ctx, ticket.ID, comment)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: updated.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCommentAddedPayload{
			Code:     updated.Code,
			Internal: internal,
			Preview:  commentPreview(body, 120),
		},
	})
	return updated, nil
}

// Approve moves an approval-pending ticket to approved, recording who
// decided and when. Authorization is checked before the status precondition.
func (s *WorkflowService) Approve(ctx context.Context, actor domain.Actor, ref string) (*domain.Ticket, error) {
	ticket, err := s.resolveTicket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.authorize(actor, ticket, opDecide) {
		return nil, apperrors.NewForbidden("not allowed to decide on this ticket")
	}
	if ticket.Status != domain.TicketStatusApprovalPending {
		return nil, apperrors.NewInvalidTransition("ticket is not awaiting approval",
			map[string]any{"status": ticket.Status})
	}

	now := time.Now()
	status := domain.TicketStatusApproved
	updated, err := s.tickets.ApplyPatch(ctx, ticket.ID, repository.TicketPatch{
		Status:     &status,
		ApprovedBy: &actor.ID,
		ApprovedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, actor, updated, ticket.Status)
	return updated, nil
}

// Reject moves an approval-pending ticket to rejected. A non-empty reason is
// recorded as a public comment on the thread. Approval attribution fields are
// never written by rejection.
func (s *WorkflowService) Reject(ctx context.Context, actor domain.Actor, ref, reason string) (*domain.Ticket, error) {
	ticket, err := s.resolveTicket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.authorize(actor, ticket, opDecide) {
		return nil, apperrors.NewForbidden("not allowed to decide on this ticket")
	}
	if ticket.Status != domain.TicketStatusApprovalPending {
		return nil, apperrors.NewInvalidTransition("ticket is not awaiting approval",
			map[string]any{"status": ticket.Status})
	}

	status := domain.TicketStatusRejected
	updated, err := s.tickets.ApplyPatch(ctx, ticket.ID, repository.TicketPatch{Status: &status})
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason != "" {
		withComment, err := s.tickets.AppendComment(ctx, updated.ID, domain.Comment{
			AuthorID:   actor.ID,
			AuthorName: actor.Name,
			Body:       "Ticket rejected: " + reason,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			s.logger.Warn("recording rejection reason failed",
				zap.String("ticket_id", updated.ID), zap.Error(err))
		} else {
			updated = withComment
		}
	}
	s.publishStatusChange(ctx, actor, updated, ticket.Status)
	return updated, nil
}

// Get fetches one ticket the actor is allowed to view.
func (s *WorkflowService) Get(ctx context.Context, actor domain.Actor, ref string) (*domain.Ticket, error) {
	ticket, err := s.resolveTicket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	return ticket, nil
}

// ListVisible returns the tickets the actor may see, newest first.
func (s *WorkflowService) ListVisible(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		OrganizationID: filter.OrganizationID,
		SearchTerm:     filter.SearchTerm,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	if !s.applyVisibility(&repoFilter, actor) {
		return []domain.Ticket{}, nil
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// resolveCode picks the ticket code: system-generated unless the tenant has
// manual codes enabled and the caller supplied one.
func (s *WorkflowService) resolveCode(ctx context.Context, actor domain.Actor, manual string) (string, error) {
	manual = strings.TrimSpace(manual)
	if manual != "" && s.settings != nil {
		enabled, err := s.settings.ManualTicketIDEnabled(ctx, actor.OrganizationID)
		if err != nil {
			s.logger.Warn("manual code lookup failed, using generated code", zap.Error(err))
		} else if enabled {
			exists, err := s.tickets.CodeExists(ctx, manual)
			if err != nil {
				return "", err
			}
			if exists {
				return "", apperrors.NewConflict("ticket code already in use", map[string]any{"code": manual})
			}
			return manual, nil
		}
	}
	return generateTicketCode(), nil
}

// resolveTicket accepts a store id or a human-facing code.
func (s *WorkflowService) resolveTicket(ctx context.Context, ref string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ref)
	if err == nil {
		return ticket, nil
	}
	ticket, err = s.tickets.GetByCode(ctx, ref)
	if err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ref": ref})
	}
	return ticket, nil
}

// authorize is the per-operation role predicate. Department heads may decide
// only within their own department.
func (s *WorkflowService) authorize(actor domain.Actor, ticket *domain.Ticket, op workflowOp) bool {
	switch op {
	case opEdit:
		return actor.Role.Privileged() || ticket.CreatorID == actor.ID
	case opAssign:
		return actor.Role.Privileged()
	case opDecide:
		if actor.Role.Privileged() {
			return true
		}
		if actor.Role != domain.RoleDepartmentHead {
			return false
		}
		return actor.DepartmentID != nil && ticket.DepartmentID != nil &&
			*actor.DepartmentID == *ticket.DepartmentID
	}
	return false
}

// statusChangeAllowed applies the role-filtered status policy: privileged
// roles may set any status, creators only resolved or closed. Disallowed
// values are dropped silently rather than rejected.
func (s *WorkflowService) statusChangeAllowed(actor domain.Actor, status domain.TicketStatus) bool {
	if actor.Role.Privileged() {
		return true
	}
	return status == domain.TicketStatusResolved || status == domain.TicketStatusClosed
}

func (s *WorkflowService) canView(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.Role.Privileged() {
		return true
	}
	if ticket.CreatorID == actor.ID {
		return true
	}
	if actor.Role == domain.RoleDepartmentHead {
		return actor.DepartmentID != nil && ticket.DepartmentID != nil &&
			*actor.DepartmentID == *ticket.DepartmentID
	}
	return false
}

// applyVisibility narrows a filter to the actor's scope. It returns false
// when the actor can see nothing at all.
func (s *WorkflowService) applyVisibility(filter *repository.TicketFilter, actor domain.Actor) bool {
	switch {
	case actor.Role.Privileged():
		return true
	case actor.Role == domain.RoleDepartmentHead:
		if actor.DepartmentID == nil {
			return false
		}
		filter.DepartmentID = actor.DepartmentID
		return true
	default:
		creatorID := actor.ID
		filter.CreatorID = &creatorID
		return true
	}
}

func (s *WorkflowService) publishStatusChange(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			Code:      ticket.Code,
			Title:     ticket.Title,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			CreatorID: ticket.CreatorID,
			Solution:  ticket.Solution,
		},
	})
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{ID: actor.ID, Name: actor.Name, Role: actor.Role}
}

func generateTicketCode() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func commentPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
