package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type recordingNotifier struct {
	mu       sync.Mutex
	attempts []StatusChangeNotification
	result   bool
}

func (r *recordingNotifier) SendStatusChange(_ context.Context, n StatusChangeNotification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, n)
	return r.result
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type workflowFixture struct {
	workflow *WorkflowService
	tickets  *memory.TicketRepository
	users    *memory.UserRepository
	orgs     *memory.OrganizationRepository
	notifier *recordingNotifier
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	tickets := memory.NewTicketRepository()
	users := memory.NewUserRepository()
	orgs := memory.NewOrganizationRepository()
	dispatcher := events.NewInMemoryDispatcher(nil)
	settings := NewSettingsService(orgs, nil, 0, nil)

	notifier := &recordingNotifier{result: true}
	notifications := NewNotificationService(dispatcher, users, notifier, nil)
	notifications.RegisterHandlers()

	workflow := NewWorkflowService(WorkflowDependencies{
		TicketRepo:       tickets,
		UserRepo:         users,
		OrganizationRepo: orgs,
		Settings:         settings,
		Dispatcher:       dispatcher,
	})
	return &workflowFixture{
		workflow: workflow,
		tickets:  tickets,
		users:    users,
		orgs:     orgs,
		notifier: notifier,
	}
}

func (f *workflowFixture) addUser(t *testing.T, name string, role domain.Role, deptID *string) domain.Actor {
	t.Helper()
	user := &domain.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "x",
		Role:         role,
		DepartmentID: deptID,
		Status:       domain.UserStatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return domain.ActorFromUser(user)
}

func strptr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func TestCreateTicketDefaults(t *testing.T) {
	f := newWorkflowFixture(t)
	actor := f.addUser(t, "Uma", domain.RoleUser, nil)

	ticket, err := f.workflow.Create(context.Background(), actor, TicketCreateInput{
		Title:       "Printer broken",
		Description: "It jams on every page",
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.Equal(t, actor.ID, ticket.CreatorID)
	require.True(t, strings.HasPrefix(ticket.Code, "TKT-"))
	require.Len(t, ticket.Code, 12)
	require.Equal(t, strings.ToUpper(ticket.Code), ticket.Code)
}

func TestCreateTicketRequiresTitleAndDescription(t *testing.T) {
	f := newWorkflowFixture(t)
	actor := f.addUser(t, "Uma", domain.RoleUser, nil)

	_, err := f.workflow.Create(context.Background(), actor, TicketCreateInput{Description: "x"})
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = f.workflow.Create(context.Background(), actor, TicketCreateInput{Title: "  "})
	require.Error(t, err)
}

func TestManualCodeHonoredOnlyWhenTenantEnablesIt(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	org := &domain.Organization{Name: "Acme", IsActive: true,
		Settings: domain.OrganizationSettings{ManualTicketID: true}}
	require.NoError(t, f.orgs.Create(ctx, org))

	actor := f.addUser(t, "Adam", domain.RoleAdmin, nil)
	actor.OrganizationID = &org.ID

	ticket, err := f.workflow.Create(ctx, actor, TicketCreateInput{
		Code: "HELP-1", Title: "a", Description: "b",
	})
	require.NoError(t, err)
	require.Equal(t, "HELP-1", ticket.Code)

	// collision on the manual code
	_, err = f.workflow.Create(ctx, actor, TicketCreateInput{
		Code: "HELP-1", Title: "c", Description: "d",
	})
	require.Error(t, err)
	require.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	// tenant with manual mode off gets a generated code
	plain := f.addUser(t, "Nora", domain.RoleUser, nil)
	generated, err := f.workflow.Create(ctx, plain, TicketCreateInput{
		Code: "HELP-2", Title: "e", Description: "f",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(generated.Code, "TKT-"))
}

func TestUpdateStatusPolicyForCreator(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	// creator may not push into in-progress; the change is dropped silently
	updated, err := f.workflow.Update(ctx, creator, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, updated.Status)
	require.Equal(t, 0, f.notifier.count())

	// resolved is allowed for the creator
	updated, err = f.workflow.Update(ctx, creator, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusResolved),
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.Equal(t, 1, f.notifier.count())
}

func TestUpdateStatusPrivilegedAnyValue(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	updated, err := f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusApprovalPending),
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusApprovalPending, updated.Status)
	require.Equal(t, 1, f.notifier.count())
}

func TestUpdateInvalidStatusValueRejected(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)
	ticket, err := f.workflow.Create(ctx, agent, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	bogus := domain.TicketStatus("escalated")
	_, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{Status: &bogus})
	require.Error(t, err)
	require.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestUpdateAssigneeIgnoredForNonPrivileged(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	updated, err := f.workflow.Update(ctx, creator, ticket.ID, TicketUpdateInput{
		AssigneeID: strptr(agent.ID),
	})
	require.NoError(t, err)
	require.Nil(t, updated.AssigneeID)

	updated, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		AssigneeID: strptr(agent.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	require.Equal(t, agent.ID, *updated.AssigneeID)
}

func TestUpdateForbiddenForStranger(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	stranger := f.addUser(t, "Steve", domain.RoleUser, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	_, err = f.workflow.Update(ctx, stranger, ticket.ID, TicketUpdateInput{Title: strptr("hijack")})
	require.Error(t, err)
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestResolveTicketByCodeAndNotFound(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	byCode, err := f.workflow.Get(ctx, creator, ticket.Code)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, byCode.ID)

	_, err = f.workflow.Get(ctx, creator, "TKT-MISSING1")
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestApproveSetsAttributionAndNotifies(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusApprovalPending),
	})
	require.NoError(t, err)
	before := f.notifier.count()

	approved, err := f.workflow.Approve(ctx, agent, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	require.Equal(t, agent.ID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	require.Equal(t, before+1, f.notifier.count())
}

func TestApproveWrongStatusLeavesTicketUnchanged(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	before := f.notifier.count()

	_, err = f.workflow.Approve(ctx, agent, ticket.ID)
	require.Error(t, err)
	require.Equal(t, "INVALID_TRANSITION", apperrors.ToDomainError(err).Code)

	current, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, current.Status)
	require.Nil(t, current.ApprovedBy)
	require.Equal(t, before, f.notifier.count())
}

func TestDepartmentHeadDecisionScope(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	deptA := "dept-a"
	deptB := "dept-b"

	creator := f.addUser(t, "Carol", domain.RoleUser, &deptA)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)
	headA := f.addUser(t, "Hana", domain.RoleDepartmentHead, &deptA)
	headB := f.addUser(t, "Hugo", domain.RoleDepartmentHead, &deptB)
	headless := f.addUser(t, "Nils", domain.RoleDepartmentHead, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusApprovalPending),
	})
	require.NoError(t, err)

	// authorization is checked before the status precondition
	_, err = f.workflow.Approve(ctx, headB, ticket.ID)
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	_, err = f.workflow.Approve(ctx, headless, ticket.ID)
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	_, err = f.workflow.Approve(ctx, creator, ticket.ID)
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	approved, err := f.workflow.Approve(ctx, headA, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusApproved, approved.Status)
	require.Equal(t, headA.ID, *approved.ApprovedBy)
}

func TestRejectRecordsReasonCommentWithoutAttribution(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusApprovalPending),
	})
	require.NoError(t, err)
	before := f.notifier.count()

	rejected, err := f.workflow.Reject(ctx, agent, ticket.ID, "missing cost center")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusRejected, rejected.Status)
	require.Nil(t, rejected.ApprovedBy)
	require.Nil(t, rejected.ApprovedAt)
	require.Len(t, rejected.Comments, 1)
	require.Equal(t, "Ticket rejected: missing cost center", rejected.Comments[0].Body)
	require.Equal(t, agent.ID, rejected.Comments[0].AuthorID)
	require.False(t, rejected.Comments[0].Internal)
	require.Equal(t, before+1, f.notifier.count())
}

func TestRejectWithoutReasonAddsNoComment(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	_, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusApprovalPending),
	})
	require.NoError(t, err)

	rejected, err := f.workflow.Reject(ctx, agent, ticket.ID, "   ")
	require.NoError(t, err)
	require.Empty(t, rejected.Comments)
}

func TestAddCommentOrderingAndVisibilityCheck(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)
	stranger := f.addUser(t, "Steve", domain.RoleUser, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	createdAt := ticket.UpdatedAt

	_, err = f.workflow.AddComment(ctx, creator, ticket.ID, "first", false)
	require.NoError(t, err)
	second, err := f.workflow.AddComment(ctx, creator, ticket.ID, "second", true)
	require.NoError(t, err)

	require.Len(t, second.Comments, 2)
	require.Equal(t, "first", second.Comments[0].Body)
	require.Equal(t, "second", second.Comments[1].Body)
	require.True(t, second.Comments[1].Internal)
	require.False(t, second.UpdatedAt.Before(createdAt))

	_, err = f.workflow.AddComment(ctx, stranger, ticket.ID, "nope", false)
	require.Error(t, err)
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestListVisibleScopes(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	deptA := "dept-a"

	admin := f.addUser(t, "Ada", domain.RoleAdmin, nil)
	head := f.addUser(t, "Hana", domain.RoleDepartmentHead, &deptA)
	headless := f.addUser(t, "Nils", domain.RoleDepartmentHead, nil)
	userA := f.addUser(t, "Carol", domain.RoleUser, &deptA)
	userB := f.addUser(t, "Steve", domain.RoleUser, nil)

	_, err := f.workflow.Create(ctx, userA, TicketCreateInput{Title: "a", Description: "d"})
	require.NoError(t, err)
	_, err = f.workflow.Create(ctx, userB, TicketCreateInput{Title: "b", Description: "d"})
	require.NoError(t, err)

	all, err := f.workflow.ListVisible(ctx, admin, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	deptOnly, err := f.workflow.ListVisible(ctx, head, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, deptOnly, 1)
	require.Equal(t, userA.ID, deptOnly[0].CreatorID)

	none, err := f.workflow.ListVisible(ctx, headless, TicketListFilter{})
	require.NoError(t, err)
	require.Empty(t, none)

	own, err := f.workflow.ListVisible(ctx, userB, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, userB.ID, own[0].CreatorID)
}

func TestListVisibleFilters(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Ada", domain.RoleAdmin, nil)

	_, err := f.workflow.Create(ctx, admin, TicketCreateInput{Title: "VPN down", Description: "d", Priority: domain.TicketPriorityHigh})
	require.NoError(t, err)
	_, err = f.workflow.Create(ctx, admin, TicketCreateInput{Title: "Laptop order", Description: "d"})
	require.NoError(t, err)

	high, err := f.workflow.ListVisible(ctx, admin, TicketListFilter{
		Priorities: []domain.TicketPriority{domain.TicketPriorityHigh},
	})
	require.NoError(t, err)
	require.Len(t, high, 1)
	require.Equal(t, "VPN down", high[0].Title)

	search := "vpn"
	found, err := f.workflow.ListVisible(ctx, admin, TicketListFilter{SearchTerm: &search})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestNotificationFailureDoesNotSurface(t *testing.T) {
	f := newWorkflowFixture(t)
	f.notifier.result = false
	ctx := context.Background()
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	ticket, err := f.workflow.Create(ctx, agent, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	updated, err := f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, updated.Status)
	require.Equal(t, 1, f.notifier.count())
}

func TestFullApprovalScenario(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	dept := "facilities"

	user := f.addUser(t, "Uma", domain.RoleUser, &dept)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)
	head := f.addUser(t, "Hana", domain.RoleDepartmentHead, &dept)

	ticket, err := f.workflow.Create(ctx, user, TicketCreateInput{
		Title:       "New standing desk",
		Description: "Requesting a standing desk for the office",
		Priority:    domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	_, err = f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusApprovalPending),
	})
	require.NoError(t, err)

	approved, err := f.workflow.Approve(ctx, head, ticket.Code)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusApproved, approved.Status)

	solution := "Desk ordered and delivered"
	resolved, err := f.workflow.Update(ctx, agent, ticket.ID, TicketUpdateInput{
		Status:   statusPtr(domain.TicketStatusResolved),
		Solution: &solution,
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusResolved, resolved.Status)

	closed, err := f.workflow.Update(ctx, user, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, closed.Status)

	// one notification per persisted transition
	require.Equal(t, 4, f.notifier.count())

	last := f.notifier.attempts[len(f.notifier.attempts)-1]
	require.Equal(t, domain.TicketStatusResolved, last.OldStatus)
	require.Equal(t, domain.TicketStatusClosed, last.NewStatus)
	require.Equal(t, user.Email, last.RecipientEmail)
	require.Equal(t, "Uma", last.ActorName)
}

func TestUpdateWithEmptyPatchIsNoOp(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	creator := f.addUser(t, "Carol", domain.RoleUser, nil)

	ticket, err := f.workflow.Create(ctx, creator, TicketCreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	same, err := f.workflow.Update(ctx, creator, ticket.ID, TicketUpdateInput{})
	require.NoError(t, err)
	require.Equal(t, ticket.ID, same.ID)
	require.Equal(t, 0, f.notifier.count())

	// racing sparse updates on distinct fields both land
	title := "renamed"
	priority := domain.TicketPriorityUrgent
	_, err = f.workflow.Update(ctx, creator, ticket.ID, TicketUpdateInput{Title: &title})
	require.NoError(t, err)
	final, err := f.workflow.Update(ctx, creator, ticket.ID, TicketUpdateInput{Priority: &priority})
	require.NoError(t, err)
	require.Equal(t, "renamed", final.Title)
	require.Equal(t, domain.TicketPriorityUrgent, final.Priority)
}
