package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func TestDashboardStatsScoping(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Ada", domain.RoleAdmin, nil)
	user := f.addUser(t, "Carol", domain.RoleUser, nil)

	_, err := f.workflow.Create(ctx, user, TicketCreateInput{Title: "mine", Description: "d"})
	require.NoError(t, err)
	other, err := f.workflow.Create(ctx, admin, TicketCreateInput{Title: "theirs", Description: "d"})
	require.NoError(t, err)
	_, err = f.workflow.Update(ctx, admin, other.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)

	adminStats, err := f.workflow.DashboardStats(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 2, adminStats.Total)
	require.Equal(t, 1, adminStats.ByStatus[domain.TicketStatusOpen])
	require.Equal(t, 1, adminStats.ByStatus[domain.TicketStatusInProgress])
	require.Len(t, adminStats.Recent, 2)

	userStats, err := f.workflow.DashboardStats(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 1, userStats.Total)
	require.Len(t, userStats.Recent, 1)
	require.Equal(t, "mine", userStats.Recent[0].Title)
}

func TestDashboardStatsOverdue(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Ada", domain.RoleAdmin, nil)

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	_, err := f.workflow.Create(ctx, admin, TicketCreateInput{Title: "late", Description: "d", DueDate: &past})
	require.NoError(t, err)
	_, err = f.workflow.Create(ctx, admin, TicketCreateInput{Title: "on track", Description: "d", DueDate: &future})
	require.NoError(t, err)

	// a closed ticket past its due date is not overdue
	closedLate, err := f.workflow.Create(ctx, admin, TicketCreateInput{Title: "done late", Description: "d", DueDate: &past})
	require.NoError(t, err)
	_, err = f.workflow.Update(ctx, admin, closedLate.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)

	stats, err := f.workflow.DashboardStats(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 1, stats.OverdueCount)
}

func TestBulkImportValidation(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Ada", domain.RoleAdmin, nil)
	agent := f.addUser(t, "Alex", domain.RoleAgent, nil)

	_, err := f.workflow.BulkImport(ctx, agent, nil)
	require.Error(t, err)
	require.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	result, err := f.workflow.BulkImport(ctx, admin, []ImportRow{
		{Title: "valid", Description: "d", Status: "in-progress", Priority: "high"},
		{Title: "fallbacks", Description: "d", Status: "bogus", Priority: "asap"},
		{Title: "", Description: "missing title"},
		{Code: "LEGACY-1", Title: "keeps code", Description: "d"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Imported)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 2, result.Errors[0].Index)

	imported, err := f.workflow.ListVisible(ctx, admin, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, imported, 3)

	byTitle := make(map[string]domain.Ticket, len(imported))
	for _, ticket := range imported {
		byTitle[ticket.Title] = ticket
	}
	require.Equal(t, domain.TicketStatusInProgress, byTitle["valid"].Status)
	require.Equal(t, domain.TicketPriorityHigh, byTitle["valid"].Priority)
	require.Equal(t, domain.TicketStatusOpen, byTitle["fallbacks"].Status)
	require.Equal(t, domain.TicketPriorityMedium, byTitle["fallbacks"].Priority)
	require.Equal(t, "LEGACY-1", byTitle["keeps code"].Code)
	require.Equal(t, admin.ID, byTitle["valid"].CreatorID)
}

func TestBulkImportDuplicateCode(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "Ada", domain.RoleAdmin, nil)

	first, err := f.workflow.BulkImport(ctx, admin, []ImportRow{
		{Code: "LEGACY-1", Title: "one", Description: "d"},
		{Code: "LEGACY-1", Title: "two", Description: "d"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Imported)
	require.Len(t, first.Errors, 1)
	require.True(t, strings.Contains(first.Errors[0].Reason, "LEGACY-1"))
}
