package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

type testServer struct {
	app *fiber.App
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "helpdesk-test", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 15,
			BcryptCost:            4,
		},
	}

	tickets := memory.NewTicketRepository()
	users := memory.NewUserRepository()
	orgs := memory.NewOrganizationRepository()
	depts := memory.NewDepartmentRepository()
	categories := memory.NewCategoryRepository()

	dispatcher := events.NewInMemoryDispatcher(nil)
	settings := service.NewSettingsService(orgs, nil, 0, nil)
	workflow := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:       tickets,
		UserRepo:         users,
		OrganizationRepo: orgs,
		Settings:         settings,
		Dispatcher:       dispatcher,
	})
	authService := service.NewAuthService(cfg, users)
	directory := service.NewDirectoryService(service.DirectoryDependencies{
		OrganizationRepo: orgs,
		DepartmentRepo:   depts,
		CategoryRepo:     categories,
		Settings:         settings,
	})
	notifier := service.NewEmailNotifier(cfg.Notification, nil)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, users, notifier, nil))

	app := fiber.New()
	RegisterMiddlewares(app, testLogger(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, &persistence.Postgres{}, &persistence.Redis{}),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(workflow),
		Admin:          handlers.NewAdminHandler(directory),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users),
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	payload := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload))
	}
	return resp, payload
}

func (s *testServer) registerAndLogin(t *testing.T, name, email string) string {
	t.Helper()
	resp, payload := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := payload["data"].(map[string]any)
	return data["token"].(string)
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)
	resp, payload := s.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alive", payload["status"])
	require.Equal(t, "helpdesk-test", payload["service"])
}

func TestHealthReadyReportsMissingDependencies(t *testing.T) {
	s := newTestServer(t)
	resp, payload := s.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	errPayload := payload["error"].(map[string]any)
	require.Equal(t, "DEPENDENCY_UNAVAILABLE", errPayload["code"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	resp, payload := s.do(t, http.MethodGet, "/api/tickets", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errPayload := payload["error"].(map[string]any)
	require.Equal(t, "UNAUTHORIZED", errPayload["code"])
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Uma", "uma@example.com")

	resp, payload := s.do(t, http.MethodPost, "/api/tickets", token, map[string]any{
		"title":       "Broken chair",
		"description": "Leg fell off",
		"priority":    "high",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ticket := payload["data"].(map[string]any)
	require.Equal(t, "open", ticket["status"])
	require.Equal(t, "high", ticket["priority"])
	code := ticket["ticketId"].(string)

	resp, payload = s.do(t, http.MethodGet, "/api/tickets/"+code, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Broken chair", payload["data"].(map[string]any)["title"])

	resp, payload = s.do(t, http.MethodPost, "/api/tickets/"+code+"/comments", token, map[string]any{
		"body": "any update?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comments := payload["data"].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 1)

	// a plain user cannot decide approvals
	resp, payload = s.do(t, http.MethodPost, "/api/tickets/"+code+"/approve", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "FORBIDDEN", payload["error"].(map[string]any)["code"])

	resp, payload = s.do(t, http.MethodGet, fmt.Sprintf("/api/tickets/%s", "TKT-NOPE0000"), token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", payload["error"].(map[string]any)["code"])
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Uma", "uma@example.com")

	resp, payload := s.do(t, http.MethodGet, "/api/admin/departments", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "FORBIDDEN", payload["error"].(map[string]any)["code"])
}

func TestDashboardRouteResolvesBeforeRefRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "Uma", "uma@example.com")

	resp, payload := s.do(t, http.MethodGet, "/api/tickets/stats/dashboard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]any)
	require.Contains(t, data, "byStatus")
	require.Contains(t, data, "overdueCount")
}
