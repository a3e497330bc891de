package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/workitem-gateway/internal/api/http"
	"github.com/spec-kit/workitem-gateway/internal/api/http/handlers"
	"github.com/spec-kit/workitem-gateway/internal/azure"
	"github.com/spec-kit/workitem-gateway/internal/azure/azuretest"
	"github.com/spec-kit/workitem-gateway/internal/config"
	"github.com/spec-kit/workitem-gateway/internal/observability"
	"github.com/spec-kit/workitem-gateway/internal/service"
)

func newTestApp(t *testing.T) (*fiber.App, *azuretest.FakeClient) {
	t.Helper()
	fake := azuretest.NewFakeClient()
	logger := zap.NewNop()

	tickets := service.NewTicketService(service.TicketDependencies{Store: fake, Logger: logger})
	reversals := service.NewReversalService(service.ReversalDependencies{
		Tickets: tickets,
		Store:   fake,
		Logger:  logger,
	})
	teams := service.NewTeamService(service.TeamDependencies{
		Store:   fake,
		Tickets: tickets,
		Project: "Payments",
		Logger:  logger,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler("workitem-gateway", "test", fake),
		Tickets:   handlers.NewTicketsHandler(tickets, config.UploadConfig{TempDir: t.TempDir(), MaxFiles: 5}),
		Reversals: handlers.NewReversalsHandler(reversals, config.UploadConfig{TempDir: t.TempDir(), MaxFiles: 5}),
		Teams:     handlers.NewTeamsHandler(teams),
	})
	return app, fake
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	return resp.StatusCode, parsed
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, "success", body["status"], "body: %v", body)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	return data
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "body: %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func TestHealthLive(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}

func TestCreateTicket(t *testing.T) {
	app, fake := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/tickets", map[string]any{
		"title":       "Reversal follow-up",
		"description": "Check the failed batch",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := dataOf(t, body)
	assert.Equal(t, "DRAFT", data["state"])
	assert.Equal(t, "Reversal follow-up", data["title"])
	assert.Len(t, fake.Items, 1)
}

func TestCreateTicketRejectsEmptyTitle(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/tickets", map[string]any{"description": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestGetTicketNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/tickets/42", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestGetTicketRejectsNonNumericID(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "GET", "/tickets/abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestMoveTicket(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Seed(42, map[string]any{
		"System.Title": "T",
		"System.State": "Borrador",
	})

	status, body := doJSON(t, app, "PUT", "/tickets/42/move", map[string]any{
		"new_state": "REQUESTED",
	})
	require.Equal(t, fiber.StatusOK, status)
	data := dataOf(t, body)
	assert.Equal(t, "REQUESTED", data["state"])
	assert.Equal(t, "Solicitado", fake.Items[42].Fields["System.State"])
}

func TestMoveTicketInvalidTransition(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Seed(42, map[string]any{
		"System.Title": "T",
		"System.State": "Borrador",
	})

	status, body := doJSON(t, app, "PUT", "/tickets/42/move", map[string]any{
		"new_state": "APPROVED",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
	assert.Empty(t, fake.UpdateCalls)
}

func TestMoveTicketToAssignedRequiresEmail(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Seed(42, map[string]any{
		"System.Title": "T",
		"System.State": "Solicitado",
	})

	status, body := doJSON(t, app, "PUT", "/tickets/42/move", map[string]any{
		"new_state": "ASSIGNED",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestMoveTicketUnrecognizedState(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "PUT", "/tickets/42/move", map[string]any{
		"new_state": "ARCHIVED",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestAddComment(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Seed(42, map[string]any{
		"System.Title": "T",
		"System.State": "Borrador",
	})

	status, body := doJSON(t, app, "POST", "/tickets/42/comments", map[string]any{
		"sender_email": "ana@bank.com",
		"text":         "please review",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := dataOf(t, body)
	comments, ok := data["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 1)
	comment := comments[0].(map[string]any)
	assert.Equal(t, "ana@bank.com: please review", comment["text"])
}

func TestCreateReversal(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/reversals", map[string]any{
		"client": map[string]any{
			"company_name":         "Acme SAS",
			"nit":                  "900123456",
			"obligation_number":    "OB-77",
			"username":             "Juan Perez",
			"user_document_type":   "CC",
			"user_document_number": "1020304050",
			"user_email":           "juan@acme.com",
		},
		"advisor": map[string]any{"email": "ana@bank.com"},
		"data": map[string]any{
			"type": "OPERATIONAL_ERROR",
			"by_operational": map[string]any{
				"errors":             "duplicate debit",
				"corrective_actions": "refund issued",
			},
		},
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := dataOf(t, body)
	assert.Regexp(t, regexp.MustCompile(`^RR-900123456-OB-77-[A-Z]{3}$`), data["title"])
	assert.Equal(t, "DRAFT", data["state"])
	assert.Equal(t, "OPERATIONAL_ERROR", data["reversal_type"])
	client, ok := data["client"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "900123456", client["nit"])
}

func TestCreateReversalRejectsMissingClientField(t *testing.T) {
	app, _ := newTestApp(t)
	status, body := doJSON(t, app, "POST", "/reversals", map[string]any{
		"client":  map[string]any{"nit": "900123456"},
		"advisor": map[string]any{"email": "ana@bank.com"},
		"data":    map[string]any{"type": "OPERATIONAL_ERROR"},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestTeamMembers(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Members["Reversiones"] = []azure.TeamMember{
		{DisplayName: "Ana Diaz", UniqueName: "ana@bank.com"},
	}

	status, body := doJSON(t, app, "GET", "/teams/Reversiones/members", nil)
	require.Equal(t, fiber.StatusOK, status)
	data := dataOf(t, body)
	assert.Equal(t, float64(1), data["count"])
	members, ok := data["members"].([]any)
	require.True(t, ok)
	require.Len(t, members, 1)
	member := members[0].(map[string]any)
	assert.Equal(t, "ana@bank.com", member["email"])
}

func TestAssignTicket(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Seed(42, map[string]any{
		"System.Title": "T",
		"System.State": "Aprobado",
	})

	status, body := doJSON(t, app, "PUT", "/teams/Reversiones/members/ana@bank.com/assign/42", nil)
	require.Equal(t, fiber.StatusOK, status)
	data := dataOf(t, body)
	assert.Equal(t, "ana@bank.com", data["assigned_to"])
	assert.Equal(t, "Payments\\Reversiones", fake.Items[42].Fields["System.AreaPath"])
	// The state stays whatever it was; assignment does not run the workflow.
	assert.Equal(t, "APPROVED", data["state"])
}
