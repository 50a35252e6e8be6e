package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/fair-claim-portal/internal/api"
	"github.com/kylejryan/fair-claim-portal/internal/authz"
	"github.com/kylejryan/fair-claim-portal/internal/dashboard"
	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
	"github.com/kylejryan/fair-claim-portal/internal/models"
)

type mockReader struct {
	claims []models.Claim
	logs   map[string][]models.ActivityLogEntry
	err    error
}

func (m *mockReader) Get(_ context.Context, id string) (models.Claim, error) {
	for _, c := range m.claims {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Claim{}, &lifecycle.OpError{Op: "get", ClaimID: id, Kind: lifecycle.ErrNotFound, Err: lifecycle.ErrNotFound}
}

func (m *mockReader) List(context.Context) ([]models.Claim, error) { return m.claims, m.err }

func (m *mockReader) Logs(_ context.Context, id string) ([]models.ActivityLogEntry, error) {
	return m.logs[id], nil
}

type mockAssignees struct{ list []models.Assignee }

func (m mockAssignees) ListActive(context.Context) ([]models.Assignee, error) { return m.list, nil }

func newApp(r *mockReader) *App {
	return &App{
		claims:    r,
		assignees: mockAssignees{list: []models.Assignee{{ID: "a1", Name: "Priya", Active: true}}},
		auth:      &authz.Authenticator{DevBypass: true},
		timeout:   time.Second,
		log:       slog.Default(),
	}
}

func request(route string, path, query map[string]string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RouteKey:              route,
		Headers:               map[string]string{"x-user-sub": "staff-1", "x-user-name": "Priya"},
		PathParameters:        path,
		QueryStringParameters: query,
	}
}

func fixtures() *mockReader {
	return &mockReader{
		claims: []models.Claim{
			{ID: "FC200002", Name: "Ravi", Status: models.StatusPending},
			{ID: "FC200001", Name: "Jane", Status: models.StatusNew},
		},
		logs: map[string][]models.ActivityLogEntry{
			"FC200001": {{ID: "l1", ClaimID: "FC200001", Action: models.ActionClaimSubmitted, User: models.ActorSystem}},
		},
	}
}

func TestHandler_Unauthorized(t *testing.T) {
	req := request(routeList, nil, nil)
	req.Headers = nil
	resp, err := newApp(fixtures()).handler(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_ListFiltersAndCounts(t *testing.T) {
	resp, err := newApp(fixtures()).handler(context.Background(), request(routeList, nil, map[string]string{"status": "new"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.ListResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	require.Len(t, out.Claims, 1)
	assert.Equal(t, "FC200001", out.Claims[0].ID)
	assert.Equal(t, dashboard.Counters{Total: 2, New: 1, Pending: 1}, out.Counters)
}

func TestHandler_ListSearch(t *testing.T) {
	resp, err := newApp(fixtures()).handler(context.Background(), request(routeList, nil, map[string]string{"status": "all", "q": "ravi"}))
	require.NoError(t, err)

	var out api.ListResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	require.Len(t, out.Claims, 1)
	assert.Equal(t, "FC200002", out.Claims[0].ID)
}

func TestHandler_ListBadStatus(t *testing.T) {
	resp, err := newApp(fixtures()).handler(context.Background(), request(routeList, nil, map[string]string{"status": "closed"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_ListStorageError(t *testing.T) {
	r := &mockReader{err: &lifecycle.OpError{Op: "list", Kind: lifecycle.ErrStorage, Err: errors.New("throttled")}}
	resp, err := newApp(r).handler(context.Background(), request(routeList, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandler_GetWithLogs(t *testing.T) {
	resp, err := newApp(fixtures()).handler(context.Background(), request(routeGet, map[string]string{"id": "FC200001"}, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.ClaimDetailResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	assert.Equal(t, "Jane", out.Claim.Name)
	require.Len(t, out.Logs, 1)
	assert.Equal(t, models.ActionClaimSubmitted, out.Logs[0].Action)
}

func TestHandler_GetNotFound(t *testing.T) {
	resp, err := newApp(fixtures()).handler(context.Background(), request(routeGet, map[string]string{"id": "FC999999"}, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_LogsAndAssignees(t *testing.T) {
	app := newApp(fixtures())

	resp, err := app.handler(context.Background(), request(routeLogs, map[string]string{"id": "FC200001"}, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"action":"Claim submitted"`)

	resp, err = app.handler(context.Background(), request(routeAssignees, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"name":"Priya"`)
}

func TestHandler_UnknownRoute(t *testing.T) {
	resp, err := newApp(fixtures()).handler(context.Background(), request("DELETE /claims/{id}", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
