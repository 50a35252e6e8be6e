// Package main powers the staff dashboard: claim listing, claim detail with
// its activity log, and the assignee directory.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kylejryan/fair-claim-portal/internal/api"
	"github.com/kylejryan/fair-claim-portal/internal/authz"
	"github.com/kylejryan/fair-claim-portal/internal/dashboard"
	"github.com/kylejryan/fair-claim-portal/internal/httpx"
	"github.com/kylejryan/fair-claim-portal/internal/models"
	"github.com/kylejryan/fair-claim-portal/internal/wiring"
)

// Routes served by this function.
const (
	routeList      = "GET /claims"
	routeGet       = "GET /claims/{id}"
	routeLogs      = "GET /claims/{id}/logs"
	routeAssignees = "GET /assignees"
)

type claimReader interface {
	Get(ctx context.Context, id string) (models.Claim, error)
	List(ctx context.Context) ([]models.Claim, error)
	Logs(ctx context.Context, id string) ([]models.ActivityLogEntry, error)
}

type assigneeLister interface {
	ListActive(ctx context.Context) ([]models.Assignee, error)
}

// App holds the application state.
type App struct {
	claims    claimReader
	assignees assigneeLister
	auth      *authz.Authenticator
	timeout   time.Duration
	log       *slog.Logger
}

func main() {
	s := wiring.MustBuild()
	app := &App{
		claims:    s.Engine,
		assignees: s.Assignees,
		auth:      s.Auth,
		timeout:   s.Env.OpTimeout,
		log:       s.Logger,
	}
	lambda.Start(app.handler)
}

// handler routes dashboard reads by API Gateway route key.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if _, err := a.auth.Identify(ctx, req); err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	switch req.RouteKey {
	case routeList:
		return a.list(ctx, req)
	case routeGet:
		return a.get(ctx, req.PathParameters["id"])
	case routeLogs:
		return a.logs(ctx, req.PathParameters["id"])
	case routeAssignees:
		return a.listAssignees(ctx)
	}
	return httpx.Error(http.StatusNotFound, "no route")
}

// list returns claims newest first, filtered by ?status= and ?q=, with
// counters computed over the unfiltered set.
func (a *App) list(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	status := strings.TrimSpace(req.QueryStringParameters["status"])
	if status != "" && !strings.EqualFold(status, dashboard.AllStatuses) {
		if _, ok := models.ParseStatus(status); !ok {
			return httpx.Error(http.StatusBadRequest, "unknown status filter")
		}
	}

	all, err := a.claims.List(ctx)
	if err != nil {
		a.log.Error("list claims", slog.String("error", err.Error()))
		return httpx.FromError(err)
	}
	return httpx.JSON(http.StatusOK, api.ListResponse{
		Claims:   dashboard.Filter(all, status, req.QueryStringParameters["q"]),
		Counters: dashboard.Count(all),
	})
}

func (a *App) get(ctx context.Context, id string) (events.APIGatewayV2HTTPResponse, error) {
	c, err := a.claims.Get(ctx, id)
	if err != nil {
		return httpx.FromError(err)
	}
	logs, err := a.claims.Logs(ctx, id)
	if err != nil {
		a.log.Error("list logs", slog.String("claim_id", id), slog.String("error", err.Error()))
		return httpx.FromError(err)
	}
	return httpx.JSON(http.StatusOK, api.ClaimDetailResponse{Claim: c, Logs: logs})
}

func (a *App) logs(ctx context.Context, id string) (events.APIGatewayV2HTTPResponse, error) {
	logs, err := a.claims.Logs(ctx, id)
	if err != nil {
		return httpx.FromError(err)
	}
	return httpx.JSON(http.StatusOK, logs)
}

func (a *App) listAssignees(ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	as, err := a.assignees.ListActive(ctx)
	if err != nil {
		a.log.Error("list assignees", slog.String("error", err.Error()))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, as)
}
