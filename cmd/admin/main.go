// Package main handles staff mutations on claims and the assignee directory.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kylejryan/fair-claim-portal/internal/api"
	"github.com/kylejryan/fair-claim-portal/internal/authz"
	"github.com/kylejryan/fair-claim-portal/internal/httpx"
	"github.com/kylejryan/fair-claim-portal/internal/models"
	"github.com/kylejryan/fair-claim-portal/internal/validate"
	"github.com/kylejryan/fair-claim-portal/internal/wiring"
)

// Routes served by this function.
const (
	routeStatus      = "PATCH /claims/{id}/status"
	routeAssignee    = "PATCH /claims/{id}/assignee"
	routeResolution  = "PATCH /claims/{id}/resolution"
	routeNotes       = "POST /claims/{id}/notes"
	routeDocuments   = "POST /claims/{id}/documents"
	routeDocRequests = "POST /claims/{id}/document-requests"
	routeEmails      = "POST /claims/{id}/emails"
	routeAssignees   = "POST /assignees"
)

type claimMutator interface {
	UpdateStatus(ctx context.Context, id, status, actor string) (models.Claim, error)
	UpdateAssignee(ctx context.Context, id, assignee, actor string) (models.Claim, error)
	UpdateResolution(ctx context.Context, id, resolution, actor string) (models.Claim, error)
	AddNote(ctx context.Context, id, text, actor string) error
	AttachDocuments(ctx context.Context, id string, files []models.FileUpload, actor string) (models.Claim, error)
	RequestDocument(ctx context.Context, id, requestedBy, documentType string) error
	NotifyCustomer(ctx context.Context, id, subject, message, actor string) error
}

type assigneeAdder interface {
	Add(ctx context.Context, name, email string) (models.Assignee, error)
}

// App holds the application state.
type App struct {
	claims    claimMutator
	assignees assigneeAdder
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

// handler routes staff mutations by API Gateway route key. The authenticated
// staff name is recorded as the actor of every change.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	staff, err := a.auth.Identify(ctx, req)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	id := req.PathParameters["id"]
	resp, err := a.route(ctx, req, id, staff)
	if err != nil {
		a.log.Warn("admin request failed",
			slog.String("route", req.RouteKey),
			slog.String("claim_id", id),
			slog.String("actor", staff.Name),
			slog.String("error", err.Error()),
		)
		var bad badRequest
		if errors.As(err, &bad) {
			return httpx.Error(http.StatusBadRequest, bad.Error())
		}
		return httpx.FromError(err)
	}
	return resp, nil
}

type badRequest struct{ error }

func decode(req events.APIGatewayV2HTTPRequest, v any) error {
	if err := httpx.DecodeJSON(req, v); err != nil {
		return badRequest{err}
	}
	return nil
}

func (a *App) route(ctx context.Context, req events.APIGatewayV2HTTPRequest, id string, staff models.StaffIdentity) (events.APIGatewayV2HTTPResponse, error) {
	actor := staff.Name
	switch req.RouteKey {
	case routeStatus:
		var body api.StatusRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return claimResponse(a.claims.UpdateStatus(ctx, id, body.Status, actor))

	case routeAssignee:
		var body api.AssigneeRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return claimResponse(a.claims.UpdateAssignee(ctx, id, body.Assignee, actor))

	case routeResolution:
		var body api.ResolutionRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return claimResponse(a.claims.UpdateResolution(ctx, id, body.Resolution, actor))

	case routeNotes:
		var body api.NoteRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return accepted(id, a.claims.AddNote(ctx, id, body.Text, actor))

	case routeDocuments:
		var body api.AttachRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		files, err := api.Files(body.Documents)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, badRequest{err}
		}
		return claimResponse(a.claims.AttachDocuments(ctx, id, files, actor))

	case routeDocRequests:
		var body api.DocumentRequestRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return accepted(id, a.claims.RequestDocument(ctx, id, actor, body.DocumentType))

	case routeEmails:
		var body api.EmailRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return accepted(id, a.claims.NotifyCustomer(ctx, id, body.Subject, body.Message, actor))

	case routeAssignees:
		var body api.NewAssigneeRequest
		if err := decode(req, &body); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return a.addAssignee(ctx, body)
	}
	return httpx.Error(http.StatusNotFound, "no route")
}

func (a *App) addAssignee(ctx context.Context, body api.NewAssigneeRequest) (events.APIGatewayV2HTTPResponse, error) {
	if err := validate.Required("name", body.Name); err != nil {
		return events.APIGatewayV2HTTPResponse{}, badRequest{err}
	}
	if body.Email != "" {
		if err := validate.Email(body.Email); err != nil {
			return events.APIGatewayV2HTTPResponse{}, badRequest{err}
		}
	}
	as, err := a.assignees.Add(ctx, strings.TrimSpace(body.Name), strings.TrimSpace(body.Email))
	if err != nil {
		a.log.Error("add assignee", slog.String("error", err.Error()))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusCreated, as)
}

func claimResponse(c models.Claim, err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return httpx.JSON(http.StatusOK, c)
}

func accepted(id string, err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return httpx.JSON(http.StatusCreated, map[string]string{"claimId": id})
}
