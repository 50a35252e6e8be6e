// Package main accepts public claim submissions from the portal form.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kylejryan/fair-claim-portal/internal/api"
	"github.com/kylejryan/fair-claim-portal/internal/httpx"
	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
	"github.com/kylejryan/fair-claim-portal/internal/models"
	"github.com/kylejryan/fair-claim-portal/internal/wiring"
)

type submitter interface {
	Submit(ctx context.Context, sub models.Submission, files []models.FileUpload) (models.Claim, error)
}

// App holds the application state.
type App struct {
	svc     submitter
	timeout time.Duration
	log     *slog.Logger
}

func main() {
	s := wiring.MustBuild()
	app := &App{svc: s.Engine, timeout: s.Env.OpTimeout, log: s.Logger}
	lambda.Start(app.handler)
}

// handler creates a claim from the submitted form and its documents.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.SubmitRequest
	if err := httpx.DecodeJSON(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	files, err := api.Files(body.Documents)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	c, err := a.svc.Submit(ctx, body.Submission, files)
	switch {
	case errors.Is(err, lifecycle.ErrAuditAppend):
		// The claim is stored; a retry would file a duplicate.
		a.log.Error("claim stored without activity log", slog.String("claim_id", c.ID), slog.String("error", err.Error()))
	case err != nil:
		a.log.Warn("submit failed", slog.String("error", err.Error()))
		return httpx.FromError(err)
	}
	return httpx.JSON(http.StatusCreated, api.SubmitResponse{ClaimID: c.ID, Claim: c})
}
