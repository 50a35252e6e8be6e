// Package main issues presigned S3 URLs so staff can upload large documents
// to a claim directly. The indexer attaches them once the upload lands.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kylejryan/fair-claim-portal/internal/api"
	"github.com/kylejryan/fair-claim-portal/internal/authz"
	"github.com/kylejryan/fair-claim-portal/internal/claimid"
	"github.com/kylejryan/fair-claim-portal/internal/httpx"
	"github.com/kylejryan/fair-claim-portal/internal/models"
	"github.com/kylejryan/fair-claim-portal/internal/s3io"
	"github.com/kylejryan/fair-claim-portal/internal/validate"
	"github.com/kylejryan/fair-claim-portal/internal/wiring"
)

type claimGetter interface {
	Get(ctx context.Context, id string) (models.Claim, error)
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	claims     claimGetter
	s3p        s3io.Presigner
	bucket     string
	presignTTL time.Duration
	auth       *authz.Authenticator
	timeout    time.Duration
	log        *slog.Logger
}

func main() {
	s := wiring.MustBuild()
	app := &App{
		claims:     s.Engine,
		s3p:        s3.NewPresignClient(s.Clients.S3),
		bucket:     s.Env.Bucket,
		presignTTL: s.Env.PresignTTL,
		auth:       s.Auth,
		timeout:    s.Env.OpTimeout,
		log:        s.Logger,
	}
	lambda.Start(app.handler)
}

// handler processes the incoming API Gateway request to generate a presigned S3 URL.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	staff, err := a.auth.Identify(ctx, req)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	claimID := req.PathParameters["id"]
	if !claimid.Valid(claimID) {
		return httpx.Error(http.StatusBadRequest, "invalid claim id")
	}

	body, err := a.parseAndValidateRequest(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if _, err := a.claims.Get(ctx, claimID); err != nil {
		return httpx.FromError(err)
	}

	key := s3io.StagingKey(claimID, body.Filename)
	meta := map[string]string{
		"claim_id":    claimID,
		"uploaded_by": staff.Name,
	}
	url, ttl, err := s3io.PresignPut(ctx, a.s3p, a.bucket, key, body.ContentType, meta, a.presignTTL)
	if err != nil {
		a.log.Error("presign failed", slog.String("claim_id", claimID), slog.String("error", err.Error()))
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}

	a.log.Info("presigned upload", slog.String("claim_id", claimID), slog.String("key", key), slog.String("actor", staff.Name))
	return httpx.JSON(http.StatusOK, api.PresignResponse{
		ClaimID:       claimID,
		S3Key:         key,
		PresignedURL:  url,
		ExpiresIn:     int(ttl.Seconds()),
		ContentType:   body.ContentType,
		UploadHeaders: s3io.UploadHeaders(claimID, body.ContentType, staff.Name),
	})
}

// parseAndValidateRequest parses the JSON body and validates all input fields.
func (a *App) parseAndValidateRequest(req events.APIGatewayV2HTTPRequest) (api.PresignRequest, error) {
	var body api.PresignRequest
	if err := httpx.DecodeJSON(req, &body); err != nil {
		return body, err
	}
	body.Filename = strings.TrimSpace(body.Filename)
	body.ContentType = strings.ToLower(strings.TrimSpace(body.ContentType))

	validators := []func() error{
		func() error { return validate.Filename(body.Filename) },
		func() error { return validate.DocumentContentType(body.ContentType) },
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return body, err
		}
	}
	return body, nil
}
