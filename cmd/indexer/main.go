// Package main attaches staff documents uploaded through presigned URLs.
// It runs on S3 ObjectCreated events for the staging prefix, promotes each
// object to its committed key and records it on the claim.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kylejryan/fair-claim-portal/internal/models"
	"github.com/kylejryan/fair-claim-portal/internal/s3io"
	"github.com/kylejryan/fair-claim-portal/internal/validate"
	"github.com/kylejryan/fair-claim-portal/internal/wiring"
)

type objectStore interface {
	Head(ctx context.Context, key string) (*s3io.ObjectMetadata, error)
	Promote(ctx context.Context, stagingKey string) (string, error)
	PublicURL(key string) string
}

type documentRecorder interface {
	RecordDocuments(ctx context.Context, id string, docs []models.Document, actor string) (models.Claim, error)
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	objects objectStore
	claims  documentRecorder
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// main initializes the app and starts the Lambda handler.
func main() {
	s := wiring.MustBuild()
	app := &App{
		objects: s.Documents,
		claims:  s.Engine,
		timeout: s.Env.OpTimeout,
		now:     time.Now,
		log:     s.Logger,
	}
	lambda.Start(app.handler)
}

// handler processes S3 event records. A bad record is logged and skipped so
// the rest of the batch still lands.
func (a *App) handler(ctx context.Context, ev events.S3Event) (any, error) {
	for _, rec := range ev.Records {
		if err := a.processS3Record(ctx, rec); err != nil {
			a.log.Error("indexer: process error",
				slog.String("key", rec.S3.Object.Key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil, nil
}

// processS3Record handles a single S3 event record.
func (a *App) processS3Record(ctx context.Context, record events.S3EventRecord) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return fmt.Errorf("unescape key: %w", err)
	}
	if !s3io.IsStaging(key) {
		a.log.Debug("indexer: skipping non-staging key", slog.String("key", key))
		return nil
	}
	claimID, filename, ok := s3io.ParseKey(key)
	if !ok {
		return fmt.Errorf("bad key %q", key)
	}

	meta, err := a.objects.Head(ctx, key)
	if err != nil {
		return fmt.Errorf("head %s: %w", key, err)
	}
	// Metadata, when present, must agree with the key.
	if mid := strings.TrimSpace(meta.Meta["claim_id"]); mid != "" && mid != claimID {
		return fmt.Errorf("key %q claims %s but metadata says %s", key, claimID, mid)
	}
	if err := validate.DocumentContentType(meta.ContentType); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := validate.DocumentSize(meta.Size); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	dst, err := a.objects.Promote(ctx, key)
	if dst == "" {
		return fmt.Errorf("promote %s: %w", key, err)
	}
	if err != nil {
		a.log.Warn("indexer: staging copy not removed", slog.String("key", key), slog.String("error", err.Error()))
	}

	uploadedAt := meta.LastModified
	if uploadedAt.IsZero() {
		uploadedAt = a.now()
	}
	doc := models.Document{
		Name:       filename,
		Type:       meta.ContentType,
		Size:       meta.Size,
		URL:        a.objects.PublicURL(dst),
		Key:        dst,
		UploadedAt: uploadedAt.UTC(),
	}
	if _, err := a.claims.RecordDocuments(ctx, claimID, []models.Document{doc}, meta.Meta["uploaded_by"]); err != nil {
		return fmt.Errorf("record %s on %s: %w", dst, claimID, err)
	}

	a.log.Info("indexer: document attached",
		slog.String("claim_id", claimID),
		slog.String("key", dst),
		slog.Int64("size", meta.Size),
		slog.String("etag", meta.ETag),
	)
	return nil
}
