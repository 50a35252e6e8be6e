// Package wiring assembles the lifecycle engine from configuration for the lambdas.
package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/kylejryan/fair-claim-portal/internal/authz"
	"github.com/kylejryan/fair-claim-portal/internal/awsutil"
	"github.com/kylejryan/fair-claim-portal/internal/config"
	"github.com/kylejryan/fair-claim-portal/internal/ddb"
	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
	"github.com/kylejryan/fair-claim-portal/internal/mailer"
	"github.com/kylejryan/fair-claim-portal/internal/s3io"
)

// Stack is everything a lambda may need.
type Stack struct {
	Env       config.Env
	Logger    *slog.Logger
	AWS       aws.Config
	Clients   awsutil.Clients
	Claims    *ddb.ClaimRepo
	Logs      *ddb.LogRepo
	Assignees *ddb.AssigneeRepo
	Documents *s3io.Store
	Engine    *lifecycle.Engine
	Auth      *authz.Authenticator
}

// Build loads AWS config and wires the stores, notifier and engine.
func Build(ctx context.Context, env config.Env, logger *slog.Logger) (*Stack, error) {
	cfg, err := awsutil.Load(ctx, env.Region, env.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	clients := awsutil.NewClients(cfg)

	notifier, err := Notifier(env, clients)
	if err != nil {
		return nil, err
	}
	auth, err := authz.New(ctx, env.DevBypassAuth, env.JWKSURL, env.JWTIssuer)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Env:       env,
		Logger:    logger,
		AWS:       cfg,
		Clients:   clients,
		Claims:    ddb.NewClaimRepo(clients.DynamoDB, env.Table),
		Logs:      ddb.NewLogRepo(clients.DynamoDB, env.Table),
		Assignees: ddb.NewAssigneeRepo(clients.DynamoDB, env.Table),
		Documents: s3io.NewStore(clients.S3, env.Bucket, env.Region, env.DocumentBaseURL),
		Auth:      auth,
	}
	s.Engine = lifecycle.New(lifecycle.Deps{
		Claims:            s.Claims,
		Logs:              s.Logs,
		Documents:         s.Documents,
		Notifier:          notifier,
		Assignees:         s.Assignees,
		Logger:            logger,
		MaxSubmitAttempts: env.SubmitMaxAttempts,
	})
	return s, nil
}

// Notifier picks the email transport named by env.MailProvider.
func Notifier(env config.Env, clients awsutil.Clients) (lifecycle.Notifier, error) {
	if env.MailProvider == config.MailSMTP {
		n, err := mailer.NewSMTP(mailer.SMTPConfig{
			Host:     env.SMTPHost,
			Port:     env.SMTPPort,
			Username: env.SMTPUser,
			Password: env.SMTPPass,
			From:     env.MailFrom,
			Timeout:  env.OpTimeout,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return &mailer.SES{Client: clients.SES, From: env.MailFrom}, nil
}

// MustBuild loads the environment, installs the logger and builds the stack,
// exiting the process on failure.
func MustBuild() *Stack {
	env := config.MustLoad()
	logger := config.SetupLogger(env)
	s, err := Build(context.Background(), env, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		panic(err)
	}
	return s
}
