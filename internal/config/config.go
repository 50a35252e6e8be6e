// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mail providers.
const (
	MailSES  = "ses"
	MailSMTP = "smtp"
)

// Env holds the configuration values for the application.
type Env struct {
	Region   string
	Endpoint string
	Bucket   string
	Table    string

	DocumentBaseURL string
	PresignTTL      time.Duration

	MailProvider string
	MailFrom     string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string

	SubmitMaxAttempts int
	OpTimeout         time.Duration
	DevBypassAuth     bool
	JWKSURL           string
	JWTIssuer         string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the environment.
func Load() (Env, error) {
	var err error
	e := Env{
		Region:          get("AWS_REGION", "us-east-1"),
		Endpoint:        get("AWS_ENDPOINT_URL", ""),
		DocumentBaseURL: get("DOCUMENT_BASE_URL", ""),
		MailProvider:    strings.ToLower(get("MAIL_PROVIDER", MailSES)),
		MailFrom:        get("MAIL_FROM", `"Fair Claim Support" <claims@fairclaim.in>`),
		SMTPHost:        get("SMTP_HOST", "smtp.hostinger.com"),
		SMTPUser:        get("SMTP_USER", ""),
		SMTPPass:        get("SMTP_PASS", ""),
		DevBypassAuth:   get("DEV_BYPASS_AUTH", "") == "true",
		JWKSURL:         get("JWKS_URL", ""),
		JWTIssuer:       get("JWT_ISSUER", ""),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", "json")),
	}
	if e.Bucket, err = required("S3_BUCKET"); err != nil {
		return Env{}, err
	}
	if e.Table, err = required("DDB_TABLE"); err != nil {
		return Env{}, err
	}

	ttl, err := positiveInt("PRESIGN_TTL_SECONDS", 300)
	if err != nil {
		return Env{}, err
	}
	e.PresignTTL = time.Duration(ttl) * time.Second

	timeout, err := positiveInt("OP_TIMEOUT_SECONDS", 20)
	if err != nil {
		return Env{}, err
	}
	e.OpTimeout = time.Duration(timeout) * time.Second

	if e.SMTPPort, err = positiveInt("SMTP_PORT", 465); err != nil {
		return Env{}, err
	}
	if e.SubmitMaxAttempts, err = positiveInt("SUBMIT_MAX_ATTEMPTS", 5); err != nil {
		return Env{}, err
	}
	if e.LogLevel, err = parseLogLevel(get("LOG_LEVEL", "info")); err != nil {
		return Env{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch e.MailProvider {
	case MailSES, MailSMTP:
	default:
		return Env{}, fmt.Errorf("MAIL_PROVIDER: unknown provider %q", e.MailProvider)
	}
	if e.LogFormat != "json" && e.LogFormat != "text" {
		return Env{}, fmt.Errorf("LOG_FORMAT: unknown format %q", e.LogFormat)
	}
	return e, nil
}

// MustLoad is Load that panics on a bad environment.
func MustLoad() Env {
	e, err := Load()
	if err != nil {
		panic(err)
	}
	return e
}

// SetupLogger installs the default slog logger described by e.
func SetupLogger(e Env) *slog.Logger {
	return setupLogger(os.Stdout, e)
}

func setupLogger(w io.Writer, e Env) *slog.Logger {
	opts := &slog.HandlerOptions{Level: e.LogLevel}

	var handler slog.Handler
	if e.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// required returns the value of the environment variable k or an error if not set.
func required(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("missing env %s", k)
	}
	return v, nil
}

func positiveInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: want a positive integer, got %q", k, v)
	}
	return n, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level %q, allowed: debug, info, warn, error", level)
	}
}
