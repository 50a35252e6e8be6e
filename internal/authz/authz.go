// Package authz extracts the staff identity behind dashboard requests.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// ErrUnauthorized is returned when no staff identity can be established.
var ErrUnauthorized = errors.New("unauthorized")

const (
	devSubHeader  = "x-user-sub"
	devNameHeader = "x-user-name"
)

// nameClaims are consulted in order for the display name used in activity logs.
var nameClaims = []string{"name", "cognito:username", "username", "email"}

// Authenticator resolves the staff member behind an HTTP API (v2) request.
type Authenticator struct {
	// DevBypass accepts the x-user-sub and x-user-name headers as is.
	DevBypass bool
	// Keys verifies bearer tokens when no API Gateway authorizer ran.
	// Nil disables the bearer fallback.
	Keys keyfunc.Keyfunc
	// Issuer, when set, must match the token's iss claim.
	Issuer string
}

// New builds an Authenticator. A non-empty jwksURL enables bearer token
// verification against that key set.
func New(ctx context.Context, devBypass bool, jwksURL, issuer string) (*Authenticator, error) {
	a := &Authenticator{DevBypass: devBypass, Issuer: issuer}
	if jwksURL == "" {
		return a, nil
	}
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks %s: %w", jwksURL, err)
	}
	a.Keys = k
	return a, nil
}

// headerLookup returns the value of a header key from a map.
func headerLookup(h map[string]string, key string) string {
	if len(h) == 0 {
		return ""
	}
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

// stringIf returns the string value of an interface{} if it is a non-empty string.
func stringIf(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return ""
}

func identity(claims map[string]string) (models.StaffIdentity, bool) {
	sub := strings.TrimSpace(claims["sub"])
	if sub == "" {
		return models.StaffIdentity{}, false
	}
	id := models.StaffIdentity{Sub: sub, Name: sub}
	for _, k := range nameClaims {
		if v := strings.TrimSpace(claims[k]); v != "" {
			id.Name = v
			break
		}
	}
	return id, true
}

// verifiedClaims validates the bearer token in the Authorization header.
func (a *Authenticator) verifiedClaims(ctx context.Context, headers map[string]string) (map[string]string, error) {
	auth := headerLookup(headers, "Authorization")
	scheme, token, ok := strings.Cut(strings.TrimSpace(auth), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	}
	if a.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.Issuer))
	}
	raw := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(strings.TrimSpace(token), raw, a.Keys.KeyfuncCtx(ctx), opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s := stringIf(v); s != "" {
			out[k] = s
		}
	}
	return out, nil
}

// Identify returns the staff member behind req. Sources, in order: dev bypass
// headers (when enabled), the API Gateway JWT authorizer claims, then a
// bearer token verified against Keys.
func (a *Authenticator) Identify(ctx context.Context, req events.APIGatewayV2HTTPRequest) (models.StaffIdentity, error) {
	if a.DevBypass {
		if sub := strings.TrimSpace(headerLookup(req.Headers, devSubHeader)); sub != "" {
			name := strings.TrimSpace(headerLookup(req.Headers, devNameHeader))
			if name == "" {
				name = sub
			}
			return models.StaffIdentity{Sub: sub, Name: name}, nil
		}
	}

	if az := req.RequestContext.Authorizer; az != nil && az.JWT != nil {
		if id, ok := identity(az.JWT.Claims); ok {
			return id, nil
		}
	}

	if a.Keys == nil {
		return models.StaffIdentity{}, ErrUnauthorized
	}
	claims, err := a.verifiedClaims(ctx, req.Headers)
	if err != nil {
		return models.StaffIdentity{}, err
	}
	if id, ok := identity(claims); ok {
		return id, nil
	}
	return models.StaffIdentity{}, ErrUnauthorized
}
