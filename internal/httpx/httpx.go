// Package httpx provides helper functions for creating HTTP responses.
package httpx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/kylejryan/fair-claim-portal/internal/lifecycle"
)

// JSON creates a JSON HTTP response with the given status code and value.
// A value that cannot be encoded becomes a 500.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"response could not be encoded"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, map[string]string{"error": msg})
}

// StatusOf maps an engine error to an HTTP status code.
func StatusOf(err error) int {
	switch lifecycle.KindOf(err) {
	case lifecycle.ErrValidation, lifecycle.ErrInvalidStatus, lifecycle.ErrInvalidResolution:
		return http.StatusBadRequest
	case lifecycle.ErrNotFound:
		return http.StatusNotFound
	case lifecycle.ErrConflict:
		return http.StatusConflict
	case lifecycle.ErrNotification:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromError creates an error response for an engine error. Client errors echo
// the error text; server-side failures get a fixed message.
func FromError(err error) (events.APIGatewayV2HTTPResponse, error) {
	status := StatusOf(err)
	switch {
	case errors.Is(err, lifecycle.ErrAuditAppend):
		return Error(status, "change saved but activity log could not be written")
	case status == http.StatusBadGateway:
		return Error(status, "email could not be sent")
	case status >= 500:
		return Error(status, "storage error")
	}
	return Error(status, err.Error())
}

// DecodeJSON unmarshals the request body into v, decoding base64 bodies first.
func DecodeJSON(req events.APIGatewayV2HTTPRequest, v any) error {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return errors.New("invalid body encoding")
		}
		body = b
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}
