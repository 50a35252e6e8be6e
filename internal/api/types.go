// Package api contains types for the API requests and responses.
package api

import (
	"encoding/base64"
	"fmt"

	"github.com/kylejryan/fair-claim-portal/internal/dashboard"
	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// DocumentPayload is a file sent inline with a request, base64 encoded.
type DocumentPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

// SubmitRequest is the public claim submission form.
type SubmitRequest struct {
	models.Submission
	Documents []DocumentPayload `json:"documents"`
}

// SubmitResponse acknowledges a submission with the new claim reference.
type SubmitResponse struct {
	ClaimID string       `json:"claimId"`
	Claim   models.Claim `json:"claim"`
}

// ListResponse is the staff dashboard listing.
type ListResponse struct {
	Claims   []models.Claim     `json:"claims"`
	Counters dashboard.Counters `json:"counters"`
}

// ClaimDetailResponse is one claim with its activity log, newest entry first.
type ClaimDetailResponse struct {
	Claim models.Claim              `json:"claim"`
	Logs  []models.ActivityLogEntry `json:"logs"`
}

// StatusRequest changes a claim's status.
type StatusRequest struct {
	Status string `json:"status"`
}

// AssigneeRequest assigns a claim; an empty assignee clears it.
type AssigneeRequest struct {
	Assignee string `json:"assignee"`
}

// ResolutionRequest records a claim's outcome.
type ResolutionRequest struct {
	Resolution string `json:"resolution"`
}

// NoteRequest adds a free-text note.
type NoteRequest struct {
	Text string `json:"text"`
}

// AttachRequest adds documents to an existing claim.
type AttachRequest struct {
	Documents []DocumentPayload `json:"documents"`
}

// DocumentRequestRequest asks the customer for a document.
type DocumentRequestRequest struct {
	DocumentType string `json:"documentType"`
}

// EmailRequest emails the customer. The message is plain text.
type EmailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// NewAssigneeRequest adds a staff member to the assignee directory.
type NewAssigneeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PresignRequest asks for a presigned URL to upload one document to a claim.
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// PresignResponse represents the response payload containing the presigned S3 upload URL and related info.
type PresignResponse struct {
	ClaimID       string            `json:"claimId"`
	S3Key         string            `json:"s3Key"`
	PresignedURL  string            `json:"presignedUrl"`
	ExpiresIn     int               `json:"expiresIn"`
	ContentType   string            `json:"contentType"`
	UploadHeaders map[string]string `json:"uploadHeaders"`
}

// Files decodes inline documents.
func Files(docs []DocumentPayload) ([]models.FileUpload, error) {
	out := make([]models.FileUpload, 0, len(docs))
	for i, d := range docs {
		data, err := base64.StdEncoding.DecodeString(d.Data)
		if err != nil {
			return nil, fmt.Errorf("documents[%d]: invalid base64", i)
		}
		out = append(out, models.FileUpload{Name: d.Name, ContentType: d.ContentType, Data: data})
	}
	return out, nil
}
