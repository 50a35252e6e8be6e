// Package models defines the data models used in the application.
package models

import (
	"strings"
	"time"
)

// ClaimStatus represents the lifecycle status of a claim.
type ClaimStatus string

// Possible values for ClaimStatus
const (
	StatusNew        ClaimStatus = "new"
	StatusInProgress ClaimStatus = "in_progress"
	StatusPending    ClaimStatus = "pending"
	StatusResolved   ClaimStatus = "resolved"
)

// Statuses lists every recognized status in dashboard order.
var Statuses = []ClaimStatus{StatusNew, StatusInProgress, StatusPending, StatusResolved}

// ParseStatus lowercases s and reports whether it names a recognized status.
func ParseStatus(s string) (ClaimStatus, bool) {
	st := ClaimStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return st, false
}

// Resolution is the final disposition of a resolved claim.
type Resolution string

// Possible values for Resolution
const (
	ResolutionApproved          Resolution = "approved"
	ResolutionPartiallyApproved Resolution = "partially_approved"
	ResolutionRejected          Resolution = "rejected"
)

// ParseResolution reports whether s names a recognized resolution.
func ParseResolution(s string) (Resolution, bool) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case ResolutionApproved, ResolutionPartiallyApproved, ResolutionRejected:
		return r, true
	}
	return r, false
}

// Priority of a claim in the staff queue.
type Priority string

// Possible values for Priority
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Action is the fixed vocabulary recorded in the activity log. The strings are
// rendered verbatim by the dashboard and must not change.
type Action string

// Possible values for Action
const (
	ActionClaimSubmitted    Action = "Claim submitted"
	ActionClaimAssigned     Action = "Claim assigned"
	ActionStatusUpdated     Action = "Status updated"
	ActionNoteAdded         Action = "Note added"
	ActionDocumentRequested Action = "Document requested"
	ActionDocumentUploaded  Action = "Document uploaded"
	ActionClaimResolved     Action = "Claim resolved"
)

// Well-known actor names.
const (
	ActorSystem = "System"
	ActorAdmin  = "Admin"
)

// Document is a file attached to a claim. Immutable once created.
type Document struct {
	Name       string    `dynamodbav:"name" json:"name"`
	Type       string    `dynamodbav:"type" json:"type"`
	Size       int64     `dynamodbav:"size" json:"size"`
	URL        string    `dynamodbav:"url" json:"url"`
	Key        string    `dynamodbav:"key" json:"-"` // S3 object key
	UploadedAt time.Time `dynamodbav:"uploadedAt" json:"uploadedAt"`
}

// Submission carries the customer-entered fields of a new claim.
type Submission struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	PolicyNumber      string `json:"policyNumber"`
	InsuranceCompany  string `json:"insuranceCompany"`
	ClaimAmount       string `json:"claimAmount"`
	RejectionDate     string `json:"rejectionDate"`
	RejectionReason   string `json:"rejectionReason"`
	AdditionalDetails string `json:"additionalDetails"`
}

// Claim is one submitted rejected-insurance case.
type Claim struct {
	// DynamoDB keys
	PK     string `dynamodbav:"PK" json:"-"`     // CLAIM#<id>
	SK     string `dynamodbav:"SK" json:"-"`     // META
	GSI1PK string `dynamodbav:"GSI1PK" json:"-"` // CLAIMS
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"` // <submittedAt>#<id>

	ID         string      `dynamodbav:"id" json:"id"`
	Status     ClaimStatus `dynamodbav:"status" json:"status"`
	Resolution Resolution  `dynamodbav:"resolution,omitempty" json:"resolution,omitempty"`
	AssignedTo string      `dynamodbav:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Priority   Priority    `dynamodbav:"priority" json:"priority"`
	Documents  []Document  `dynamodbav:"documents" json:"documents"`

	SubmittedAt time.Time  `dynamodbav:"submittedAt" json:"submittedAt"`
	ResolvedAt  *time.Time `dynamodbav:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`

	// Version increments on every document append.
	Version int64 `dynamodbav:"version" json:"version"`

	Name              string  `dynamodbav:"name" json:"name"`
	Email             string  `dynamodbav:"email" json:"email"`
	Phone             string  `dynamodbav:"phone" json:"phone"`
	PolicyNumber      string  `dynamodbav:"policyNumber" json:"policyNumber"`
	InsuranceCompany  string  `dynamodbav:"insuranceCompany" json:"insuranceCompany"`
	ClaimAmount       float64 `dynamodbav:"claimAmount" json:"claimAmount"`
	RejectionDate     string  `dynamodbav:"rejectionDate" json:"rejectionDate"`
	RejectionReason   string  `dynamodbav:"rejectionReason" json:"rejectionReason"`
	AdditionalDetails string  `dynamodbav:"additionalDetails,omitempty" json:"additionalDetails,omitempty"`
}

// ActivityLogEntry is one append-only audit record for a claim.
type ActivityLogEntry struct {
	PK string `dynamodbav:"PK" json:"-"` // CLAIM#<claimId>
	SK string `dynamodbav:"SK" json:"-"` // LOG#<timestamp>#<id>

	ID        string    `dynamodbav:"id" json:"id"`
	ClaimID   string    `dynamodbav:"claimId" json:"claimId"`
	Timestamp time.Time `dynamodbav:"timestamp" json:"timestamp"`
	User      string    `dynamodbav:"user" json:"user"`
	Action    Action    `dynamodbav:"action" json:"action"`
	Details   string    `dynamodbav:"details" json:"details"`
}

// Assignee is a staff member that claims can be assigned to.
type Assignee struct {
	PK string `dynamodbav:"PK" json:"-"` // ASSIGNEE
	SK string `dynamodbav:"SK" json:"-"` // ASSIGNEE#<id>

	ID     string `dynamodbav:"id" json:"id"`
	Name   string `dynamodbav:"name" json:"name"`
	Email  string `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Active bool   `dynamodbav:"active" json:"active"`
}

// StaffIdentity represents the authenticated staff member behind a dashboard request.
type StaffIdentity struct {
	Sub  string
	Name string
}

// FileUpload is a document file received from a client, not yet stored.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}
