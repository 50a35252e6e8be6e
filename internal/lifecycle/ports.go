// Package lifecycle is the single choke-point for claim mutations. Every
// state-changing operation writes the claim store first and then appends
// exactly one activity log entry describing the change.
//
// A log append that fails after the claim write is not rolled back: the
// operation returns the updated claim together with an error matching both
// ErrStorage and ErrAuditAppend.
package lifecycle

import (
	"context"
	"time"

	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// ClaimPatch lists the fields an Update may change. Nil fields are untouched.
type ClaimPatch struct {
	Status     *models.ClaimStatus
	Resolution *models.Resolution
	// AssignedTo set to "" clears the assignment.
	AssignedTo *string
	// ResolvedAtIfUnset is written only when the claim has no resolvedAt yet.
	ResolvedAtIfUnset *time.Time
}

// ClaimStore persists claims keyed by id.
type ClaimStore interface {
	// Insert fails with ErrConflict when the id already exists.
	Insert(ctx context.Context, c models.Claim) error
	// Get fails with ErrNotFound when the id is absent.
	Get(ctx context.Context, id string) (models.Claim, error)
	// List returns every claim ordered by submittedAt descending.
	List(ctx context.Context) ([]models.Claim, error)
	// Update merges p into the claim and returns the result.
	Update(ctx context.Context, id string, p ClaimPatch) (models.Claim, error)
	// AppendDocuments atomically appends docs to the claim's document list.
	AppendDocuments(ctx context.Context, id string, docs []models.Document) (models.Claim, error)
}

// ActivityLog is the append-only audit trail.
type ActivityLog interface {
	Append(ctx context.Context, e models.ActivityLogEntry) error
	// ListByClaim returns entries ordered by timestamp descending.
	ListByClaim(ctx context.Context, claimID string) ([]models.ActivityLogEntry, error)
}

// DocumentStore holds document blobs and resolves their fetchable URL.
type DocumentStore interface {
	Store(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Notifier delivers one email, once. No retries.
type Notifier interface {
	Send(ctx context.Context, to, subject, html string) error
}

// AssigneeDirectory lists staff that claims may be assigned to.
type AssigneeDirectory interface {
	ListActive(ctx context.Context) ([]models.Assignee, error)
}
