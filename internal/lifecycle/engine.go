package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kylejryan/fair-claim-portal/internal/claimid"
	"github.com/kylejryan/fair-claim-portal/internal/models"
	"github.com/kylejryan/fair-claim-portal/internal/validate"
)

// DefaultDocumentType is what RequestDocument asks for when no type is given.
const DefaultDocumentType = "additional documentation"

const defaultSubmitAttempts = 5

// Deps wires the Engine to its collaborators. Assignees is optional.
type Deps struct {
	Claims    ClaimStore
	Logs      ActivityLog
	Documents DocumentStore
	Notifier  Notifier
	Assignees AssigneeDirectory
	Logger    *slog.Logger

	IDs   claimid.Generator
	Clock func() time.Time
	// NewLogID returns a fresh activity log entry id.
	NewLogID func() string
	// UploadConcurrency bounds parallel document uploads within one operation.
	UploadConcurrency int
	// MaxSubmitAttempts bounds identifier regeneration on insert conflicts.
	MaxSubmitAttempts int
}

// Engine mediates every claim mutation.
type Engine struct {
	claims    ClaimStore
	logs      ActivityLog
	docs      DocumentStore
	notifier  Notifier
	assignees AssigneeDirectory
	log       *slog.Logger

	ids         claimid.Generator
	now         func() time.Time
	newLogID    func() string
	uploadLimit int
	maxAttempts int
}

// New builds an Engine, filling defaults for the optional dependencies.
func New(d Deps) *Engine {
	e := &Engine{
		claims:      d.Claims,
		logs:        d.Logs,
		docs:        d.Documents,
		notifier:    d.Notifier,
		assignees:   d.Assignees,
		log:         d.Logger,
		ids:         d.IDs,
		now:         d.Clock,
		newLogID:    d.NewLogID,
		uploadLimit: d.UploadConcurrency,
		maxAttempts: d.MaxSubmitAttempts,
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.ids == nil {
		e.ids = claimid.Random{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newLogID == nil {
		e.newLogID = uuid.NewString
	}
	if e.uploadLimit <= 0 {
		e.uploadLimit = 4
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultSubmitAttempts
	}
	return e
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

// actorOr returns actor, or fallback when actor is blank.
func actorOr(actor, fallback string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return fallback
}

// attribution picks the log user for staff operations that have no explicit
// actor: the claim's assignee, else Admin.
func attribution(c models.Claim, actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return actorOr(c.AssignedTo, models.ActorAdmin)
}

// ---- Reads ----

// Get returns one claim.
func (e *Engine) Get(ctx context.Context, id string) (models.Claim, error) {
	c, err := e.claims.Get(ctx, id)
	if err != nil {
		return models.Claim{}, storeErr("get", id, err)
	}
	return c, nil
}

// List returns all claims, newest submission first.
func (e *Engine) List(ctx context.Context) ([]models.Claim, error) {
	cs, err := e.claims.List(ctx)
	if err != nil {
		return nil, storeErr("list", "", err)
	}
	return cs, nil
}

// Logs returns the activity log of a claim, newest first.
func (e *Engine) Logs(ctx context.Context, id string) ([]models.ActivityLogEntry, error) {
	entries, err := e.logs.ListByClaim(ctx, id)
	if err != nil {
		return nil, storeErr("logs", id, err)
	}
	return entries, nil
}

// ---- Mutations ----

// Submit validates a new claim, stores its documents, inserts it with a fresh
// identifier and records "Claim submitted". On an identifier conflict the
// whole attempt is repeated with a new identifier, up to MaxSubmitAttempts.
func (e *Engine) Submit(ctx context.Context, sub models.Submission, files []models.FileUpload) (models.Claim, error) {
	const op = "submit"
	amount, err := validate.Submission(sub)
	if err != nil {
		return models.Claim{}, opErr(op, "", ErrValidation, err)
	}
	if err := validate.Documents(files); err != nil {
		return models.Claim{}, opErr(op, "", ErrValidation, err)
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		id := e.ids.NewID()
		docs, err := e.storeDocuments(ctx, id, files)
		if err != nil {
			return models.Claim{}, opErr(op, id, ErrStorage, err)
		}

		now := e.clock()
		c := models.Claim{
			ID:                id,
			Status:            models.StatusNew,
			Priority:          models.PriorityMedium,
			Documents:         docs,
			SubmittedAt:       now,
			Name:              strings.TrimSpace(sub.Name),
			Email:             strings.TrimSpace(sub.Email),
			Phone:             strings.TrimSpace(sub.Phone),
			PolicyNumber:      strings.TrimSpace(sub.PolicyNumber),
			InsuranceCompany:  strings.TrimSpace(sub.InsuranceCompany),
			ClaimAmount:       amount,
			RejectionDate:     strings.TrimSpace(sub.RejectionDate),
			RejectionReason:   strings.TrimSpace(sub.RejectionReason),
			AdditionalDetails: strings.TrimSpace(sub.AdditionalDetails),
		}

		err = e.claims.Insert(ctx, c)
		if errors.Is(err, ErrConflict) {
			e.log.Warn("claim id collision, regenerating",
				slog.String("claim_id", id),
				slog.Int("attempt", attempt),
				slog.Any("orphaned_keys", documentKeys(docs)),
			)
			lastErr = err
			continue
		}
		if err != nil {
			if len(docs) > 0 {
				e.log.Error("claim insert failed; uploaded documents orphaned",
					slog.String("claim_id", id),
					slog.Any("orphaned_keys", documentKeys(docs)),
				)
			}
			return models.Claim{}, storeErr(op, id, err)
		}

		e.log.Info("claim submitted", slog.String("claim_id", id), slog.Int("documents", len(docs)))
		details := fmt.Sprintf("New claim %s received from %s", id, c.Name)
		return c, e.record(ctx, op, id, models.ActorSystem, models.ActionClaimSubmitted, details)
	}
	return models.Claim{}, opErr(op, "", ErrConflict,
		fmt.Errorf("no free claim id after %d attempts: %w", e.maxAttempts, lastErr))
}

// UpdateStatus sets the claim status. Any recognized status may follow any
// other; resolvedAt is written only on the first move to resolved.
func (e *Engine) UpdateStatus(ctx context.Context, id, status, actor string) (models.Claim, error) {
	const op = "update status"
	st, ok := models.ParseStatus(status)
	if !ok {
		return models.Claim{}, opErr(op, id, ErrInvalidStatus, fmt.Errorf("unknown status %q", status))
	}

	patch := ClaimPatch{Status: &st}
	if st == models.StatusResolved {
		now := e.clock()
		patch.ResolvedAtIfUnset = &now
	}

	c, err := e.claims.Update(ctx, id, patch)
	if err != nil {
		return models.Claim{}, storeErr(op, id, err)
	}

	user := actorOr(actor, models.ActorAdmin)
	e.log.Info("status updated", slog.String("claim_id", id), slog.String("status", string(st)), slog.String("actor", user))
	return c, e.record(ctx, op, id, user, models.ActionStatusUpdated, "Claim status changed to "+string(st))
}

// UpdateAssignee sets or clears (empty name) the claim assignee. When an
// assignee directory is wired, a non-empty name must belong to an active assignee.
func (e *Engine) UpdateAssignee(ctx context.Context, id, assignee, actor string) (models.Claim, error) {
	const op = "update assignee"
	assignee = strings.TrimSpace(assignee)
	if assignee != "" && e.assignees != nil {
		active, err := e.assignees.ListActive(ctx)
		if err != nil {
			return models.Claim{}, storeErr(op, id, err)
		}
		if !slices.ContainsFunc(active, func(a models.Assignee) bool { return a.Name == assignee }) {
			return models.Claim{}, opErr(op, id, ErrNotFound, fmt.Errorf("no active assignee %q", assignee))
		}
	}

	c, err := e.claims.Update(ctx, id, ClaimPatch{AssignedTo: &assignee})
	if err != nil {
		return models.Claim{}, storeErr(op, id, err)
	}

	user := actorOr(actor, models.ActorAdmin)
	e.log.Info("claim assigned", slog.String("claim_id", id), slog.String("assignee", assignee), slog.String("actor", user))
	return c, e.record(ctx, op, id, user, models.ActionClaimAssigned,
		"Claim assigned to "+actorOr(assignee, "Unassigned"))
}

// UpdateResolution records the final disposition. It does not require the
// claim to be resolved.
func (e *Engine) UpdateResolution(ctx context.Context, id, resolution, actor string) (models.Claim, error) {
	const op = "update resolution"
	r, ok := models.ParseResolution(resolution)
	if !ok {
		return models.Claim{}, opErr(op, id, ErrInvalidResolution, fmt.Errorf("unknown resolution %q", resolution))
	}

	before, err := e.claims.Get(ctx, id)
	if err != nil {
		return models.Claim{}, storeErr(op, id, err)
	}
	c, err := e.claims.Update(ctx, id, ClaimPatch{Resolution: &r})
	if err != nil {
		return models.Claim{}, storeErr(op, id, err)
	}

	user := attribution(before, actor)
	e.log.Info("claim resolved", slog.String("claim_id", id), slog.String("resolution", string(r)), slog.String("actor", user))
	return c, e.record(ctx, op, id, user, models.ActionClaimResolved, "Claim resolved with status: "+string(r))
}

// AddNote appends a free-text note to the claim timeline.
func (e *Engine) AddNote(ctx context.Context, id, text, actor string) error {
	const op = "add note"
	if err := validate.NoteText(text); err != nil {
		return opErr(op, id, ErrValidation, err)
	}
	if _, err := e.claims.Get(ctx, id); err != nil {
		return storeErr(op, id, err)
	}
	return e.record(ctx, op, id, actorOr(actor, models.ActorAdmin), models.ActionNoteAdded, text)
}

// AttachDocuments stores files and appends them to the claim's documents.
func (e *Engine) AttachDocuments(ctx context.Context, id string, files []models.FileUpload, actor string) (models.Claim, error) {
	const op = "attach documents"
	if len(files) == 0 {
		return models.Claim{}, opErr(op, id, ErrValidation, errors.New("no files"))
	}
	if err := validate.Documents(files); err != nil {
		return models.Claim{}, opErr(op, id, ErrValidation, err)
	}

	before, err := e.claims.Get(ctx, id)
	if err != nil {
		return models.Claim{}, storeErr(op, id, err)
	}
	docs, err := e.storeDocuments(ctx, id, files)
	if err != nil {
		return models.Claim{}, opErr(op, id, ErrStorage, err)
	}
	return e.appendDocuments(ctx, op, before, docs, actor)
}

// RecordDocuments attaches documents that are already in the document store,
// such as finalized presigned uploads.
func (e *Engine) RecordDocuments(ctx context.Context, id string, docs []models.Document, actor string) (models.Claim, error) {
	const op = "record documents"
	if len(docs) == 0 {
		return models.Claim{}, opErr(op, id, ErrValidation, errors.New("no documents"))
	}
	before, err := e.claims.Get(ctx, id)
	if err != nil {
		return models.Claim{}, storeErr(op, id, err)
	}
	return e.appendDocuments(ctx, op, before, docs, actor)
}

func (e *Engine) appendDocuments(ctx context.Context, op string, before models.Claim, docs []models.Document, actor string) (models.Claim, error) {
	c, err := e.claims.AppendDocuments(ctx, before.ID, docs)
	if err != nil {
		if len(docs) > 0 {
			e.log.Error("document append failed; stored documents orphaned",
				slog.String("claim_id", before.ID),
				slog.Any("orphaned_keys", documentKeys(docs)),
			)
		}
		return models.Claim{}, storeErr(op, before.ID, err)
	}

	user := attribution(before, actor)
	e.log.Info("documents attached", slog.String("claim_id", before.ID), slog.Int("count", len(docs)), slog.String("actor", user))
	return c, e.record(ctx, op, before.ID, user, models.ActionDocumentUploaded,
		fmt.Sprintf("%d document(s) uploaded", len(docs)))
}

// RequestDocument records that staff asked the customer for a document.
func (e *Engine) RequestDocument(ctx context.Context, id, requestedBy, documentType string) error {
	const op = "request document"
	if _, err := e.claims.Get(ctx, id); err != nil {
		return storeErr(op, id, err)
	}
	documentType = actorOr(documentType, DefaultDocumentType)
	return e.record(ctx, op, id, actorOr(requestedBy, models.ActorAdmin), models.ActionDocumentRequested,
		fmt.Sprintf("Requested %s from customer", documentType))
}

// NotifyCustomer emails message to the claimant as HTML and, only when
// delivery succeeds, logs the plain message as a note so that the timeline
// shows what was sent.
func (e *Engine) NotifyCustomer(ctx context.Context, id, subject, message, actor string) error {
	const op = "notify customer"
	message = strings.TrimSpace(message)
	if message == "" {
		return opErr(op, id, ErrValidation, errors.New("email body required"))
	}
	c, err := e.claims.Get(ctx, id)
	if err != nil {
		return storeErr(op, id, err)
	}
	if strings.TrimSpace(subject) == "" {
		subject = "Update on your claim " + id
	}

	if err := e.notifier.Send(ctx, c.Email, subject, messageHTML(message)); err != nil {
		e.log.Warn("customer email failed", slog.String("claim_id", id), slog.String("error", err.Error()))
		return opErr(op, id, ErrNotification, err)
	}

	return e.record(ctx, op, id, actorOr(actor, models.ActorAdmin), models.ActionNoteAdded,
		`Email sent to customer: "`+message+`"`)
}

// ---- Helpers ----

// record appends the single log entry that accompanies a mutation.
func (e *Engine) record(ctx context.Context, op, claimID, user string, action models.Action, details string) error {
	entry := models.ActivityLogEntry{
		ID:        e.newLogID(),
		ClaimID:   claimID,
		Timestamp: e.clock(),
		User:      user,
		Action:    action,
		Details:   details,
	}
	if err := e.logs.Append(ctx, entry); err != nil {
		e.log.Error("activity log append failed after claim write",
			slog.String("claim_id", claimID),
			slog.String("op", op),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
		return opErr(op, claimID, ErrStorage, fmt.Errorf("%w: %v", ErrAuditAppend, err))
	}
	return nil
}

// messageHTML renders a plain-text message as an HTML paragraph.
func messageHTML(msg string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(msg), "\n", "<br>") + "</p>"
}

// storeDocuments uploads files concurrently. The returned slice keeps input order.
func (e *Engine) storeDocuments(ctx context.Context, claimID string, files []models.FileUpload) ([]models.Document, error) {
	docs := make([]models.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.uploadLimit)
	for i, f := range files {
		g.Go(func() error {
			key := DocumentPath(claimID, f.Name)
			url, err := e.docs.Store(gctx, key, f.Data, f.ContentType)
			if err != nil {
				return fmt.Errorf("store %s: %w", f.Name, err)
			}
			docs[i] = models.Document{
				Name:       f.Name,
				Type:       f.ContentType,
				Size:       int64(len(f.Data)),
				URL:        url,
				Key:        key,
				UploadedAt: e.clock(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if stored := documentKeys(docs); len(stored) > 0 {
			e.log.Warn("partial document upload; stored documents orphaned",
				slog.String("claim_id", claimID),
				slog.Any("orphaned_keys", stored),
			)
		}
		return nil, err
	}
	return docs, nil
}

// DocumentPath namespaces a document by claim id and a unique token.
func DocumentPath(claimID, filename string) string {
	return fmt.Sprintf("claims/%s/%s_%s", claimID, ulid.Make().String(), filename)
}

func documentKeys(docs []models.Document) []string {
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Key != "" {
			keys = append(keys, d.Key)
		}
	}
	return keys
}
