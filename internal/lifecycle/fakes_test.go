package lifecycle

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// --- In-memory collaborators ---

type memClaims struct {
	mu     sync.Mutex
	claims map[string]models.Claim

	insertErr error
	updateErr error
}

func newMemClaims() *memClaims { return &memClaims{claims: map[string]models.Claim{}} }

func cloneClaim(c models.Claim) models.Claim {
	c.Documents = slices.Clone(c.Documents)
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}

func (m *memClaims) Insert(_ context.Context, c models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.claims[c.ID]; ok {
		return fmt.Errorf("claim %s exists: %w", c.ID, ErrConflict)
	}
	m.claims[c.ID] = cloneClaim(c)
	return nil
}

func (m *memClaims) Get(_ context.Context, id string) (models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return models.Claim{}, ErrNotFound
	}
	return cloneClaim(c), nil
}

func (m *memClaims) List(_ context.Context) ([]models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Claim, 0, len(m.claims))
	for _, c := range m.claims {
		out = append(out, cloneClaim(c))
	}
	slices.SortFunc(out, func(a, b models.Claim) int { return b.SubmittedAt.Compare(a.SubmittedAt) })
	return out, nil
}

func (m *memClaims) Update(_ context.Context, id string, p ClaimPatch) (models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return models.Claim{}, m.updateErr
	}
	c, ok := m.claims[id]
	if !ok {
		return models.Claim{}, ErrNotFound
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Resolution != nil {
		c.Resolution = *p.Resolution
	}
	if p.AssignedTo != nil {
		c.AssignedTo = *p.AssignedTo
	}
	if p.ResolvedAtIfUnset != nil && c.ResolvedAt == nil {
		t := *p.ResolvedAtIfUnset
		c.ResolvedAt = &t
	}
	m.claims[id] = c
	return cloneClaim(c), nil
}

func (m *memClaims) AppendDocuments(_ context.Context, id string, docs []models.Document) (models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return models.Claim{}, ErrNotFound
	}
	c.Documents = append(slices.Clone(c.Documents), docs...)
	c.Version++
	m.claims[id] = c
	return cloneClaim(c), nil
}

type memLogs struct {
	mu        sync.Mutex
	entries   []models.ActivityLogEntry
	appendErr error
}

func (m *memLogs) Append(_ context.Context, e models.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLogs) ListByClaim(_ context.Context, claimID string) ([]models.ActivityLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityLogEntry
	for _, e := range m.entries {
		if e.ClaimID == claimID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.ActivityLogEntry) int {
		return cmp.Or(b.Timestamp.Compare(a.Timestamp), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (m *memLogs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memDocs struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newMemDocs() *memDocs { return &memDocs{objects: map[string][]byte{}} }

func (m *memDocs) Store(_ context.Context, path string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && strings.HasSuffix(path, m.failOn) {
		return "", errors.New("bucket unavailable")
	}
	m.objects[path] = data
	return "https://docs.example.com/" + path, nil
}

type fakeNotifier struct {
	sendFn func(ctx context.Context, to, subject, html string) error
	sent   []string
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, html string) error {
	if f.sendFn != nil {
		if err := f.sendFn(ctx, to, subject, html); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, to+"|"+subject+"|"+html)
	return nil
}

type fakeDirectory struct {
	assignees []models.Assignee
}

func (f fakeDirectory) ListActive(context.Context) ([]models.Assignee, error) {
	return f.assignees, nil
}

// seqIDs returns the given ids in order, then repeats the last one.
type seqIDs struct {
	mu  sync.Mutex
	ids []string
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[0]
	if len(s.ids) > 1 {
		s.ids = s.ids[1:]
	}
	return id
}

// tickClock advances one second on every call so log order is deterministic.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	engine   *Engine
	claims   *memClaims
	logs     *memLogs
	docs     *memDocs
	notifier *fakeNotifier
}

func newHarness(opts ...func(*Deps)) *harness {
	h := &harness{
		claims:   newMemClaims(),
		logs:     &memLogs{},
		docs:     newMemDocs(),
		notifier: &fakeNotifier{},
	}
	d := Deps{
		Claims:    h.claims,
		Logs:      h.logs,
		Documents: h.docs,
		Notifier:  h.notifier,
		Clock:     newTickClock().Now,
	}
	for _, o := range opts {
		o(&d)
	}
	h.engine = New(d)
	return h
}
