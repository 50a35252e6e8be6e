// Package dashboard filters and summarizes claim listings for staff.
package dashboard

import (
	"strings"

	"github.com/kylejryan/fair-claim-portal/internal/models"
)

// AllStatuses disables status filtering.
const AllStatuses = "all"

// Counters summarizes a claim listing by status.
type Counters struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Resolved   int `json:"resolved"`
}

// Count tallies claims by status.
func Count(claims []models.Claim) Counters {
	c := Counters{Total: len(claims)}
	for _, cl := range claims {
		switch cl.Status {
		case models.StatusNew:
			c.New++
		case models.StatusInProgress:
			c.InProgress++
		case models.StatusPending:
			c.Pending++
		case models.StatusResolved:
			c.Resolved++
		}
	}
	return c
}

// Filter keeps the claims matching status and search, preserving order.
// An empty status or "all" matches every status. search is matched
// case-insensitively against id, name, email and policy number.
func Filter(claims []models.Claim, status, search string) []models.Claim {
	status = strings.ToLower(strings.TrimSpace(status))
	q := strings.ToLower(strings.TrimSpace(search))

	out := make([]models.Claim, 0, len(claims))
	for _, c := range claims {
		if status != "" && status != AllStatuses && string(c.Status) != status {
			continue
		}
		if q != "" && !matches(c, q) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matches(c models.Claim, q string) bool {
	for _, f := range []string{c.ID, c.Name, c.Email, c.PolicyNumber} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
