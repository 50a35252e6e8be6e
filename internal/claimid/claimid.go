// Package claimid generates and validates the human-facing claim identifier.
package claimid

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

// Prefix is the fixed two-letter prefix of every claim identifier.
const Prefix = "FC"

const (
	minValue = 100000
	maxValue = 999999
)

var idRx = regexp.MustCompile(`^FC[1-9][0-9]{5}$`)

// Generator produces candidate claim identifiers. Uniqueness is advisory and
// must be enforced by the claim store on insert.
type Generator interface {
	NewID() string
}

// Random draws each identifier independently and uniformly from
// [100000, 999999]. The zero value is ready to use.
type Random struct {
	// Intn overrides the random source; it must return a value in [0, n).
	Intn func(n int) int
}

// NewID returns "FC" followed by six digits.
func (r Random) NewID() string {
	intn := r.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return fmt.Sprintf("%s%d", Prefix, minValue+intn(maxValue-minValue+1))
}

// Valid reports whether id has the FC + 6 digit shape with a value in range.
func Valid(id string) bool {
	return idRx.MatchString(id)
}
