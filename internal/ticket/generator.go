// Package ticket issues entry-pass identifiers.
package ticket

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxAttempts bounds how many times a caller regenerates after a ticket
// number collision before giving up.
const MaxAttempts = 5

// ErrSpaceExhausted is returned once MaxAttempts consecutive candidates
// collided with issued tickets.
var ErrSpaceExhausted = errors.New("ticket number space exhausted")

// Generator produces ticket numbers of the form <prefix><digits>, for
// example EVT-2026-004217.  Uniqueness is not checked here; the store's
// unique index decides and the caller retries.
type Generator struct {
	prefix string
	digits int
	limit  *big.Int
}

// NewGenerator returns a Generator for the given prefix and suffix length.
// The prefix is stored upper-cased so issued tickets survive Normalize.
// digits is clamped to 4..12.
func NewGenerator(prefix string, digits int) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if digits < 4 {
		digits = 4
	}
	if digits > 12 {
		digits = 12
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	return &Generator{prefix: prefix, digits: digits, limit: limit}
}

// New returns a fresh candidate ticket number.
func (g *Generator) New() (string, error) {
	n, err := rand.Int(rand.Reader, g.limit)
	if err != nil {
		return "", fmt.Errorf("ticket: random: %w", err)
	}
	return fmt.Sprintf("%s%0*d", g.prefix, g.digits, n), nil
}

// Normalize trims whitespace and upper-cases a ticket typed or scanned at
// the gate.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
