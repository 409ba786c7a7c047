// Package normalize converts free-text vehicle attributes into their
// canonical display form.
//
// The rules are simple: trim, upper-case the first rune and lower-case the
// rest, with the result kept in NFC. Model names additionally consult an
// exception set of codes that must stay upper case ("GLA", "X5", "ID.3").
// Empty or whitespace-only input is returned unchanged.
//
// Every function here is total and idempotent, so re-running the pass over
// already canonical data is a no-op.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"carsync/internal/domain"

	"golang.org/x/text/unicode/norm"
)

// Generic capitalizes the first rune of the trimmed input and lower-cases the
// remainder. Whitespace-only input is returned as given.
func Generic(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	return settle(s, capitalize)
}

// maxSettle bounds settle; case mapping and composition agree after one or
// two rounds for every input seen so far.
const maxSettle = 4

// settle applies caseFn and NFC until the string stops changing. Case mapping
// can leave a base letter and a combining mark that NFC then composes, so
// one round is not always a fixed point.
func settle(s string, caseFn func(string) string) string {
	s = norm.NFC.String(s)
	for i := 0; i < maxSettle; i++ {
		next := norm.NFC.String(caseFn(s))
		if next == s {
			break
		}
		s = next
	}
	return s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	var b strings.Builder
	b.Grow(len(s))
	b.WriteRune(unicode.ToUpper(r))
	b.WriteString(strings.ToLower(s[size:]))
	return b.String()
}

// Normalizer applies the per-dimension rules with a fixed exception set.
// It is read-only after construction and safe for concurrent use.
type Normalizer struct {
	exceptions ExceptionSet
}

// New returns a Normalizer using set. A nil set means DefaultExceptions.
func New(set ExceptionSet) *Normalizer {
	if set == nil {
		set = DefaultExceptions()
	}
	return &Normalizer{exceptions: set}
}

// Generic is the package-level Generic; it exists so a Normalizer can be
// passed around as the only dependency.
func (n *Normalizer) Generic(raw string) string { return Generic(raw) }

// Model returns the upper-cased trimmed input when it is a known model code,
// and Generic(raw) otherwise. The generic form is checked against the
// exceptions too, so normalizing a result again never changes it.
func (n *Normalizer) Model(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	if upper := settle(s, strings.ToUpper); n.exceptions.Contains(upper) {
		return upper
	}
	g := Generic(s)
	if upper := settle(g, strings.ToUpper); n.exceptions.Contains(upper) {
		return upper
	}
	return g
}

// Apply normalizes raw according to the rules of dimension k.
func (n *Normalizer) Apply(k domain.Kind, raw string) string {
	if k == domain.Model {
		return n.Model(raw)
	}
	return n.Generic(raw)
}

var defaultNormalizer = New(nil)

// Model normalizes raw using DefaultExceptions.
func Model(raw string) string { return defaultNormalizer.Model(raw) }
