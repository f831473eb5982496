// Package reference generates and validates human-typeable certificate
// references of the form PREFIX-YEAR-XXX-XXX-XXX. The trailing groups are
// drawn from an alphabet that excludes characters easily confused in print
// or speech (no 0/O, no 1/I/L), giving roughly 19.7 trillion combinations
// per calendar year. References are random rather than sequential so the
// registry cannot be enumerated.
package reference

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Alphabet is the restricted character set for reference groups.
// 30 characters, no 0/O/1/I/L.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	groupCount = 3
	groupLen   = 3
)

// Generator produces references under a fixed organization prefix.
type Generator struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewGenerator creates a generator for the given prefix (e.g. "LV-AH").
func NewGenerator(prefix string) *Generator {
	group := "[" + Alphabet + "]{3}"
	pattern := regexp.MustCompile(
		"^" + regexp.QuoteMeta(strings.ToUpper(prefix)) + "-\\d{4}-" + group + "-" + group + "-" + group + "$",
	)
	return &Generator{
		prefix:  strings.ToUpper(prefix),
		pattern: pattern,
	}
}

// New draws a fresh random reference. The generator alone does not
// guarantee uniqueness; callers must collision-check against the store.
func (g *Generator) New() (string, error) {
	buf := make([]byte, groupCount*groupLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	groups := make([]string, groupCount)
	for i := 0; i < groupCount; i++ {
		var group strings.Builder
		for j := 0; j < groupLen; j++ {
			idx := int(buf[i*groupLen+j]) % len(Alphabet)
			group.WriteByte(Alphabet[idx])
		}
		groups[i] = group.String()
	}

	year := time.Now().Year()
	return fmt.Sprintf("%s-%d-%s-%s-%s", g.prefix, year, groups[0], groups[1], groups[2]), nil
}

// Valid reports whether ref matches the reference format, ignoring case.
// Cheap shape check to run before any store query.
func (g *Generator) Valid(ref string) bool {
	return g.pattern.MatchString(strings.ToUpper(strings.TrimSpace(ref)))
}

// Normalize returns the canonical (uppercase, trimmed) form of a reference.
func Normalize(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}
