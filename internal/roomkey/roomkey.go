package roomkey

import (
	"crypto/rand"
	"log"
	"math/big"
	"regexp"
	"strings"
)

// Alphabet is the set of characters room keys are drawn from. Digits and
// letters that are easy to confuse over voice or in a terminal font
// (0, 1, 5, 8, O, I, L, S, B) are excluded.
const Alphabet = "ACDEFGHJKMNPQRTUVWXYZ234679"

const (
	segmentLen = 3
	segments   = 3
)

var keyPattern = regexp.MustCompile(`^[` + Alphabet + `]{3}-[` + Alphabet + `]{3}-[` + Alphabet + `]{3}$`)

// Generate returns a new random room key in XXX-XXX-XXX form. The key space
// is 27^9, large enough that callers may skip collision checks.
func Generate() string {
	var b strings.Builder
	b.Grow(segments*segmentLen + segments - 1)

	for s := 0; s < segments; s++ {
		if s > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < segmentLen; i++ {
			b.WriteByte(Alphabet[randomIndex(len(Alphabet))])
		}
	}

	return b.String()
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("failed to generate random index:", err)
	}
	return int(n.Int64())
}

// Normalize trims surrounding whitespace and upper-cases the key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// IsValid reports whether key is a well-formed room key. Matching is
// case-insensitive: user input is normalized before the pattern check.
func IsValid(key string) bool {
	return keyPattern.MatchString(Normalize(key))
}
