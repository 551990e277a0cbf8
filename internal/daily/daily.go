// internal/daily/daily.go
//
// Daily mode: every player gets the same digit stream on a given UTC day.
// The stream comes from a math/rand source seeded with HMAC-SHA256(salt, YYYY-MM-DD).

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a deterministic seed for the day containing t.
func Seed(t time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(t)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty for a PRNG seed
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Source returns the digit source for the day containing t.
func Source(t time.Time, salt string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(t, salt)))
}
