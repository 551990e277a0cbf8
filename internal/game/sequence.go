package game

import (
	"strings"
)

// DigitSource draws uniform integers in [0,n). *math/rand.Rand satisfies it.
type DigitSource interface {
	Intn(n int) int
}

// generate draws n independent digits 0–9; repeats are allowed.
func generate(src DigitSource, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = src.Intn(10)
	}
	return out
}

// Sanitize drops every non-digit and truncates the rest to limit characters.
func Sanitize(raw string, limit int) string {
	var b strings.Builder
	for _, r := range raw {
		if b.Len() >= limit {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseDigits converts each digit character to its value; anything else is skipped.
func parseDigits(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, int(r-'0'))
		}
	}
	return out
}

// Equal reports whether a and b have the same length and the same digits in order.
func Equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
