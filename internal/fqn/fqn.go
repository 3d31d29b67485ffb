// Package fqn builds and compares dotted qualified names.
package fqn

import "strings"

// Join concatenates non-empty segments with dots.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}

// CommonPrefixLen returns the length of the common dot-segment prefix.
func CommonPrefixLen(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	count := 0
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if aParts[i] != bParts[i] {
			break
		}
		count++
	}
	return count
}

// Closest returns the index of the candidate sharing the longest prefix with
// from, or -1 when two candidates tie for the best score. This approximates
// "closest in the namespace structure".
func Closest(candidates []string, from string) int {
	best, bestLen, tie := -1, -1, false
	for i, c := range candidates {
		l := CommonPrefixLen(c, from)
		switch {
		case l > bestLen:
			best, bestLen, tie = i, l, false
		case l == bestLen:
			tie = true
		}
	}
	if tie {
		return -1
	}
	return best
}
