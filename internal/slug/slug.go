// Package slug normalizes human labels ("Sundry Debtors") into codes
// ("sundry_debtors").
package slug

import (
	"regexp"
	"strings"
)

const maxLen = 40

var reSlug = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug reports whether s is already a valid code.
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify lowercases s, turns every run of other characters into a single
// '_', caps the result at 40 runes and trims '_' from both ends.
func Slugify(s string) string {
	var b strings.Builder
	pending := false
	n := 0
	for _, r := range strings.ToLower(s) {
		if n >= maxLen {
			break
		}
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pending = n > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			n++
			pending = false
			if n >= maxLen {
				break
			}
		}
		b.WriteRune(r)
		n++
	}
	return strings.Trim(b.String(), "_")
}
