package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeToken reduces an account name to a comparable token: casefolded
// with everything but letters and digits stripped, so "Hana Bank (Main)"
// and "hana-bank main" compare equal.
func NormalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AccountRef normalizes an account reference to a comparable key. An id wins
// over a name; an empty string means no usable reference.
func AccountRef(id *int64, name string) string {
	if id != nil {
		return fmt.Sprintf("id:%d", *id)
	}
	if tok := NormalizeToken(name); tok != "" {
		return "name:" + tok
	}
	return ""
}
