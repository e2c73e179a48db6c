// Package normalize canonicalizes user-entered identifiers.
package normalize

import (
	"strings"
	"unicode/utf8"
)

var emailReplacer = strings.NewReplacer(
	"\u00a0", " ", // NBSP
	"\u3000", " ", // ideographic space
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// Email maps exotic whitespace to spaces, drops zero-width characters, trims
// and lower-cases. Both the server and the local store key users by this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(emailReplacer.Replace(s)))
}

// Length counts characters rather than bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

var passwordReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u3000", " ",
	"\u200b", "",
)

// Password applies the same whitespace cleanup as Email without changing
// case.
func Password(s string) string {
	return strings.TrimSpace(passwordReplacer.Replace(s))
}
