package identity

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var emailFolder = cases.Fold()

// CanonicalEmail returns the form used for uniqueness checks and lookups:
// trimmed and Unicode case-folded. Simple lowercasing is not enough for
// addresses containing characters outside ASCII.
func CanonicalEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

// ValidateEmail performs a minimal structural check. Full RFC validation is
// deliberately out of scope; deliverability is proven by the verification
// email, not by parsing.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\n") {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, email)
	}
	if !strings.Contains(email[at+1:], ".") {
		return fmt.Errorf("%w: invalid email domain in %q", ErrValidation, email)
	}
	return nil
}
